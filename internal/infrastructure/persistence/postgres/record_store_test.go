package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/memory"
)

// newTestStore connects to POSTGRES_TEST_URL, migrates and loads the demo
// dataset, or skips.
func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.URL = url
	conn, err := NewConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = NewMigrator(conn).Migrate(ctx)
	require.NoError(t, err)

	store := NewRecordStore(conn)
	_, err = store.Import(ctx, memory.NewDemoStore().Dataset())
	require.NoError(t, err)
	return store
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	assert.Equal(t, "host=localhost port=5432 dbname=rapor user=rapor password=secret sslmode=disable connect_timeout=10", cfg.DSN())

	cfg.URL = "postgres://u:p@db:5432/rapor"
	assert.Equal(t, "postgres://u:p@db:5432/rapor", cfg.DSN())
}

func TestGetMigrations_Ordered(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}

func TestCohortClause(t *testing.T) {
	clause, args := cohortClause(academic.CohortFilter{ClassID: "c1"}, 3)
	assert.Equal(t, " AND s.class_id = $3 AND s.status = 'active'", clause)
	assert.Equal(t, []any{"c1"}, args)

	clause, args = cohortClause(academic.CohortFilter{IncludeInactive: true}, 1)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestRecordStore_MatchesMemoryStore(t *testing.T) {
	store := newTestStore(t)
	mem := memory.NewDemoStore()
	ctx := context.Background()

	active, err := store.ActivePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.DemoEvenTerm, active.ID)

	cohort := academic.CohortFilter{ClassID: memory.DemoClassA}
	got, err := store.Students(ctx, cohort, active.ID)
	require.NoError(t, err)
	want, err := mem.Students(ctx, cohort, active.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	grades, err := store.CohortGradeEntries(ctx, cohort, memory.DemoMath, active.ID)
	require.NoError(t, err)
	memGrades, err := mem.CohortGradeEntries(ctx, cohort, memory.DemoMath, active.ID)
	require.NoError(t, err)
	assert.Len(t, grades, len(memGrades))

	components, err := store.GradeComponents(ctx, memory.DemoMath, active.ID)
	require.NoError(t, err)
	require.Len(t, components, 2)

	tally, err := store.AttendanceTally(ctx, "st-01", active.ID)
	require.NoError(t, err)
	require.NotNil(t, tally)
	assert.Equal(t, 3, tally.TotalAbsences())

	tally, err = store.AttendanceTally(ctx, "st-04", active.ID)
	require.NoError(t, err)
	assert.Nil(t, tally)
}

func TestRecordStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Student(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	_, err = store.Subject(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrSubjectNotFound)

	_, err = store.Period(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrPeriodNotFound)

	ok, err := store.ClassExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
