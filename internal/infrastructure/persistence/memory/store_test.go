package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

func TestStore_ActivePeriodIsUniquePerYear(t *testing.T) {
	s := NewStore()
	s.AddPeriod(academic.Period{ID: "a", SchoolYear: "2024/2025", Semester: academic.SemesterOdd, Active: true})
	s.AddPeriod(academic.Period{ID: "b", SchoolYear: "2024/2025", Semester: academic.SemesterEven, Active: true})

	p, err := s.ActivePeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", p.ID)

	a, err := s.Period(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, a.Active)
}

func TestStore_NoActivePeriod(t *testing.T) {
	s := NewStore()
	s.AddPeriod(academic.Period{ID: "a", SchoolYear: "2024/2025"})

	_, err := s.ActivePeriod(context.Background())
	assert.True(t, shared.IsPrecondition(err))
}

func TestStore_StudentsFiltersCohort(t *testing.T) {
	s := NewDemoStore()
	ctx := context.Background()

	classA, err := s.Students(ctx, academic.CohortFilter{ClassID: DemoClassA}, DemoEvenTerm)
	require.NoError(t, err)
	assert.Len(t, classA, 3)
	assert.Equal(t, "X IPA 1", classA[0].ClassName)

	school, err := s.Students(ctx, academic.CohortFilter{}, DemoEvenTerm)
	require.NoError(t, err)
	assert.Len(t, school, 5)

	withInactive, err := s.Students(ctx, academic.CohortFilter{IncludeInactive: true}, DemoEvenTerm)
	require.NoError(t, err)
	assert.Len(t, withInactive, 6)
}

func TestStore_AchievementsNewestFirst(t *testing.T) {
	s := NewDemoStore()

	list, err := s.Achievements(context.Background(), "st-01", DemoEvenTerm)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ach-1", list[0].ID)
	assert.True(t, list[0].AchievedOn.After(list[1].AchievedOn))
}

func TestStore_MissingRecordsAreEmpty(t *testing.T) {
	s := NewDemoStore()
	ctx := context.Background()

	tally, err := s.AttendanceTally(ctx, "st-04", DemoEvenTerm)
	require.NoError(t, err)
	assert.Nil(t, tally)

	attitudes, err := s.AttitudeRecords(ctx, "st-05", DemoEvenTerm)
	require.NoError(t, err)
	assert.Empty(t, attitudes)

	_, err = s.Student(ctx, "nobody")
	assert.True(t, shared.IsNotFound(err))
}

func TestStore_PeriodsChronological(t *testing.T) {
	periods, err := NewDemoStore().Periods(context.Background())
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, DemoOddTerm, periods[0].ID)
	assert.Equal(t, DemoEvenTerm, periods[1].ID)
}

func TestStore_Dataset(t *testing.T) {
	ds := NewDemoStore().Dataset()

	assert.Len(t, ds.Classes, 2)
	assert.Len(t, ds.Students, 6)
	assert.Equal(t, "st-01", ds.Students[0].ID)
	require.Len(t, ds.Periods, 2)
	assert.Equal(t, DemoOddTerm, ds.Periods[0].ID)
	assert.NotEmpty(t, ds.Grades)
	assert.NotEmpty(t, ds.Components)
}
