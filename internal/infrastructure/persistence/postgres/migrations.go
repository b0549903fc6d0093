package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with the embedded school schema.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations in version order and returns
// how many were applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		count++
	}
	return count, nil
}

// Rollback rolls back the last applied migration. It returns the rolled
// back version, or 0 when nothing was applied.
func (m *Migrator) Rollback(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	last := 0
	for v := range applied {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return 0, nil
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			mig = &m.migrations[i]
			break
		}
	}
	if mig == nil || mig.DownSQL == "" {
		return 0, fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	err = m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
	if err != nil {
		return 0, err
	}
	return last, nil
}

// Status returns every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_school_reference", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_academic_records", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "add_component_kind", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS classes (
    id TEXT PRIMARY KEY,
    name VARCHAR(50) NOT NULL,
    grade_level SMALLINT
);

CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    nis VARCHAR(30) NOT NULL UNIQUE,
    name VARCHAR(150) NOT NULL,
    class_id TEXT REFERENCES classes(id) ON DELETE SET NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_student_status CHECK (status IN ('active', 'inactive'))
);

CREATE INDEX IF NOT EXISTS idx_students_class ON students(class_id);

CREATE TABLE IF NOT EXISTS periods (
    id TEXT PRIMARY KEY,
    school_year VARCHAR(9) NOT NULL,
    semester VARCHAR(6) NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    starts_on DATE,

    CONSTRAINT valid_semester CHECK (semester IN ('ganjil', 'genap')),
    UNIQUE (school_year, semester)
);

-- At most one active period per school year.
CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_one_active
    ON periods(school_year) WHERE is_active;

CREATE TABLE IF NOT EXISTS subjects (
    id TEXT PRIMARY KEY,
    code VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(100) NOT NULL,
    kkm NUMERIC(5,2) NOT NULL DEFAULT 75,

    CONSTRAINT valid_kkm CHECK (kkm >= 0 AND kkm <= 100)
);
`

const migration001Down = `
DROP TABLE IF EXISTS subjects;
DROP TABLE IF EXISTS periods;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS classes;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS grade_components (
    id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL REFERENCES subjects(id),
    period_id TEXT NOT NULL REFERENCES periods(id),
    name VARCHAR(100) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_components_subject_period ON grade_components(subject_id, period_id);

CREATE TABLE IF NOT EXISTS grade_entries (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id),
    subject_id TEXT NOT NULL REFERENCES subjects(id),
    period_id TEXT NOT NULL REFERENCES periods(id),
    component_id TEXT NOT NULL REFERENCES grade_components(id),
    score NUMERIC(5,2) NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_score CHECK (score >= 0 AND score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_grades_student_subject_period ON grade_entries(student_id, subject_id, period_id);
CREATE INDEX IF NOT EXISTS idx_grades_period_subject ON grade_entries(period_id, subject_id);

CREATE TABLE IF NOT EXISTS attendance_tallies (
    student_id TEXT NOT NULL REFERENCES students(id),
    period_id TEXT NOT NULL REFERENCES periods(id),
    sick INTEGER NOT NULL DEFAULT 0,
    permission INTEGER NOT NULL DEFAULT 0,
    unexcused INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (student_id, period_id),
    CONSTRAINT valid_tally CHECK (sick >= 0 AND permission >= 0 AND unexcused >= 0)
);

CREATE TABLE IF NOT EXISTS achievements (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id),
    period_id TEXT NOT NULL REFERENCES periods(id),
    title VARCHAR(200) NOT NULL,
    level VARCHAR(20) NOT NULL,
    category VARCHAR(50) NOT NULL DEFAULT '',
    rank VARCHAR(50) NOT NULL DEFAULT '',
    achieved_on DATE NOT NULL,

    CONSTRAINT valid_level CHECK (level IN ('school', 'district', 'province', 'national', 'international'))
);

CREATE INDEX IF NOT EXISTS idx_achievements_student_period ON achievements(student_id, period_id, achieved_on DESC);

CREATE TABLE IF NOT EXISTS attitude_records (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id),
    period_id TEXT NOT NULL REFERENCES periods(id),
    aspect VARCHAR(10) NOT NULL,
    rating CHAR(1) NOT NULL,
    description TEXT NOT NULL DEFAULT '',

    CONSTRAINT valid_aspect CHECK (aspect IN ('social', 'spiritual')),
    CONSTRAINT valid_attitude_rating CHECK (rating IN ('A', 'B', 'C', 'D'))
);

CREATE INDEX IF NOT EXISTS idx_attitude_student_period ON attitude_records(student_id, period_id);

CREATE TABLE IF NOT EXISTS extracurricular_marks (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id),
    period_id TEXT NOT NULL REFERENCES periods(id),
    activity VARCHAR(100) NOT NULL,
    mark CHAR(1) NOT NULL,
    notes TEXT NOT NULL DEFAULT '',

    CONSTRAINT valid_ekskul_mark CHECK (mark IN ('A', 'B', 'C', 'D'))
);

CREATE INDEX IF NOT EXISTS idx_ekskul_student_period ON extracurricular_marks(student_id, period_id);
`

const migration002Down = `
DROP TABLE IF EXISTS extracurricular_marks;
DROP TABLE IF EXISTS attitude_records;
DROP TABLE IF EXISTS achievements;
DROP TABLE IF EXISTS attendance_tallies;
DROP TABLE IF EXISTS grade_entries;
DROP TABLE IF EXISTS grade_components;
`

// Existing rows keep kind NULL and are classified by name at read time.
const migration003Up = `
ALTER TABLE grade_components ADD COLUMN IF NOT EXISTS kind VARCHAR(10);
ALTER TABLE grade_components ADD CONSTRAINT valid_component_kind
    CHECK (kind IS NULL OR kind IN ('knowledge', 'skill', 'other'));
`

const migration003Down = `
ALTER TABLE grade_components DROP CONSTRAINT IF EXISTS valid_component_kind;
ALTER TABLE grade_components DROP COLUMN IF EXISTS kind;
`
