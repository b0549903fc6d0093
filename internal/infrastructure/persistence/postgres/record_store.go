package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RecordStore implements academic.RecordStore for PostgreSQL.
type RecordStore struct {
	conn *Connection
}

var _ academic.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a new RecordStore.
func NewRecordStore(conn *Connection) *RecordStore {
	return &RecordStore{conn: conn}
}

// semesterOrder sorts ganjil before genap inside a school year.
const semesterOrder = `CASE semester WHEN 'ganjil' THEN 1 ELSE 2 END`

// cohortClause filters students aliased as s by class and status,
// starting at placeholder $n.
func cohortClause(cohort academic.CohortFilter, n int) (string, []any) {
	clause := ""
	var args []any
	if !cohort.WholeSchool() {
		clause += fmt.Sprintf(" AND s.class_id = $%d", n)
		args = append(args, cohort.ClassID)
	}
	if !cohort.IncludeInactive {
		clause += " AND s.status = 'active'"
	}
	return clause, args
}

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

const gradeColumns = `g.id, g.student_id, g.subject_id, g.period_id, g.component_id, g.score::float8, g.recorded_at`

func scanGrade(row pgx.CollectableRow) (academic.GradeEntry, error) {
	var e academic.GradeEntry
	err := row.Scan(&e.ID, &e.StudentID, &e.SubjectID, &e.PeriodID, &e.ComponentID, &e.Score, &e.RecordedAt)
	return e, err
}

// GradeEntries returns the entries of one student for one subject and period.
func (r *RecordStore) GradeEntries(ctx context.Context, studentID, subjectID, periodID string) ([]academic.GradeEntry, error) {
	query := `
		SELECT ` + gradeColumns + `
		FROM grade_entries g
		WHERE g.student_id = $1 AND g.subject_id = $2 AND g.period_id = $3
		ORDER BY g.recorded_at, g.id
	`

	rows, err := r.conn.Query(ctx, query, studentID, subjectID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grade entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanGrade)
	if err != nil {
		return nil, fmt.Errorf("failed to scan grade entries: %w", err)
	}
	return entries, nil
}

// CohortGradeEntries returns the entries of every student in the cohort.
func (r *RecordStore) CohortGradeEntries(ctx context.Context, cohort academic.CohortFilter, subjectID, periodID string) ([]academic.GradeEntry, error) {
	args := []any{periodID}
	query := `
		SELECT ` + gradeColumns + `
		FROM grade_entries g
		JOIN students s ON s.id = g.student_id
		WHERE g.period_id = $1`

	if subjectID != "" {
		args = append(args, subjectID)
		query += fmt.Sprintf(" AND g.subject_id = $%d", len(args))
	}
	clause, extra := cohortClause(cohort, len(args)+1)
	query += clause + " ORDER BY g.student_id, g.recorded_at, g.id"
	args = append(args, extra...)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort grade entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanGrade)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cohort grade entries: %w", err)
	}
	return entries, nil
}

// AttendanceTally returns the tally or nil when none is recorded.
func (r *RecordStore) AttendanceTally(ctx context.Context, studentID, periodID string) (*academic.AttendanceTally, error) {
	query := `
		SELECT student_id, period_id, sick, permission, unexcused
		FROM attendance_tallies
		WHERE student_id = $1 AND period_id = $2
	`

	var t academic.AttendanceTally
	err := r.conn.QueryRow(ctx, query, studentID, periodID).Scan(
		&t.StudentID, &t.PeriodID, &t.Sick, &t.Permission, &t.Unexcused,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance tally: %w", err)
	}
	return &t, nil
}

// Achievements returns achievements ordered by date, newest first.
func (r *RecordStore) Achievements(ctx context.Context, studentID, periodID string) ([]academic.AchievementRecord, error) {
	query := `
		SELECT id, student_id, period_id, title, level, category, rank, achieved_on
		FROM achievements
		WHERE student_id = $1 AND period_id = $2
		ORDER BY achieved_on DESC, id
	`

	rows, err := r.conn.Query(ctx, query, studentID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.AchievementRecord, error) {
		var (
			a     academic.AchievementRecord
			level string
		)
		err := row.Scan(&a.ID, &a.StudentID, &a.PeriodID, &a.Title, &level, &a.Category, &a.Rank, &a.AchievedOn)
		a.Level = academic.AchievementLevel(level)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan achievements: %w", err)
	}
	return result, nil
}

// AttitudeRecords returns the attitude records of a student in a period.
func (r *RecordStore) AttitudeRecords(ctx context.Context, studentID, periodID string) ([]academic.AttitudeRecord, error) {
	query := `
		SELECT id, student_id, period_id, aspect, rating, description
		FROM attitude_records
		WHERE student_id = $1 AND period_id = $2
		ORDER BY aspect, id
	`

	rows, err := r.conn.Query(ctx, query, studentID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attitude records: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.AttitudeRecord, error) {
		var (
			a      academic.AttitudeRecord
			aspect string
		)
		err := row.Scan(&a.ID, &a.StudentID, &a.PeriodID, &aspect, &a.Rating, &a.Description)
		a.Aspect = academic.AttitudeAspect(aspect)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan attitude records: %w", err)
	}
	return result, nil
}

// ExtracurricularMarks returns the extracurricular marks of a student in a period.
func (r *RecordStore) ExtracurricularMarks(ctx context.Context, studentID, periodID string) ([]academic.ExtracurricularMark, error) {
	query := `
		SELECT id, student_id, period_id, activity, mark, notes
		FROM extracurricular_marks
		WHERE student_id = $1 AND period_id = $2
		ORDER BY activity, id
	`

	rows, err := r.conn.Query(ctx, query, studentID, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query extracurricular marks: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.ExtracurricularMark, error) {
		var m academic.ExtracurricularMark
		err := row.Scan(&m.ID, &m.StudentID, &m.PeriodID, &m.Activity, &m.Mark, &m.Notes)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan extracurricular marks: %w", err)
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reference data
// ─────────────────────────────────────────────────────────────────────────────

const studentColumns = `s.id, s.nis, s.name, COALESCE(s.class_id, ''), COALESCE(c.name, ''), s.status`

func scanStudent(row pgx.Row) (academic.Student, error) {
	var (
		st     academic.Student
		status string
	)
	err := row.Scan(&st.ID, &st.NIS, &st.Name, &st.ClassID, &st.ClassName, &status)
	st.Status = academic.StudentStatus(status)
	return st, err
}

// Students returns the cohort ordered by ID.
// Enrollment is not versioned per period, so periodID is not used.
func (r *RecordStore) Students(ctx context.Context, cohort academic.CohortFilter, _ string) ([]academic.Student, error) {
	clause, args := cohortClause(cohort, 1)
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		LEFT JOIN classes c ON c.id = s.class_id
		WHERE TRUE` + clause + `
		ORDER BY s.id`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	students, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.Student, error) {
		return scanStudent(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan students: %w", err)
	}
	return students, nil
}

// Student returns one student or shared.ErrStudentNotFound.
func (r *RecordStore) Student(ctx context.Context, id string) (*academic.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		LEFT JOIN classes c ON c.id = s.class_id
		WHERE s.id = $1`

	st, err := scanStudent(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &st, nil
}

// ClassExists reports whether the class is registered.
func (r *RecordStore) ClassExists(ctx context.Context, classID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM classes WHERE id = $1)`, classID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check class: %w", err)
	}
	return exists, nil
}

func scanSubject(row pgx.Row) (academic.Subject, error) {
	var sub academic.Subject
	err := row.Scan(&sub.ID, &sub.Code, &sub.Name, &sub.KKM)
	return sub, err
}

// Subject returns one subject or shared.ErrSubjectNotFound.
func (r *RecordStore) Subject(ctx context.Context, id string) (*academic.Subject, error) {
	sub, err := scanSubject(r.conn.QueryRow(ctx, `SELECT id, code, name, kkm::float8 FROM subjects WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return &sub, nil
}

// Subjects returns all subjects ordered by code.
func (r *RecordStore) Subjects(ctx context.Context) ([]academic.Subject, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, code, name, kkm::float8 FROM subjects ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	subjects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.Subject, error) {
		return scanSubject(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan subjects: %w", err)
	}
	return subjects, nil
}

// GradeComponents returns the components of a period, optionally for one subject.
// Rows created before the kind column exist with kind NULL.
func (r *RecordStore) GradeComponents(ctx context.Context, subjectID, periodID string) ([]academic.GradeComponent, error) {
	args := []any{periodID}
	query := `
		SELECT id, subject_id, period_id, name, COALESCE(kind, '')
		FROM grade_components
		WHERE period_id = $1`
	if subjectID != "" {
		args = append(args, subjectID)
		query += " AND subject_id = $2"
	}
	query += " ORDER BY subject_id, id"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grade components: %w", err)
	}
	components, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.GradeComponent, error) {
		var (
			c    academic.GradeComponent
			kind string
		)
		err := row.Scan(&c.ID, &c.SubjectID, &c.PeriodID, &c.Name, &kind)
		c.Kind = academic.ComponentKind(kind)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan grade components: %w", err)
	}
	return components, nil
}

const periodColumns = `id, school_year, semester, is_active, starts_on`

func scanPeriod(row pgx.Row) (academic.Period, error) {
	var (
		p        academic.Period
		semester string
		startsOn *time.Time
	)
	err := row.Scan(&p.ID, &p.SchoolYear, &semester, &p.Active, &startsOn)
	p.Semester = academic.Semester(semester)
	if startsOn != nil {
		p.StartsOn = *startsOn
	}
	return p, err
}

// Period returns one period or shared.ErrPeriodNotFound.
func (r *RecordStore) Period(ctx context.Context, id string) (*academic.Period, error) {
	p, err := scanPeriod(r.conn.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	return &p, nil
}

// ActivePeriod returns the active period of the latest school year,
// or shared.ErrNoActivePeriod.
func (r *RecordStore) ActivePeriod(ctx context.Context) (*academic.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods
		WHERE is_active
		ORDER BY school_year DESC, ` + semesterOrder + ` DESC
		LIMIT 1`

	p, err := scanPeriod(r.conn.QueryRow(ctx, query))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoActivePeriod
		}
		return nil, fmt.Errorf("failed to get active period: %w", err)
	}
	return &p, nil
}

// Periods returns all periods in chronological order.
func (r *RecordStore) Periods(ctx context.Context) ([]academic.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods ORDER BY school_year, ` + semesterOrder

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	periods, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (academic.Period, error) {
		return scanPeriod(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan periods: %w", err)
	}
	return periods, nil
}
