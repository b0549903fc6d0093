package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATASET IMPORT
// ══════════════════════════════════════════════════════════════════════════════

// ImportResult reports how many rows each table received.
type ImportResult struct {
	Tables map[string]int
}

// Total returns the number of upserted rows across all tables.
func (r ImportResult) Total() int {
	total := 0
	for _, n := range r.Tables {
		total += n
	}
	return total
}

// Import upserts a dataset in one transaction. Re-importing the same
// dataset is idempotent. Activating a period deactivates the other periods
// of its school year first so the partial unique index holds.
func (r *RecordStore) Import(ctx context.Context, ds academic.Dataset) (ImportResult, error) {
	result := ImportResult{Tables: make(map[string]int)}

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		for _, c := range ds.Classes {
			batch.Queue(`
				INSERT INTO classes (id, name) VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
				c.ID, c.Name)
		}
		result.Tables["classes"] = len(ds.Classes)

		for _, st := range ds.Students {
			batch.Queue(`
				INSERT INTO students (id, nis, name, class_id, status) VALUES ($1, $2, $3, NULLIF($4, ''), $5)
				ON CONFLICT (id) DO UPDATE SET nis = EXCLUDED.nis, name = EXCLUDED.name,
					class_id = EXCLUDED.class_id, status = EXCLUDED.status`,
				st.ID, st.NIS, st.Name, st.ClassID, string(st.Status))
		}
		result.Tables["students"] = len(ds.Students)

		for _, p := range ds.Periods {
			if p.Active {
				batch.Queue(`UPDATE periods SET is_active = FALSE WHERE school_year = $1 AND id <> $2`, p.SchoolYear, p.ID)
			}
			batch.Queue(`
				INSERT INTO periods (id, school_year, semester, is_active, starts_on) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET school_year = EXCLUDED.school_year, semester = EXCLUDED.semester,
					is_active = EXCLUDED.is_active, starts_on = EXCLUDED.starts_on`,
				p.ID, p.SchoolYear, string(p.Semester), p.Active, nullableDate(p.StartsOn))
		}
		result.Tables["periods"] = len(ds.Periods)

		for _, sub := range ds.Subjects {
			batch.Queue(`
				INSERT INTO subjects (id, code, name, kkm) VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, kkm = EXCLUDED.kkm`,
				sub.ID, sub.Code, sub.Name, sub.KKM)
		}
		result.Tables["subjects"] = len(ds.Subjects)

		for _, c := range ds.Components {
			batch.Queue(`
				INSERT INTO grade_components (id, subject_id, period_id, name, kind) VALUES ($1, $2, $3, $4, NULLIF($5, ''))
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind`,
				c.ID, c.SubjectID, c.PeriodID, c.Name, string(c.Kind))
		}
		result.Tables["grade_components"] = len(ds.Components)

		for _, g := range ds.Grades {
			batch.Queue(`
				INSERT INTO grade_entries (id, student_id, subject_id, period_id, component_id, score, recorded_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score, recorded_at = EXCLUDED.recorded_at`,
				g.ID, g.StudentID, g.SubjectID, g.PeriodID, g.ComponentID, g.Score, recordedAt(g.RecordedAt))
		}
		result.Tables["grade_entries"] = len(ds.Grades)

		for _, t := range ds.Attendance {
			batch.Queue(`
				INSERT INTO attendance_tallies (student_id, period_id, sick, permission, unexcused)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (student_id, period_id) DO UPDATE SET sick = EXCLUDED.sick,
					permission = EXCLUDED.permission, unexcused = EXCLUDED.unexcused`,
				t.StudentID, t.PeriodID, t.Sick, t.Permission, t.Unexcused)
		}
		result.Tables["attendance_tallies"] = len(ds.Attendance)

		for _, a := range ds.Achievements {
			batch.Queue(`
				INSERT INTO achievements (id, student_id, period_id, title, level, category, rank, achieved_on)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, level = EXCLUDED.level,
					category = EXCLUDED.category, rank = EXCLUDED.rank, achieved_on = EXCLUDED.achieved_on`,
				a.ID, a.StudentID, a.PeriodID, a.Title, string(a.Level), a.Category, a.Rank, a.AchievedOn)
		}
		result.Tables["achievements"] = len(ds.Achievements)

		for _, a := range ds.Attitudes {
			batch.Queue(`
				INSERT INTO attitude_records (id, student_id, period_id, aspect, rating, description)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET rating = EXCLUDED.rating, description = EXCLUDED.description`,
				a.ID, a.StudentID, a.PeriodID, string(a.Aspect), a.Rating, a.Description)
		}
		result.Tables["attitude_records"] = len(ds.Attitudes)

		for _, m := range ds.Extracurricular {
			batch.Queue(`
				INSERT INTO extracurricular_marks (id, student_id, period_id, activity, mark, notes)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET activity = EXCLUDED.activity, mark = EXCLUDED.mark, notes = EXCLUDED.notes`,
				m.ID, m.StudentID, m.PeriodID, m.Activity, m.Mark, m.Notes)
		}
		result.Tables["extracurricular_marks"] = len(ds.Extracurricular)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to import dataset: %w", err)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func recordedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
