package report

import (
	"context"
	"fmt"
	"time"

	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

// ══════════════════════════════════════════════════════════════════════════════
// BUNDLES
// ══════════════════════════════════════════════════════════════════════════════

// StudentBundle - все данные табеля одного ученика.
// Отключённые или отсутствующие разделы - пустые коллекции, а не ошибки.
type StudentBundle struct {
	Student         academic.Student
	Subjects        []academic.SubjectSummary
	Attitude        []academic.AttitudeRecord
	Achievements    []academic.AchievementRecord
	Attendance      query.AttendanceSummary
	Extracurricular []academic.ExtracurricularMark
}

// Document - вход шаблона: 1..N учеников одного периода.
type Document struct {
	Mode        Mode
	Period      academic.Period
	GeneratedAt time.Time
	Include     Include
	Students    []StudentBundle
}

// DataCount - количество учеников в отчёте.
func (d *Document) DataCount() int {
	return len(d.Students)
}

// ══════════════════════════════════════════════════════════════════════════════
// COLLECTOR
// ══════════════════════════════════════════════════════════════════════════════

// Collector собирает документ через движок агрегации.
type Collector struct {
	agg   *query.AggregationService
	store academic.RecordStore
}

// NewCollector создаёт сборщик.
func NewCollector(agg *query.AggregationService) *Collector {
	return &Collector{agg: agg, store: agg.Store()}
}

// Collect проверяет предусловия запроса и собирает данные всех учеников.
// Пустой класс или пустая школа - не ошибка: документ будет без учеников.
func (c *Collector) Collect(ctx context.Context, req Request, period academic.Period, now time.Time) (*Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	students, err := c.students(ctx, req, period)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Mode:        req.Mode,
		Period:      period,
		GeneratedAt: now,
		Include:     req.Include,
		Students:    make([]StudentBundle, 0, len(students)),
	}
	for _, st := range students {
		bundle, err := c.bundle(ctx, st, period, req.Include)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", st.ID, err)
		}
		doc.Students = append(doc.Students, bundle)
	}
	return doc, nil
}

func (c *Collector) students(ctx context.Context, req Request, period academic.Period) ([]academic.Student, error) {
	if req.Mode == ModeSingle {
		st, err := query.RequireStudent(ctx, c.store, req.StudentID)
		if err != nil {
			return nil, err
		}
		return []academic.Student{*st}, nil
	}

	cohort := req.Cohort()
	if err := query.RequireCohort(ctx, c.store, cohort); err != nil {
		return nil, err
	}
	students, err := c.store.Students(ctx, cohort, period.ID)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	return students, nil
}

func (c *Collector) bundle(ctx context.Context, st academic.Student, period academic.Period, inc Include) (StudentBundle, error) {
	b := StudentBundle{
		Student:         st,
		Attitude:        []academic.AttitudeRecord{},
		Achievements:    []academic.AchievementRecord{},
		Extracurricular: []academic.ExtracurricularMark{},
	}

	subjects, err := c.agg.StudentSubjects(ctx, st.ID, period)
	if err != nil {
		return b, err
	}
	b.Subjects = subjects

	if inc.Attitude {
		records, err := c.store.AttitudeRecords(ctx, st.ID, period.ID)
		if err != nil {
			return b, fmt.Errorf("load attitude: %w", err)
		}
		if records != nil {
			b.Attitude = records
		}
	}

	if inc.Achievements {
		records, err := c.store.Achievements(ctx, st.ID, period.ID)
		if err != nil {
			return b, fmt.Errorf("load achievements: %w", err)
		}
		if records != nil {
			b.Achievements = records
		}
	}

	if inc.Attendance {
		att, err := c.agg.Attendance(ctx, st.ID, period)
		if err != nil {
			return b, err
		}
		b.Attendance = att
	}

	if inc.Extracurricular {
		marks, err := c.store.ExtracurricularMarks(ctx, st.ID, period.ID)
		if err != nil {
			return b, fmt.Errorf("load extracurricular: %w", err)
		}
		if marks != nil {
			b.Extracurricular = marks
		}
	}

	return b, nil
}
