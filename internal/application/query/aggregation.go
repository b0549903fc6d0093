// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Каждый вызов заново выводит результат из текущего содержимого хранилища:
// кеша нет, поэтому устаревших данных тоже нет.
package query

import (
	"context"
	"fmt"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATION SERVICE
// Движок агрегации: превращает сырые записи хранилища в средние, процент
// посещаемости и статус освоения по ученику и предмету.
// ══════════════════════════════════════════════════════════════════════════════

// AggregationService - движок агрегации поверх RecordStore.
type AggregationService struct {
	store      academic.RecordStore
	schoolDays int
}

// NewAggregationService создаёт движок агрегации.
// schoolDays - предполагаемое число учебных дней в периоде.
func NewAggregationService(store academic.RecordStore, schoolDays int) *AggregationService {
	return &AggregationService{store: store, schoolDays: schoolDays}
}

// SchoolDays возвращает предполагаемое число учебных дней.
func (s *AggregationService) SchoolDays() int {
	return s.schoolDays
}

// Store возвращает хранилище, на котором работает движок.
func (s *AggregationService) Store() academic.RecordStore {
	return s.store
}

// SubjectAverage считает среднее ученика по предмету за период.
// filter == nil учитывает все компоненты.
func (s *AggregationService) SubjectAverage(
	ctx context.Context,
	studentID, subjectID string,
	period academic.Period,
	filter academic.ComponentFilter,
) (academic.Average, error) {
	entries, err := s.store.GradeEntries(ctx, studentID, subjectID, period.ID)
	if err != nil {
		return academic.Average{}, fmt.Errorf("load grade entries: %w", err)
	}
	if len(entries) == 0 {
		return academic.Average{}, nil
	}

	var index map[string]academic.GradeComponent
	if filter != nil {
		components, err := s.store.GradeComponents(ctx, subjectID, period.ID)
		if err != nil {
			return academic.Average{}, fmt.Errorf("load grade components: %w", err)
		}
		index = academic.ComponentIndex(components)
	}

	return academic.ComputeAverage(entries, index, filter), nil
}

// AttendanceSummary - пропуски и процент посещаемости ученика за период.
type AttendanceSummary struct {
	Tally      academic.AttendanceTally
	Recorded   bool
	SchoolDays int
	Rate       float64
}

// Attendance возвращает пропуски и процент посещаемости.
// Отсутствие записи - не ошибка: пропуски считаются нулевыми.
func (s *AggregationService) Attendance(ctx context.Context, studentID string, period academic.Period) (AttendanceSummary, error) {
	tally, err := s.store.AttendanceTally(ctx, studentID, period.ID)
	if err != nil {
		return AttendanceSummary{}, fmt.Errorf("load attendance: %w", err)
	}

	summary := AttendanceSummary{
		Tally:      academic.AttendanceTally{StudentID: studentID, PeriodID: period.ID},
		SchoolDays: s.schoolDays,
		Rate:       academic.ComputeAttendanceRate(tally, s.schoolDays),
	}
	if tally != nil {
		summary.Tally = *tally
		summary.Recorded = true
	}
	return summary, nil
}

// StudentSubjects строит итоги ученика по всем предметам за период.
func (s *AggregationService) StudentSubjects(ctx context.Context, studentID string, period academic.Period) ([]academic.SubjectSummary, error) {
	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	components, err := s.store.GradeComponents(ctx, "", period.ID)
	if err != nil {
		return nil, fmt.Errorf("load grade components: %w", err)
	}
	index := academic.ComponentIndex(components)

	summaries := make([]academic.SubjectSummary, 0, len(subjects))
	for _, subject := range subjects {
		entries, err := s.store.GradeEntries(ctx, studentID, subject.ID, period.ID)
		if err != nil {
			return nil, fmt.Errorf("load grade entries for %s: %w", subject.Code, err)
		}
		summaries = append(summaries, academic.SummarizeSubject(subject, entries, index))
	}
	return summaries, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PRECONDITIONS
// ══════════════════════════════════════════════════════════════════════════════

// ResolvePeriod возвращает период по ID, а при пустом ID - активный период.
// Активный период читается только на границе (HTTP/CLI); движок получает
// период явным параметром.
func ResolvePeriod(ctx context.Context, store academic.RecordStore, periodID string) (academic.Period, error) {
	if periodID == "" {
		p, err := store.ActivePeriod(ctx)
		if err != nil {
			return academic.Period{}, err
		}
		return *p, nil
	}
	p, err := store.Period(ctx, periodID)
	if err != nil {
		return academic.Period{}, err
	}
	return *p, nil
}

// RequireStudent проверяет существование ученика.
func RequireStudent(ctx context.Context, store academic.RecordStore, studentID string) (*academic.Student, error) {
	if studentID == "" {
		return nil, shared.NewDomainError("academic", "FindStudent", shared.ErrInvalidID, "student id is required")
	}
	return store.Student(ctx, studentID)
}

// RequireSubject проверяет существование предмета.
func RequireSubject(ctx context.Context, store academic.RecordStore, subjectID string) (*academic.Subject, error) {
	if subjectID == "" {
		return nil, shared.NewDomainError("academic", "FindSubject", shared.ErrInvalidID, "subject id is required")
	}
	return store.Subject(ctx, subjectID)
}

// RequireCohort проверяет, что класс существует (для фильтра по классу).
func RequireCohort(ctx context.Context, store academic.RecordStore, cohort academic.CohortFilter) error {
	if cohort.WholeSchool() {
		return nil
	}
	ok, err := store.ClassExists(ctx, cohort.ClassID)
	if err != nil {
		return fmt.Errorf("check class: %w", err)
	}
	if !ok {
		return shared.ErrClassNotFound
	}
	return nil
}
