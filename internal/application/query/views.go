package query

import (
	"context"
	"fmt"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VIEWS
// Запросы чтения для HTTP и CLI. Каждый запрос сначала проверяет параметры,
// затем разрешает период (пустой - активный) и предусловия, и только потом
// вызывает движок агрегации.
// ══════════════════════════════════════════════════════════════════════════════

// Views объединяет сервисы агрегации и статистики для внешних интерфейсов.
type Views struct {
	agg   *AggregationService
	stats *StatisticsService
	store academic.RecordStore
}

// NewViews создаёт фасад запросов.
func NewViews(agg *AggregationService, stats *StatisticsService) *Views {
	return &Views{agg: agg, stats: stats, store: agg.Store()}
}

func invalid(op, msg string) error {
	return shared.NewDomainError("query", op, shared.ErrInvalidInput, msg)
}

// ─────────────────────────────────────────────────────────────────────────────
// Subject average
// ─────────────────────────────────────────────────────────────────────────────

// SubjectAverageQuery - среднее ученика по предмету.
type SubjectAverageQuery struct {
	StudentID string
	SubjectID string
	PeriodID  string // пусто - активный период

	// Kind ограничивает компоненты (knowledge/skill); пусто - все.
	Kind academic.ComponentKind
}

// Validate проверяет параметры запроса.
func (q SubjectAverageQuery) Validate() error {
	if q.StudentID == "" || q.SubjectID == "" {
		return invalid("SubjectAverage", "student_id and subject_id are required")
	}
	if !q.Kind.IsValid() {
		return invalid("SubjectAverage", fmt.Sprintf("unknown component kind %q", q.Kind))
	}
	return nil
}

// SubjectAverage возвращает среднее с классификацией освоения.
func (v *Views) SubjectAverage(ctx context.Context, q SubjectAverageQuery) (*SubjectAverageDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	period, err := ResolvePeriod(ctx, v.store, q.PeriodID)
	if err != nil {
		return nil, err
	}
	if _, err := RequireStudent(ctx, v.store, q.StudentID); err != nil {
		return nil, err
	}
	subject, err := RequireSubject(ctx, v.store, q.SubjectID)
	if err != nil {
		return nil, err
	}

	var filter academic.ComponentFilter
	if q.Kind != academic.KindUnspecified {
		filter = academic.FilterForKind(q.Kind)
	}
	avg, err := v.agg.SubjectAverage(ctx, q.StudentID, q.SubjectID, period, filter)
	if err != nil {
		return nil, err
	}

	return &SubjectAverageDTO{
		StudentID: q.StudentID,
		SubjectID: q.SubjectID,
		Period:    NewPeriodDTO(period),
		Kind:      string(q.Kind),
		Average:   NewAverageDTO(avg),
		KKM:       subject.KKM,
		Mastery:   string(academic.MasteryFor(avg, subject.KKM)),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Student views
// ─────────────────────────────────────────────────────────────────────────────

// StudentQuery адресует ученика в периоде.
type StudentQuery struct {
	StudentID string
	PeriodID  string
}

// Validate проверяет параметры запроса.
func (q StudentQuery) Validate() error {
	if q.StudentID == "" {
		return invalid("Student", "student_id is required")
	}
	return nil
}

// Attendance возвращает пропуски и процент посещаемости.
func (v *Views) Attendance(ctx context.Context, q StudentQuery) (*AttendanceDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	period, err := ResolvePeriod(ctx, v.store, q.PeriodID)
	if err != nil {
		return nil, err
	}
	if _, err := RequireStudent(ctx, v.store, q.StudentID); err != nil {
		return nil, err
	}

	summary, err := v.agg.Attendance(ctx, q.StudentID, period)
	if err != nil {
		return nil, err
	}
	dto := NewAttendanceDTO(q.StudentID, period, summary)
	return &dto, nil
}

// StudentSummary возвращает итоги ученика по всем предметам и посещаемость.
func (v *Views) StudentSummary(ctx context.Context, q StudentQuery) (*StudentSummaryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	period, err := ResolvePeriod(ctx, v.store, q.PeriodID)
	if err != nil {
		return nil, err
	}
	student, err := RequireStudent(ctx, v.store, q.StudentID)
	if err != nil {
		return nil, err
	}

	subjects, err := v.agg.StudentSubjects(ctx, student.ID, period)
	if err != nil {
		return nil, err
	}
	attendance, err := v.agg.Attendance(ctx, student.ID, period)
	if err != nil {
		return nil, err
	}

	dto := &StudentSummaryDTO{
		StudentID:  student.ID,
		NIS:        student.NIS,
		Name:       student.Name,
		ClassName:  student.ClassName,
		Period:     NewPeriodDTO(period),
		Subjects:   make([]SubjectSummaryDTO, 0, len(subjects)),
		Attendance: NewAttendanceDTO(student.ID, period, attendance),
	}
	for _, s := range subjects {
		dto.Subjects = append(dto.Subjects, NewSubjectSummaryDTO(s))
	}
	return dto, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cohort views
// ─────────────────────────────────────────────────────────────────────────────

// CohortQuery адресует группу учеников и предмет в периоде.
type CohortQuery struct {
	ClassID         string // пусто - вся школа
	SubjectID       string
	PeriodID        string
	IncludeInactive bool
}

// Cohort возвращает фильтр группы.
func (q CohortQuery) Cohort() academic.CohortFilter {
	return academic.CohortFilter{ClassID: q.ClassID, IncludeInactive: q.IncludeInactive}
}

// RankingResultDTO - рейтинг группы по предмету.
type RankingResultDTO struct {
	SubjectID string            `json:"subject_id"`
	ClassID   string            `json:"class_id,omitempty"`
	Period    PeriodDTO         `json:"period"`
	Entries   []RankingEntryDTO `json:"entries"`
}

// Ranking ранжирует группу по среднему по предмету.
func (v *Views) Ranking(ctx context.Context, q CohortQuery) (*RankingResultDTO, error) {
	if q.SubjectID == "" {
		return nil, invalid("Ranking", "subject_id is required")
	}
	period, err := v.cohortPreconditions(ctx, q)
	if err != nil {
		return nil, err
	}
	if _, err := RequireSubject(ctx, v.store, q.SubjectID); err != nil {
		return nil, err
	}

	r, err := v.stats.RankStudents(ctx, q.Cohort(), q.SubjectID, period)
	if err != nil {
		return nil, err
	}
	return &RankingResultDTO{
		SubjectID: q.SubjectID,
		ClassID:   q.ClassID,
		Period:    NewPeriodDTO(period),
		Entries:   NewRankingDTO(r),
	}, nil
}

// Distribution раскладывает оценки группы по полосам A-E.
// Пустой SubjectID означает все предметы.
func (v *Views) Distribution(ctx context.Context, q CohortQuery) (*DistributionDTO, error) {
	period, err := v.cohortPreconditions(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.SubjectID != "" {
		if _, err := RequireSubject(ctx, v.store, q.SubjectID); err != nil {
			return nil, err
		}
	}

	d, err := v.stats.GradeDistribution(ctx, q.Cohort(), q.SubjectID, period)
	if err != nil {
		return nil, err
	}
	dto := NewDistributionDTO(d)
	return &dto, nil
}

// Dashboard строит сводку группы по предмету.
func (v *Views) Dashboard(ctx context.Context, q CohortQuery) (*DashboardDTO, error) {
	if q.SubjectID == "" {
		return nil, invalid("Dashboard", "subject_id is required")
	}
	period, err := v.cohortPreconditions(ctx, q)
	if err != nil {
		return nil, err
	}
	subject, err := RequireSubject(ctx, v.store, q.SubjectID)
	if err != nil {
		return nil, err
	}

	d, err := v.stats.Dashboard(ctx, q.Cohort(), *subject, period)
	if err != nil {
		return nil, err
	}
	dto := NewDashboardDTO(d)
	return &dto, nil
}

func (v *Views) cohortPreconditions(ctx context.Context, q CohortQuery) (academic.Period, error) {
	period, err := ResolvePeriod(ctx, v.store, q.PeriodID)
	if err != nil {
		return academic.Period{}, err
	}
	if err := RequireCohort(ctx, v.store, q.Cohort()); err != nil {
		return academic.Period{}, err
	}
	return period, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Trend
// ─────────────────────────────────────────────────────────────────────────────

// Метрики тренда.
const (
	TrendMetricAverage  = "average"
	TrendMetricAbsences = "absences"
)

// TrendQuery - динамика ученика по периодам.
type TrendQuery struct {
	StudentID string
	Metric    string // average (нужен SubjectID) или absences
	SubjectID string

	// PeriodIDs задаёт порядок; пусто - все периоды хронологически.
	PeriodIDs []string
}

// Validate проверяет параметры запроса.
func (q *TrendQuery) Validate() error {
	if q.StudentID == "" {
		return invalid("Trend", "student_id is required")
	}
	if q.Metric == "" {
		q.Metric = TrendMetricAverage
	}
	switch q.Metric {
	case TrendMetricAverage:
		if q.SubjectID == "" {
			return invalid("Trend", "subject_id is required for the average metric")
		}
	case TrendMetricAbsences:
	default:
		return invalid("Trend", fmt.Sprintf("unknown metric %q", q.Metric))
	}
	return nil
}

// TrendResultDTO - динамика по периодам.
type TrendResultDTO struct {
	StudentID string          `json:"student_id"`
	SubjectID string          `json:"subject_id,omitempty"`
	Metric    string          `json:"metric"`
	Points    []TrendPointDTO `json:"points"`
}

// Trend считает значение метрики по каждому периоду и изменение к предыдущему.
// Порядок периодов сохраняется как задан.
func (v *Views) Trend(ctx context.Context, q TrendQuery) (*TrendResultDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if _, err := RequireStudent(ctx, v.store, q.StudentID); err != nil {
		return nil, err
	}

	var selector TrendSelector
	if q.Metric == TrendMetricAbsences {
		selector = v.stats.AbsenceSelector(q.StudentID)
	} else {
		if _, err := RequireSubject(ctx, v.store, q.SubjectID); err != nil {
			return nil, err
		}
		selector = v.stats.SubjectAverageSelector(q.StudentID, q.SubjectID)
	}

	periods, err := v.trendPeriods(ctx, q.PeriodIDs)
	if err != nil {
		return nil, err
	}

	points, err := v.stats.Trend(ctx, periods, selector)
	if err != nil {
		return nil, err
	}
	return &TrendResultDTO{
		StudentID: q.StudentID,
		SubjectID: q.SubjectID,
		Metric:    q.Metric,
		Points:    NewTrendDTO(points),
	}, nil
}

func (v *Views) trendPeriods(ctx context.Context, ids []string) ([]academic.Period, error) {
	if len(ids) == 0 {
		return v.store.Periods(ctx)
	}
	periods := make([]academic.Period, 0, len(ids))
	for _, id := range ids {
		p, err := v.store.Period(ctx, id)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *p)
	}
	return periods, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reference
// ─────────────────────────────────────────────────────────────────────────────

// Periods возвращает все периоды хронологически.
func (v *Views) Periods(ctx context.Context) ([]PeriodDTO, error) {
	periods, err := v.store.Periods(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]PeriodDTO, 0, len(periods))
	for _, p := range periods {
		result = append(result, NewPeriodDTO(p))
	}
	return result, nil
}
