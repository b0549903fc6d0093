package query

import (
	"time"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTO
// Представление результатов для HTTP и CLI. Округление до 2 знаков
// происходит только здесь; доменные значения хранят полную точность.
// ══════════════════════════════════════════════════════════════════════════════

// PeriodDTO - учебный период.
type PeriodDTO struct {
	ID         string `json:"id"`
	SchoolYear string `json:"school_year"`
	Semester   string `json:"semester"`
	Active     bool   `json:"active"`
	Label      string `json:"label"`
}

// NewPeriodDTO конвертирует период.
func NewPeriodDTO(p academic.Period) PeriodDTO {
	return PeriodDTO{
		ID:         p.ID,
		SchoolYear: p.SchoolYear,
		Semester:   string(p.Semester),
		Active:     p.Active,
		Label:      p.Label(),
	}
}

// AverageDTO - среднее с признаком наличия данных.
type AverageDTO struct {
	// Value - среднее, округлённое до 2 знаков; 0 при отсутствии оценок.
	Value float64 `json:"value"`

	// HasData - false, если оценок не было и Value - значение по умолчанию.
	HasData bool `json:"has_data"`

	// Count - количество учтённых оценок.
	Count int `json:"count"`
}

// NewAverageDTO конвертирует среднее.
func NewAverageDTO(a academic.Average) AverageDTO {
	return AverageDTO{Value: a.Rounded(), HasData: a.HasData(), Count: a.Count}
}

// SubjectAverageDTO - ответ на запрос среднего по предмету.
type SubjectAverageDTO struct {
	StudentID string     `json:"student_id"`
	SubjectID string     `json:"subject_id"`
	Period    PeriodDTO  `json:"period"`
	Kind      string     `json:"kind,omitempty"`
	Average   AverageDTO `json:"average"`
	KKM       float64    `json:"kkm"`
	Mastery   string     `json:"mastery"`
}

// AttendanceDTO - пропуски и процент посещаемости.
type AttendanceDTO struct {
	StudentID  string    `json:"student_id"`
	Period     PeriodDTO `json:"period"`
	Sick       int       `json:"sick"`
	Permission int       `json:"permission"`
	Unexcused  int       `json:"unexcused"`
	Total      int       `json:"total_absences"`
	Recorded   bool      `json:"recorded"`
	SchoolDays int       `json:"assumed_school_days"`
	Rate       float64   `json:"rate"`
}

// NewAttendanceDTO конвертирует сводку посещаемости.
func NewAttendanceDTO(studentID string, period academic.Period, s AttendanceSummary) AttendanceDTO {
	return AttendanceDTO{
		StudentID:  studentID,
		Period:     NewPeriodDTO(period),
		Sick:       s.Tally.Sick,
		Permission: s.Tally.Permission,
		Unexcused:  s.Tally.Unexcused,
		Total:      s.Tally.TotalAbsences(),
		Recorded:   s.Recorded,
		SchoolDays: s.SchoolDays,
		Rate:       academic.Round2(s.Rate),
	}
}

// SubjectSummaryDTO - строка табеля по предмету.
type SubjectSummaryDTO struct {
	SubjectID string     `json:"subject_id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	KKM       float64    `json:"kkm"`
	Knowledge AverageDTO `json:"knowledge"`
	Skill     AverageDTO `json:"skill"`
	Final     AverageDTO `json:"final"`
	Predicate string     `json:"predicate"`
	Mastery   string     `json:"mastery"`
}

// NewSubjectSummaryDTO конвертирует итог по предмету.
func NewSubjectSummaryDTO(s academic.SubjectSummary) SubjectSummaryDTO {
	return SubjectSummaryDTO{
		SubjectID: s.Subject.ID,
		Code:      s.Subject.Code,
		Name:      s.Subject.Name,
		KKM:       s.Subject.KKM,
		Knowledge: NewAverageDTO(s.Knowledge),
		Skill:     NewAverageDTO(s.Skill),
		Final:     NewAverageDTO(s.Final),
		Predicate: s.Predicate(),
		Mastery:   string(s.Mastery),
	}
}

// StudentSummaryDTO - сводка ученика за период.
type StudentSummaryDTO struct {
	StudentID  string              `json:"student_id"`
	NIS        string              `json:"nis"`
	Name       string              `json:"name"`
	ClassName  string              `json:"class_name"`
	Period     PeriodDTO           `json:"period"`
	Subjects   []SubjectSummaryDTO `json:"subjects"`
	Attendance AttendanceDTO       `json:"attendance"`
}

// RankingEntryDTO - строка рейтинга.
type RankingEntryDTO struct {
	Position  int        `json:"position"`
	StudentID string     `json:"student_id"`
	Name      string     `json:"name"`
	Average   AverageDTO `json:"average"`
}

// NewRankingDTO конвертирует рейтинг.
func NewRankingDTO(r *ranking.Ranking) []RankingEntryDTO {
	all := r.All()
	result := make([]RankingEntryDTO, len(all))
	for i, e := range all {
		result[i] = RankingEntryDTO{
			Position:  int(e.Position),
			StudentID: e.StudentID,
			Name:      e.Name,
			Average:   NewAverageDTO(e.Average),
		}
	}
	return result
}

// DistributionBucketDTO - одна буквенная полоса.
type DistributionBucketDTO struct {
	Grade string  `json:"grade"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// DistributionDTO - распределение оценок.
type DistributionDTO struct {
	Total   int                     `json:"total"`
	Buckets []DistributionBucketDTO `json:"buckets"`
}

// NewDistributionDTO конвертирует распределение; полосы идут от A к E.
func NewDistributionDTO(d ranking.Distribution) DistributionDTO {
	buckets := make([]DistributionBucketDTO, 0, len(academic.LetterGrades))
	for _, g := range academic.LetterGrades {
		buckets = append(buckets, DistributionBucketDTO{
			Grade: string(g),
			Count: d.Counts[g],
			Share: academic.Round2(d.Share(g)),
		})
	}
	return DistributionDTO{Total: d.Total, Buckets: buckets}
}

// TrendPointDTO - точка динамики.
type TrendPointDTO struct {
	Period   PeriodDTO `json:"period"`
	Value    float64   `json:"value"`
	Delta    float64   `json:"delta"`
	HasPrior bool      `json:"has_prior"`
}

// NewTrendDTO конвертирует динамику.
func NewTrendDTO(points []ranking.TrendPoint) []TrendPointDTO {
	result := make([]TrendPointDTO, len(points))
	for i, p := range points {
		result[i] = TrendPointDTO{
			Period:   NewPeriodDTO(p.Period),
			Value:    academic.Round2(p.Value),
			Delta:    academic.Round2(p.Delta),
			HasPrior: p.HasPrior,
		}
	}
	return result
}

// DashboardDTO - сводка по группе.
type DashboardDTO struct {
	SubjectID     string            `json:"subject_id"`
	SubjectName   string            `json:"subject_name"`
	KKM           float64           `json:"kkm"`
	Period        PeriodDTO         `json:"period"`
	CohortSize    int               `json:"cohort_size"`
	CohortAverage AverageDTO        `json:"cohort_average"`
	MasteredCount int               `json:"mastered_count"`
	Ranking       []RankingEntryDTO `json:"ranking"`
	Distribution  DistributionDTO   `json:"distribution"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// NewDashboardDTO конвертирует сводку.
func NewDashboardDTO(d *Dashboard) DashboardDTO {
	return DashboardDTO{
		SubjectID:     d.Subject.ID,
		SubjectName:   d.Subject.Name,
		KKM:           d.Subject.KKM,
		Period:        NewPeriodDTO(d.Period),
		CohortSize:    d.Ranking.Count(),
		CohortAverage: NewAverageDTO(d.CohortAverage),
		MasteredCount: d.MasteredCount,
		Ranking:       NewRankingDTO(d.Ranking),
		Distribution:  NewDistributionDTO(d.Distribution),
		GeneratedAt:   d.GeneratedAt,
	}
}
