package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS & RANKING SERVICE
// Статистика по группе учеников, построенная на повторных вызовах движка
// агрегации. Все результаты пересчитываются с нуля при каждом вызове.
// ══════════════════════════════════════════════════════════════════════════════

// StatisticsService строит рейтинги, распределения и динамику.
type StatisticsService struct {
	agg   *AggregationService
	store academic.RecordStore
}

// NewStatisticsService создаёт сервис статистики.
func NewStatisticsService(agg *AggregationService) *StatisticsService {
	return &StatisticsService{agg: agg, store: agg.Store()}
}

// RankStudents считает среднее каждого ученика группы по предмету и сортирует
// по убыванию. Длина рейтинга равна размеру группы; ученики без оценок
// получают среднее 0 и оказываются внизу.
func (s *StatisticsService) RankStudents(
	ctx context.Context,
	cohort academic.CohortFilter,
	subjectID string,
	period academic.Period,
) (*ranking.Ranking, error) {
	students, err := s.store.Students(ctx, cohort, period.ID)
	if err != nil {
		return nil, fmt.Errorf("load cohort: %w", err)
	}

	r := ranking.NewRanking()
	for _, st := range students {
		avg, err := s.agg.SubjectAverage(ctx, st.ID, subjectID, period, nil)
		if err != nil {
			return nil, fmt.Errorf("average for %s: %w", st.ID, err)
		}
		if err := r.Add(&ranking.Entry{StudentID: st.ID, Name: st.Name, Average: avg}); err != nil {
			return nil, fmt.Errorf("rank %s: %w", st.ID, err)
		}
	}

	r.SortByAverage()
	return r, nil
}

// GradeDistribution раскладывает все оценки группы за период по буквенным
// полосам. Пустой subjectID означает все предметы.
func (s *StatisticsService) GradeDistribution(
	ctx context.Context,
	cohort academic.CohortFilter,
	subjectID string,
	period academic.Period,
) (ranking.Distribution, error) {
	entries, err := s.store.CohortGradeEntries(ctx, cohort, subjectID, period.ID)
	if err != nil {
		return ranking.Distribution{}, fmt.Errorf("load cohort grades: %w", err)
	}
	return ranking.ComputeGradeDistribution(entries), nil
}

// TrendSelector вычисляет агрегат для одного периода.
type TrendSelector func(ctx context.Context, period academic.Period) (float64, error)

// Trend вычисляет агрегат по каждому периоду и изменение к предыдущему.
// Периоды должны быть отсортированы вызывающим кодом.
func (s *StatisticsService) Trend(ctx context.Context, periods []academic.Period, selector TrendSelector) ([]ranking.TrendPoint, error) {
	values := make([]float64, len(periods))
	for i, p := range periods {
		v, err := selector(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("trend value for period %s: %w", p.ID, err)
		}
		values[i] = v
	}
	return ranking.ComputeTrend(periods, values), nil
}

// SubjectAverageSelector - селектор среднего ученика по предмету.
func (s *StatisticsService) SubjectAverageSelector(studentID, subjectID string) TrendSelector {
	return func(ctx context.Context, p academic.Period) (float64, error) {
		avg, err := s.agg.SubjectAverage(ctx, studentID, subjectID, p, nil)
		if err != nil {
			return 0, err
		}
		return avg.Value, nil
	}
}

// AbsenceSelector - селектор суммарных пропусков ученика.
func (s *StatisticsService) AbsenceSelector(studentID string) TrendSelector {
	return func(ctx context.Context, p academic.Period) (float64, error) {
		att, err := s.agg.Attendance(ctx, studentID, p)
		if err != nil {
			return 0, err
		}
		return float64(att.Tally.TotalAbsences()), nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD
// ══════════════════════════════════════════════════════════════════════════════

// Dashboard - сводка по группе и предмету за период.
type Dashboard struct {
	Subject       academic.Subject
	Period        academic.Period
	Ranking       *ranking.Ranking
	Distribution  ranking.Distribution
	CohortAverage academic.Average
	MasteredCount int
	GeneratedAt   time.Time
}

// Dashboard параллельно строит рейтинг и распределение по одним и тем же данным.
func (s *StatisticsService) Dashboard(
	ctx context.Context,
	cohort academic.CohortFilter,
	subject academic.Subject,
	period academic.Period,
) (*Dashboard, error) {
	var (
		rk   *ranking.Ranking
		dist ranking.Distribution
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rk, err = s.RankStudents(gCtx, cohort, subject.ID, period)
		return err
	})
	g.Go(func() error {
		var err error
		dist, err = s.GradeDistribution(gCtx, cohort, subject.ID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dashboard{
		Subject:       subject,
		Period:        period,
		Ranking:       rk,
		Distribution:  dist,
		CohortAverage: rk.CohortAverage(),
		MasteredCount: rk.MasteredCount(subject.KKM),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}
