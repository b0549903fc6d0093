package ranking

import (
	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE DISTRIBUTION
// ══════════════════════════════════════════════════════════════════════════════

// Distribution - количество оценок в каждой буквенной полосе.
// Считаются отдельные оценки, а не ученики: один ученик может попасть
// в несколько полос.
type Distribution struct {
	Counts map[academic.LetterGrade]int
	Total  int
}

// NewDistribution создаёт пустое распределение со всеми полосами.
func NewDistribution() Distribution {
	counts := make(map[academic.LetterGrade]int, len(academic.LetterGrades))
	for _, g := range academic.LetterGrades {
		counts[g] = 0
	}
	return Distribution{Counts: counts}
}

// Add относит одну оценку к полосе.
func (d *Distribution) Add(score float64) {
	d.Counts[academic.Predicate(score)]++
	d.Total++
}

// Share возвращает долю полосы в процентах; 0 для пустого распределения.
func (d Distribution) Share(g academic.LetterGrade) float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Counts[g]) / float64(d.Total) * 100
}

// ComputeGradeDistribution раскладывает все оценки по полосам.
// Сумма по полосам всегда равна количеству оценок.
func ComputeGradeDistribution(entries []academic.GradeEntry) Distribution {
	dist := NewDistribution()
	for _, e := range entries {
		dist.Add(e.Score)
	}
	return dist
}

// ══════════════════════════════════════════════════════════════════════════════
// TREND
// ══════════════════════════════════════════════════════════════════════════════

// TrendPoint - значение показателя в одном периоде и изменение к предыдущему.
type TrendPoint struct {
	Period academic.Period
	Value  float64
	Delta  float64

	// HasPrior - false для первой точки: у неё нет предыдущего периода,
	// и Delta равна 0 по позиции, а не по значению.
	HasPrior bool
}

// ComputeTrend строит ряд изменений. Периоды должны быть уже упорядочены
// хронологически: функция их не сортирует и порядок не проверяет.
func ComputeTrend(periods []academic.Period, values []float64) []TrendPoint {
	n := len(periods)
	if len(values) < n {
		n = len(values)
	}
	points := make([]TrendPoint, n)
	for i := 0; i < n; i++ {
		points[i] = TrendPoint{Period: periods[i], Value: values[i]}
		if i > 0 {
			points[i].Delta = values[i] - values[i-1]
			points[i].HasPrior = true
		}
	}
	return points
}
