package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

func avg(v float64) academic.Average {
	return academic.Average{Value: v, Count: 1}
}

func TestRanking_SortByAverage(t *testing.T) {
	r := NewRanking()
	require.NoError(t, r.Add(&Entry{StudentID: "s3", Average: avg(70)}))
	require.NoError(t, r.Add(&Entry{StudentID: "s1", Average: avg(92.5)}))
	require.NoError(t, r.Add(&Entry{StudentID: "s2", Average: academic.Average{}}))
	require.NoError(t, r.Add(&Entry{StudentID: "s4", Average: avg(81)}))

	r.SortByAverage()

	all := r.All()
	require.Len(t, all, 4)
	for i, e := range all {
		assert.Equal(t, Position(i+1), e.Position)
		if i > 0 {
			assert.GreaterOrEqual(t, all[i-1].Average.Value, e.Average.Value)
		}
	}
	assert.Equal(t, "s1", all[0].StudentID)
	assert.Equal(t, "s2", all[3].StudentID)
}

func TestRanking_TiesBrokenByStudentID(t *testing.T) {
	build := func(order ...string) []*Entry {
		r := NewRanking()
		for _, id := range order {
			require.NoError(t, r.Add(&Entry{StudentID: id, Average: avg(80)}))
		}
		r.SortByAverage()
		return r.All()
	}

	a := build("s2", "s3", "s1")
	b := build("s3", "s1", "s2")

	for i := range a {
		assert.Equal(t, a[i].StudentID, b[i].StudentID)
		assert.Equal(t, Position(i+1), a[i].Position)
	}
	assert.Equal(t, "s1", a[0].StudentID)
}

func TestRanking_AddRejectsInvalid(t *testing.T) {
	r := NewRanking()
	assert.ErrorIs(t, r.Add(nil), ErrNilEntry)
	assert.ErrorIs(t, r.Add(&Entry{}), ErrInvalidStudentID)
	require.NoError(t, r.Add(&Entry{StudentID: "s1"}))
	assert.ErrorIs(t, r.Add(&Entry{StudentID: "s1"}), ErrDuplicateStudent)
}

func TestRanking_CohortAverageSkipsNoData(t *testing.T) {
	r := NewRanking()
	_ = r.Add(&Entry{StudentID: "s1", Average: avg(80)})
	_ = r.Add(&Entry{StudentID: "s2", Average: avg(60)})
	_ = r.Add(&Entry{StudentID: "s3"})

	cohort := r.CohortAverage()
	assert.InDelta(t, 70.0, cohort.Value, 1e-9)
	assert.Equal(t, 2, cohort.Count)
	assert.Equal(t, 1, r.MasteredCount(75))
	assert.Len(t, r.Top(2), 2)
	assert.Len(t, r.Top(10), 3)
}

func TestComputeGradeDistribution(t *testing.T) {
	scores := []float64{100, 90, 89.9, 80, 79, 70, 65, 60, 59.5, 0}
	entries := make([]academic.GradeEntry, len(scores))
	for i, s := range scores {
		entries[i] = academic.GradeEntry{Score: s}
	}

	dist := ComputeGradeDistribution(entries)

	assert.Equal(t, 2, dist.Counts[academic.GradeA])
	assert.Equal(t, 2, dist.Counts[academic.GradeB])
	assert.Equal(t, 2, dist.Counts[academic.GradeC])
	assert.Equal(t, 2, dist.Counts[academic.GradeD])
	assert.Equal(t, 2, dist.Counts[academic.GradeE])

	var sum int
	for _, n := range dist.Counts {
		sum += n
	}
	assert.Equal(t, len(entries), sum)
	assert.Equal(t, len(entries), dist.Total)
	assert.InDelta(t, 20.0, dist.Share(academic.GradeA), 1e-9)
}

func TestComputeGradeDistribution_Empty(t *testing.T) {
	dist := ComputeGradeDistribution(nil)
	assert.Equal(t, 0, dist.Total)
	assert.Len(t, dist.Counts, 5)
	assert.Equal(t, 0.0, dist.Share(academic.GradeB))
}

func TestComputeTrend(t *testing.T) {
	periods := []academic.Period{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}
	points := ComputeTrend(periods, []float64{80, 85, 82.5})

	require.Len(t, points, 3)
	assert.False(t, points[0].HasPrior)
	assert.Equal(t, 0.0, points[0].Delta)
	assert.True(t, points[1].HasPrior)
	assert.InDelta(t, 5.0, points[1].Delta, 1e-9)
	assert.InDelta(t, -2.5, points[2].Delta, 1e-9)
}

func TestComputeTrend_DoesNotReorder(t *testing.T) {
	periods := []academic.Period{{ID: "p2"}, {ID: "p1"}}
	points := ComputeTrend(periods, []float64{90, 70})

	assert.Equal(t, "p2", points[0].Period.ID)
	assert.InDelta(t, -20.0, points[1].Delta, 1e-9)
}
