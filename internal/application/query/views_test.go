package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

func newViews(t *testing.T) *Views {
	t.Helper()
	store, _ := fixture(t)
	store.SetAttendance(academic.AttendanceTally{StudentID: "s2", PeriodID: "p1", Sick: 2, Unexcused: 1})
	agg := NewAggregationService(store, 120)
	return NewViews(agg, NewStatisticsService(agg))
}

func TestViews_SubjectAverage(t *testing.T) {
	v := newViews(t)
	ctx := context.Background()

	dto, err := v.SubjectAverage(ctx, SubjectAverageQuery{StudentID: "s1", SubjectID: "sub1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", dto.Period.ID)
	assert.InDelta(t, 85.0, dto.Average.Value, 1e-9)
	assert.Equal(t, string(academic.Mastered), dto.Mastery)

	dto, err = v.SubjectAverage(ctx, SubjectAverageQuery{StudentID: "s2", SubjectID: "sub1", Kind: academic.KindSkill})
	require.NoError(t, err)
	assert.InDelta(t, 70.0, dto.Average.Value, 1e-9)
	assert.Equal(t, "skill", dto.Kind)
	assert.Equal(t, string(academic.NotMastered), dto.Mastery)
}

func TestViews_SubjectAverage_Errors(t *testing.T) {
	v := newViews(t)
	ctx := context.Background()

	_, err := v.SubjectAverage(ctx, SubjectAverageQuery{StudentID: "s1"})
	assert.True(t, shared.IsValidation(err))

	_, err = v.SubjectAverage(ctx, SubjectAverageQuery{StudentID: "s1", SubjectID: "sub1", Kind: "attitude"})
	assert.True(t, shared.IsValidation(err))

	_, err = v.SubjectAverage(ctx, SubjectAverageQuery{StudentID: "ghost", SubjectID: "sub1"})
	assert.True(t, shared.IsNotFound(err))

	_, err = v.SubjectAverage(ctx, SubjectAverageQuery{StudentID: "s1", SubjectID: "sub1", PeriodID: "p9"})
	assert.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

func TestViews_StudentSummary(t *testing.T) {
	v := newViews(t)

	dto, err := v.StudentSummary(context.Background(), StudentQuery{StudentID: "s2"})
	require.NoError(t, err)
	require.Len(t, dto.Subjects, 2)
	assert.InDelta(t, 60.0, dto.Subjects[0].Knowledge.Value, 1e-9)
	assert.InDelta(t, 70.0, dto.Subjects[0].Skill.Value, 1e-9)
	assert.Equal(t, 3, dto.Attendance.Total)
	assert.True(t, dto.Attendance.Recorded)
	assert.InDelta(t, 97.5, dto.Attendance.Rate, 1e-9)
}

func TestViews_Attendance_NoRecord(t *testing.T) {
	v := newViews(t)

	dto, err := v.Attendance(context.Background(), StudentQuery{StudentID: "s3"})
	require.NoError(t, err)
	assert.False(t, dto.Recorded)
	assert.Equal(t, 0, dto.Total)
	assert.InDelta(t, 100.0, dto.Rate, 1e-9)
}

func TestViews_Ranking(t *testing.T) {
	v := newViews(t)
	ctx := context.Background()

	dto, err := v.Ranking(ctx, CohortQuery{ClassID: "c1", SubjectID: "sub1"})
	require.NoError(t, err)
	require.Len(t, dto.Entries, 3)
	assert.Equal(t, "s1", dto.Entries[0].StudentID)
	assert.Equal(t, 1, dto.Entries[0].Position)

	_, err = v.Ranking(ctx, CohortQuery{ClassID: "nope", SubjectID: "sub1"})
	assert.ErrorIs(t, err, shared.ErrClassNotFound)

	_, err = v.Ranking(ctx, CohortQuery{ClassID: "c1"})
	assert.True(t, shared.IsValidation(err))
}

func TestViews_Trend(t *testing.T) {
	v := newViews(t)
	ctx := context.Background()

	dto, err := v.Trend(ctx, TrendQuery{StudentID: "s2", Metric: TrendMetricAbsences})
	require.NoError(t, err)
	require.Len(t, dto.Points, 1)
	assert.InDelta(t, 3.0, dto.Points[0].Value, 1e-9)
	assert.False(t, dto.Points[0].HasPrior)

	dto, err = v.Trend(ctx, TrendQuery{StudentID: "s1", SubjectID: "sub2"})
	require.NoError(t, err)
	assert.Equal(t, TrendMetricAverage, dto.Metric)

	_, err = v.Trend(ctx, TrendQuery{StudentID: "s1"})
	assert.True(t, shared.IsValidation(err))

	_, err = v.Trend(ctx, TrendQuery{StudentID: "s1", Metric: "rank"})
	assert.True(t, shared.IsValidation(err))
}

func TestViews_Dashboard(t *testing.T) {
	v := newViews(t)

	dto, err := v.Dashboard(context.Background(), CohortQuery{SubjectID: "sub2"})
	require.NoError(t, err)
	assert.Equal(t, 1, dto.MasteredCount)
}
