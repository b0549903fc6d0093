package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RunsOnStartAndStops(t *testing.T) {
	s := New(Config{Tick: 10 * time.Millisecond, RunOnStart: true}, nil)
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, time.Hour))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	// Hourly job does not run again within the test.
	assert.Equal(t, int32(1), job.runs.Load())
	info := s.Jobs()
	require.Len(t, info, 1)
	assert.Equal(t, "@every 1h0m0s", info[0].Schedule)
	assert.Equal(t, 1, info[0].RunCount)
}

func TestScheduler_Register(t *testing.T) {
	s := New(DefaultConfig(), nil)
	require.NoError(t, s.Register(&countingJob{name: "a"}, time.Minute))
	assert.Error(t, s.Register(&countingJob{name: "a"}, time.Minute))
	assert.Error(t, s.Register(&countingJob{name: "b"}, 0))
}

func TestScheduler_RunNowRecordsFailure(t *testing.T) {
	s := New(DefaultConfig(), nil)
	job := &countingJob{name: "broken", err: errors.New("disk full")}
	require.NoError(t, s.Register(job, time.Minute))

	res, err := s.RunNow(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.EqualError(t, res.Error, "disk full")
	assert.Equal(t, 1, s.Jobs()[0].FailCount)

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_DoubleStart(t *testing.T) {
	s := New(DefaultConfig(), nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Error(t, s.Start(context.Background()))
}
