// Package scheduler runs periodic maintenance jobs inside the API process.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Next returns the next run time after t.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rapor_scheduler_job_runs_total",
		Help: "Scheduled job executions by outcome.",
	}, []string{"job", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rapor_scheduler_job_duration_seconds",
		Help:    "Scheduled job duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains scheduler settings.
type Config struct {
	// Tick is how often due jobs are checked.
	Tick time.Duration

	// RunOnStart runs every job once right after Start.
	RunOnStart bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Tick: time.Second, RunOnStart: true}
}

type scheduledJob struct {
	job       Job
	schedule  IntervalSchedule
	nextRun   time.Time
	running   bool
	runCount  int
	failCount int
	last      *JobResult
}

// Scheduler manages and executes scheduled jobs. A job never overlaps
// with itself: a run that is still going when the job is due again
// postpones the next run.
type Scheduler struct {
	mu sync.Mutex

	cfg    Config
	logger *logger.Logger
	now    func() time.Time

	jobs    map[string]*scheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler.
func New(cfg Config, log *logger.Logger) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cfg:    cfg,
		logger: log.With(logger.Component("scheduler")),
		now:    time.Now,
		jobs:   make(map[string]*scheduledJob),
	}
}

// Register adds a job running every interval.
func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	schedule := IntervalSchedule{Interval: interval}
	next := schedule.Next(s.now())
	if s.cfg.RunOnStart {
		next = s.now()
	}
	s.jobs[job.Name()] = &scheduledJob{job: job, schedule: schedule, nextRun: next}

	s.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("schedule", schedule.String()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	s.runDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue starts every job whose next run has come.
func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*scheduledJob
	for _, sj := range s.jobs {
		if !sj.running && !now.Before(sj.nextRun) {
			sj.running = true
			due = append(due, sj)
		}
	}
	s.mu.Unlock()

	for _, sj := range due {
		s.wg.Add(1)
		go func(sj *scheduledJob) {
			defer s.wg.Done()
			s.runJob(ctx, sj)
		}(sj)
	}
}

func (s *Scheduler) runJob(ctx context.Context, sj *scheduledJob) *JobResult {
	name := sj.job.Name()
	started := s.now()

	err := sj.job.Run(ctx)

	completed := s.now()
	result := &JobResult{
		JobName:     name,
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started),
		Success:     err == nil,
		Error:       err,
	}

	s.mu.Lock()
	sj.running = false
	sj.runCount++
	sj.nextRun = sj.schedule.Next(completed)
	sj.last = result
	if err != nil {
		sj.failCount++
	}
	s.mu.Unlock()

	outcome := "success"
	if err != nil {
		outcome = "failure"
		s.logger.Error("job failed",
			logger.String("job", name),
			logger.Duration("duration", result.Duration),
			logger.Err(err),
		)
	} else {
		s.logger.Debug("job completed",
			logger.String("job", name),
			logger.Duration("duration", result.Duration),
		)
	}
	jobRuns.WithLabelValues(name, outcome).Inc()
	jobDuration.WithLabelValues(name).Observe(result.Duration.Seconds())
	return result
}

// RunNow executes a job immediately, ignoring its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s not found", name)
	}
	if sj.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s is already running", name)
	}
	sj.running = true
	s.mu.Unlock()

	return s.runJob(ctx, sj), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo describes a registered job.
type JobInfo struct {
	Name      string
	Schedule  string
	NextRun   time.Time
	RunCount  int
	FailCount int
	Last      *JobResult
}

// Jobs returns registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		out = append(out, JobInfo{
			Name:      name,
			Schedule:  sj.schedule.String(),
			NextRun:   sj.nextRun,
			RunCount:  sj.runCount,
			FailCount: sj.failCount,
			Last:      sj.last,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
