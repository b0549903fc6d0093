// Package jobs contains scheduled maintenance jobs.
package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP ARTIFACTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ArtifactPattern matches temporary report PDFs written by the pipeline.
const ArtifactPattern = "rapor_*.pdf"

// SweepArtifactsJob removes report PDFs that were never streamed, e.g.
// because the client disconnected or the process restarted mid-request.
// Streamed artifacts delete themselves; this only catches leftovers.
type SweepArtifactsJob struct {
	dir    string
	maxAge time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewSweepArtifactsJob creates the job. An empty dir means os.TempDir().
func NewSweepArtifactsJob(dir string, maxAge time.Duration, log *logger.Logger) *SweepArtifactsJob {
	if dir == "" {
		dir = os.TempDir()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SweepArtifactsJob{dir: dir, maxAge: maxAge, logger: log, now: time.Now}
}

// Name returns the job name.
func (j *SweepArtifactsJob) Name() string { return "sweep_report_artifacts" }

// Run deletes artifacts older than maxAge and returns the first removal error.
func (j *SweepArtifactsJob) Run(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(j.dir, ArtifactPattern))
	if err != nil {
		return err
	}

	cutoff := j.now().Add(-j.maxAge)
	var firstErr error
	removed := 0
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("stale report artifacts removed",
			logger.Int("removed", removed),
			logger.String("dir", j.dir),
		)
	}
	return firstErr
}
