package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestSweepArtifactsJob_RemovesOnlyStaleReports(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)

	stale := filepath.Join(dir, "rapor_20241220_0800_a.pdf")
	fresh := filepath.Join(dir, "rapor_20241220_0955_b.pdf")
	other := filepath.Join(dir, "notes.pdf")
	touch(t, stale, now.Add(-2*time.Hour))
	touch(t, fresh, now.Add(-5*time.Minute))
	touch(t, other, now.Add(-48*time.Hour))

	job := NewSweepArtifactsJob(dir, time.Hour, nil)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
	assert.Equal(t, "sweep_report_artifacts", job.Name())
}

func TestSweepArtifactsJob_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "rapor_old.pdf"), time.Now().Add(-24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSweepArtifactsJob(dir, time.Hour, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
