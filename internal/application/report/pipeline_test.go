package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/memory"
)

type captureRenderer struct {
	doc *Document
}

func (r *captureRenderer) Render(_ context.Context, doc *Document) ([]byte, error) {
	r.doc = doc
	return []byte("<html><body>rapor</body></html>"), nil
}

type fakeConverter struct {
	err   error
	opts  ConvertOptions
	calls int
}

func (c *fakeConverter) Convert(_ context.Context, html []byte, opts ConvertOptions, outputPath string) error {
	c.calls++
	c.opts = opts
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(outputPath, append([]byte("%PDF-1.4\n"), html...), 0o600)
}

// stallingConverter writes a partial file and then waits for the deadline,
// like a browser that never finishes printing.
type stallingConverter struct {
	hadDeadline bool
}

func (c *stallingConverter) Convert(ctx context.Context, _ []byte, _ ConvertOptions, outputPath string) error {
	_, c.hadDeadline = ctx.Deadline()
	if err := os.WriteFile(outputPath, []byte("%PDF-1.4\n"), 0o600); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

type busyGate struct{}

func (busyGate) Acquire(context.Context) (func(), error) { return nil, shared.ErrRenderSlotBusy }

type recordingObserver struct {
	states []State
}

func (o *recordingObserver) ObserveReport(_ Mode, s State, _ int, _ time.Duration) {
	o.states = append(o.states, s)
}

var fixedNow = time.Date(2025, time.May, 2, 1, 30, 0, 0, time.UTC)

func newPipeline(t *testing.T, env string, conv Converter, opts ...Option) (*Pipeline, *captureRenderer, *memory.Store, academic.Period) {
	t.Helper()

	store := memory.NewDemoStore()
	period, err := query.ResolvePeriod(context.Background(), store, "")
	require.NoError(t, err)

	renderer := &captureRenderer{}
	cfg := Config{
		Environment:  env,
		TempDir:      t.TempDir(),
		PathsChecked: []string{"/usr/bin/google-chrome", "/usr/bin/chromium"},
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	p := NewPipeline(NewCollector(query.NewAggregationService(store, 120)), renderer, conv, cfg, opts...)
	return p, renderer, store, period
}

func TestPipeline_DeliversWithoutAttitudeRecords(t *testing.T) {
	conv := &fakeConverter{}
	p, renderer, _, period := newPipeline(t, "production", conv)

	out, err := p.Generate(context.Background(), Request{Mode: ModeSingle, StudentID: "st-05", Include: IncludeAll()}, period)
	require.NoError(t, err)

	assert.Equal(t, StateDelivered, out.State)
	require.NotNil(t, out.Artifact)
	require.Len(t, renderer.doc.Students, 1)
	assert.NotNil(t, renderer.doc.Students[0].Attitude)
	assert.Empty(t, renderer.doc.Students[0].Attitude)
	assert.True(t, renderer.doc.Students[0].Attendance.Recorded)

	assert.Equal(t, "A4", conv.opts.PageSize)
	assert.Equal(t, 10.0, conv.opts.MarginMM)
	assert.True(t, conv.opts.Background)
	assert.Equal(t, "print", conv.opts.Media)
	assert.Equal(t, 60*time.Second, conv.opts.Timeout)

	require.NoError(t, out.Artifact.Discard())
}

func TestPipeline_FilenameUsesModeLabel(t *testing.T) {
	p, _, _, period := newPipeline(t, "production", &fakeConverter{})

	out, err := p.Generate(context.Background(), Request{Mode: ModeClass, ClassID: memory.DemoClassA}, period)
	require.NoError(t, err)
	defer out.Artifact.Discard()

	assert.Equal(t, "report_per-kelas_2025-05-02_08-30-00.pdf", out.Filename)
	assert.Equal(t, 3, out.DataCount)
}

func TestPipeline_StreamRemovesTempFile(t *testing.T) {
	p, _, _, period := newPipeline(t, "production", &fakeConverter{})

	out, err := p.Generate(context.Background(), Request{Mode: ModeWholeSchool}, period)
	require.NoError(t, err)
	require.Equal(t, StateDelivered, out.State)

	_, err = os.Stat(out.Artifact.Path)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := out.Artifact.Stream(&buf)
	require.NoError(t, err)
	assert.Equal(t, out.Artifact.Size, n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	_, err = os.Stat(out.Artifact.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_FailedOutsideDevelopment(t *testing.T) {
	obs := &recordingObserver{}
	p, _, _, period := newPipeline(t, "production", &fakeConverter{err: errors.New("chrome not found")}, WithObserver(obs))

	out, err := p.Generate(context.Background(), Request{Mode: ModeClass, ClassID: memory.DemoClassA}, period)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, out.State)
	assert.Nil(t, out.Artifact)
	require.NotNil(t, out.Failure)
	assert.Equal(t, []State{StateFailed}, obs.states)

	raw, err := json.Marshal(out.Failure)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.NotEmpty(t, payload["error"])
	assert.Contains(t, payload["message"], "try again")

	debug, ok := payload["debug_info"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, debug["chrome_paths_checked"])
	assert.Equal(t, "production", debug["environment"])
	assert.Equal(t, out.Filename, debug["filename"])
	assert.Equal(t, "class", debug["mode"])
	assert.Equal(t, float64(3), debug["data_count"])
}

func TestPipeline_DegradedInDevelopment(t *testing.T) {
	p, _, _, period := newPipeline(t, "development", &fakeConverter{err: errors.New("exit status 1")})

	out, err := p.Generate(context.Background(), Request{Mode: ModeSingle, StudentID: "st-01", Include: IncludeAll()}, period)
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, out.State)
	assert.Contains(t, string(out.HTML), "rapor")
	assert.Nil(t, out.Failure)
}

func TestPipeline_BusyGateCountsAsRenderingFailure(t *testing.T) {
	conv := &fakeConverter{}
	p, _, _, period := newPipeline(t, "staging", conv, WithGate(busyGate{}))

	out, err := p.Generate(context.Background(), Request{Mode: ModeWholeSchool}, period)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 0, conv.calls)
}

func TestPipeline_ConversionTimeoutFails(t *testing.T) {
	conv := &stallingConverter{}
	obs := &recordingObserver{}
	p, _, _, period := newPipeline(t, "production", conv, WithObserver(obs))
	p.cfg.Timeout = 50 * time.Millisecond

	out, err := p.Generate(context.Background(), Request{Mode: ModeSingle, StudentID: "st-05", Include: IncludeAll()}, period)
	require.NoError(t, err)

	assert.True(t, conv.hadDeadline)
	assert.Equal(t, StateFailed, out.State)
	assert.Nil(t, out.Artifact)
	assert.Empty(t, out.HTML)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "PDF generation failed", out.Failure.Error)
	assert.Contains(t, out.Failure.Message, "pdf conversion timed out")
	assert.Contains(t, out.Failure.Message, "Please try again in a few moments.")
	assert.Equal(t, []State{StateFailed}, obs.states)

	leftovers, err := os.ReadDir(p.cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPipeline_ConversionTimeoutDegradesInDevelopment(t *testing.T) {
	p, _, _, period := newPipeline(t, "development", &stallingConverter{})
	p.cfg.Timeout = 50 * time.Millisecond

	out, err := p.Generate(context.Background(), Request{Mode: ModeSingle, StudentID: "st-05", Include: IncludeAll()}, period)
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, out.State)
	assert.Contains(t, string(out.HTML), "rapor")
	assert.Nil(t, out.Artifact)
	assert.Nil(t, out.Failure)

	leftovers, err := os.ReadDir(p.cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPipeline_Preconditions(t *testing.T) {
	p, _, store, period := newPipeline(t, "production", &fakeConverter{})
	ctx := context.Background()

	_, err := p.Generate(ctx, Request{Mode: ModeSingle, StudentID: "ghost"}, period)
	assert.True(t, shared.IsNotFound(err))

	_, err = p.Generate(ctx, Request{Mode: ModeClass, ClassID: "nope"}, period)
	assert.ErrorIs(t, err, shared.ErrClassNotFound)

	_, err = p.Generate(ctx, Request{Mode: ModeClass}, period)
	assert.ErrorIs(t, err, shared.ErrMissingTarget)

	_, err = p.Generate(ctx, Request{Mode: "weekly"}, period)
	assert.ErrorIs(t, err, shared.ErrInvalidReportMode)

	store.AddClass("empty", "XII Bahasa")
	out, err := p.Generate(ctx, Request{Mode: ModeClass, ClassID: "empty"}, period)
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, out.State)
	assert.Equal(t, 0, out.DataCount)
	_ = out.Artifact.Discard()
}

func TestParseModeAndLabel(t *testing.T) {
	cases := map[string]string{
		"single":       "per-siswa",
		"class":        "per-kelas",
		"whole-school": "satu-sekolah",
	}
	for raw, label := range cases {
		m, err := ParseMode(raw)
		require.NoError(t, err)
		assert.Equal(t, label, m.Label())
	}

	_, err := ParseMode("yearly")
	assert.True(t, shared.IsValidation(err))
}

func TestCollector_RespectsIncludeFlags(t *testing.T) {
	store := memory.NewDemoStore()
	period, err := query.ResolvePeriod(context.Background(), store, "")
	require.NoError(t, err)
	c := NewCollector(query.NewAggregationService(store, 120))

	doc, err := c.Collect(context.Background(), Request{Mode: ModeSingle, StudentID: "st-01"}, period, fixedNow)
	require.NoError(t, err)

	b := doc.Students[0]
	assert.Len(t, b.Subjects, 2)
	assert.Empty(t, b.Attitude)
	assert.Empty(t, b.Achievements)
	assert.Empty(t, b.Extracurricular)
	assert.False(t, b.Attendance.Recorded)

	doc, err = c.Collect(context.Background(), Request{Mode: ModeSingle, StudentID: "st-01", Include: IncludeAll()}, period, fixedNow)
	require.NoError(t, err)

	b = doc.Students[0]
	assert.Len(t, b.Attitude, 2)
	assert.Len(t, b.Achievements, 2)
	assert.Len(t, b.Extracurricular, 1)
	assert.InDelta(t, 97.5, b.Attendance.Rate, 1e-9)
}
