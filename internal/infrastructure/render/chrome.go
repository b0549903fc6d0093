package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

const (
	mmPerInch = 25.4

	// networkIdleWindow is how long no request may be in flight before the
	// page counts as settled.
	networkIdleWindow = 500 * time.Millisecond
	idlePollInterval  = 50 * time.Millisecond
)

// paperSizes in inches (width, height).
var paperSizes = map[string][2]float64{
	"A4":     {8.27, 11.69},
	"A5":     {5.83, 8.27},
	"Letter": {8.5, 11},
	"Legal":  {8.5, 14},
}

// ChromeConverter prints HTML to PDF with a headless Chrome subprocess
// started per conversion.
type ChromeConverter struct {
	log       *logger.Logger
	noSandbox bool
}

var _ report.Converter = (*ChromeConverter)(nil)

// NewChromeConverter creates a converter. noSandbox is required when the
// service runs as root inside a container.
func NewChromeConverter(log *logger.Logger, noSandbox bool) *ChromeConverter {
	return &ChromeConverter{log: log, noSandbox: noSandbox}
}

// Convert implements report.Converter.
func (c *ChromeConverter) Convert(ctx context.Context, html []byte, opts report.ConvertOptions, outputPath string) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.DisableGPU, chromedp.Flag("font-render-hinting", "none"))
	if c.noSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.BinaryPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BinaryPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	idle := newIdleTracker()
	chromedp.ListenTarget(taskCtx, idle.handle)

	started := time.Now()
	var pdf []byte
	err := chromedp.Run(taskCtx,
		network.Enable(),
		emulation.SetEmulatedMedia().WithMedia(opts.Media),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if opts.WaitStrategy == "" {
				return nil
			}
			return idle.wait(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params, err := printParams(opts)
			if err != nil {
				return err
			}
			buf, _, err := params.Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		conversionErrors.WithLabelValues(errorCause(ctx, err)).Inc()
		return fmt.Errorf("chrome %q: %w", displayPath(opts.BinaryPath), err)
	}

	if err := os.WriteFile(outputPath, pdf, 0o600); err != nil {
		conversionErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("write pdf: %w", err)
	}

	c.log.Debug("pdf converted",
		logger.String("binary", displayPath(opts.BinaryPath)),
		logger.Int("bytes", len(pdf)),
		logger.Latency(time.Since(started)),
	)
	return nil
}

func printParams(opts report.ConvertOptions) (*page.PrintToPDFParams, error) {
	size := opts.PageSize
	if size == "" {
		size = "A4"
	}
	dims, ok := paperSizes[size]
	if !ok {
		return nil, fmt.Errorf("unsupported page size %q", size)
	}
	margin := opts.MarginMM / mmPerInch

	return page.PrintToPDF().
		WithPaperWidth(dims[0]).
		WithPaperHeight(dims[1]).
		WithMarginTop(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin).
		WithMarginRight(margin).
		WithPrintBackground(opts.Background).
		WithPreferCSSPageSize(false), nil
}

func errorCause(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, os.ErrNotExist):
		return "binary_missing"
	default:
		return "chrome"
	}
}

func displayPath(p string) string {
	if p == "" {
		return "(default lookup)"
	}
	return p
}

// ─────────────────────────────────────────────────────────────────────────────
// Network idle
// ─────────────────────────────────────────────────────────────────────────────

// idleTracker counts in-flight requests from DevTools network events.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastSeen time.Time
}

func newIdleTracker() *idleTracker {
	return &idleTracker{inflight: make(map[network.RequestID]struct{}), lastSeen: time.Now()}
}

func (t *idleTracker) handle(ev interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.lastSeen = time.Now()
}

func (t *idleTracker) settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && time.Since(t.lastSeen) >= networkIdleWindow
}

// wait blocks until no request has been in flight for networkIdleWindow.
func (t *idleTracker) wait(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if t.settled() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
