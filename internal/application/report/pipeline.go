package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// Collecting → RenderingHTML → ConvertingPDF → Delivered | Degraded | Failed
// ══════════════════════════════════════════════════════════════════════════════

// State - состояние запроса на отчёт.
type State string

const (
	StateCollecting    State = "collecting"
	StateRenderingHTML State = "rendering_html"
	StateConvertingPDF State = "converting_pdf"
	StateDelivered     State = "delivered"
	StateDegraded      State = "degraded"
	StateFailed        State = "failed"
)

// IsTerminal возвращает true для конечных состояний.
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateDegraded || s == StateFailed
}

// Outcome - итог запроса.
//   - Delivered: Artifact заполнен, вызывающий код обязан вызвать Stream.
//   - Degraded: HTML заполнен (только в development).
//   - Failed: Failure заполнен.
type Outcome struct {
	State     State
	Filename  string
	Artifact  *Artifact
	HTML      []byte
	Failure   *Failure
	DataCount int
}

// Failure - диагностика неудачной конвертации.
type Failure struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	DebugInfo DebugInfo `json:"debug_info"`
}

// DebugInfo - сведения для разбора проблемы с браузером.
type DebugInfo struct {
	ChromePathsChecked []string `json:"chrome_paths_checked"`
	Environment        string   `json:"environment"`
	Filename           string   `json:"filename"`
	Mode               string   `json:"mode"`
	DataCount          int      `json:"data_count"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// Config - параметры конвейера.
type Config struct {
	// Environment - development|staging|production; деградация до HTML
	// разрешена только в development.
	Environment string

	// TempDir - каталог временных PDF (пусто - системный).
	TempDir string

	// BinaryPath - найденный путь к браузеру (пусто - поиск по умолчанию).
	BinaryPath string

	// PathsChecked - пути, проверенные при поиске браузера.
	PathsChecked []string

	// Timeout - предел времени конвертации.
	Timeout time.Duration
}

// IsDevelopment сообщает, разрешена ли деградация до HTML.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Pipeline проводит запрос через все состояния.
type Pipeline struct {
	collector *Collector
	renderer  TemplateRenderer
	converter Converter
	gate      RenderGate
	observer  Observer
	log       *logger.Logger
	now       func() time.Time
	cfg       Config
}

// Option настраивает конвейер.
type Option func(*Pipeline)

// WithGate задаёт ограничитель одновременных конвертаций.
func WithGate(g RenderGate) Option {
	return func(p *Pipeline) { p.gate = g }
}

// WithObserver задаёт получателя метрик.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger задаёт логгер.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClock задаёт источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline создаёт конвейер.
func NewPipeline(collector *Collector, renderer TemplateRenderer, converter Converter, cfg Config, opts ...Option) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	p := &Pipeline{
		collector: collector,
		renderer:  renderer,
		converter: converter,
		gate:      noopGate{},
		observer:  noopObserver{},
		log:       logger.Nop(),
		now:       time.Now,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate строит отчёт за указанный период.
// Ошибка возвращается только при нарушении предусловий (нет ученика, класса,
// неверный режим), сбое хранилища или шаблона. Сбой браузера - не ошибка,
// а Outcome в состоянии Degraded или Failed.
func (p *Pipeline) Generate(ctx context.Context, req Request, period academic.Period) (*Outcome, error) {
	started := p.now()
	filename := Filename(req.Mode, started)
	log := p.log.With(logger.ReportMode(string(req.Mode)), logger.PeriodID(period.ID), logger.String("filename", filename))

	// Collecting
	doc, err := p.collector.Collect(ctx, req, period, started)
	if err != nil {
		return nil, err
	}
	out := &Outcome{State: StateCollecting, Filename: filename, DataCount: doc.DataCount()}
	log.Debug("report data collected", logger.Int("data_count", out.DataCount))

	// RenderingHTML
	out.State = StateRenderingHTML
	html, err := p.renderer.Render(ctx, doc)
	if err != nil {
		return nil, shared.WrapError("report", "RenderHTML", shared.ErrRendering, "template rendering failed", err)
	}

	// ConvertingPDF
	out.State = StateConvertingPDF
	artifact, err := p.convert(ctx, html, filename)
	if err != nil {
		p.fail(out, html, req.Mode, err, log)
	} else {
		out.State = StateDelivered
		out.Artifact = artifact
		log.Info("report delivered", logger.Int("data_count", out.DataCount), logger.Int64("bytes", artifact.Size))
	}

	p.observer.ObserveReport(req.Mode, out.State, out.DataCount, p.now().Sub(started))
	return out, nil
}

func (p *Pipeline) convert(ctx context.Context, html []byte, filename string) (*Artifact, error) {
	release, err := p.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	opts := DefaultConvertOptions(p.cfg.BinaryPath)
	opts.Timeout = p.cfg.Timeout

	convCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	path := tempPath(p.cfg.TempDir, p.now())
	if err := p.converter.Convert(convCtx, html, opts, path); err != nil {
		_ = os.Remove(path)
		if errors.Is(convCtx.Err(), context.DeadlineExceeded) {
			return nil, shared.WrapError("report", "ConvertPDF", shared.ErrTimeout, "pdf conversion timed out", err)
		}
		return nil, shared.WrapError("report", "ConvertPDF", shared.ErrRendering, "pdf conversion failed", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, shared.WrapError("report", "ConvertPDF", shared.ErrRendering, "pdf artifact missing", err)
	}
	return &Artifact{Path: path, Filename: filename, Size: info.Size()}, nil
}

func (p *Pipeline) fail(out *Outcome, html []byte, mode Mode, err error, log *logger.Logger) {
	if p.cfg.IsDevelopment() {
		out.State = StateDegraded
		out.HTML = html
		log.Warn("pdf conversion failed, serving html", logger.Err(err))
		return
	}

	out.State = StateFailed
	checked := p.cfg.PathsChecked
	if checked == nil {
		checked = []string{}
	}
	out.Failure = &Failure{
		Error:   "PDF generation failed",
		Message: fmt.Sprintf("%v. Please try again in a few moments.", err),
		DebugInfo: DebugInfo{
			ChromePathsChecked: checked,
			Environment:        p.cfg.Environment,
			Filename:           out.Filename,
			Mode:               string(mode),
			DataCount:          out.DataCount,
		},
	}
	log.Error("pdf conversion failed",
		logger.Err(err),
		logger.Strings("chrome_paths_checked", checked),
		logger.Int("data_count", out.DataCount),
	)
}
