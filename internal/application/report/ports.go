package report

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Реализации живут в internal/infrastructure/render и persistence/redis.
// ══════════════════════════════════════════════════════════════════════════════

// TemplateRenderer превращает документ в HTML.
type TemplateRenderer interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// ConvertOptions - параметры печати в PDF.
type ConvertOptions struct {
	PageSize     string // "A4"
	MarginMM     float64
	Background   bool
	Media        string // "print"
	WaitStrategy string // "networkidle0"
	Timeout      time.Duration
	BinaryPath   string // пусто - поиск по умолчанию в библиотеке
}

// DefaultConvertOptions - фиксированные параметры табеля.
func DefaultConvertOptions(binaryPath string) ConvertOptions {
	return ConvertOptions{
		PageSize:     "A4",
		MarginMM:     10,
		Background:   true,
		Media:        "print",
		WaitStrategy: "networkidle0",
		Timeout:      60 * time.Second,
		BinaryPath:   binaryPath,
	}
}

// Converter печатает HTML в PDF-файл по пути outputPath.
type Converter interface {
	Convert(ctx context.Context, html []byte, opts ConvertOptions, outputPath string) error
}

// RenderGate ограничивает число одновременных процессов браузера.
// Acquire возвращает функцию освобождения слота.
type RenderGate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Observer получает итог каждого запроса (метрики).
type Observer interface {
	ObserveReport(mode Mode, state State, students int, elapsed time.Duration)
}

type noopGate struct{}

func (noopGate) Acquire(context.Context) (func(), error) { return func() {}, nil }

type noopObserver struct{}

func (noopObserver) ObserveReport(Mode, State, int, time.Duration) {}
