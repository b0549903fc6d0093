package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/raporhub/rapor-hub/pkg/timeutil"
)

// Artifact - готовый PDF во временном файле.
type Artifact struct {
	Path     string
	Filename string
	Size     int64
}

// Stream копирует файл в w и удаляет его в любом случае,
// даже если передача оборвалась.
func (a *Artifact) Stream(w io.Writer) (int64, error) {
	defer os.Remove(a.Path)

	f, err := os.Open(a.Path)
	if err != nil {
		return 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	return io.Copy(w, f)
}

// Discard удаляет файл без передачи.
func (a *Artifact) Discard() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Filename возвращает имя файла для скачивания:
// report_{метка режима}_{2006-01-02_15-04-05}.pdf.
func Filename(mode Mode, t time.Time) string {
	return fmt.Sprintf("report_%s_%s.pdf", mode.Label(), timeutil.FileStamp(t))
}

// tempPath - уникальный путь временного файла (время + UUID).
func tempPath(dir string, t time.Time) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("rapor_%s_%s.pdf", timeutil.FileStamp(t), uuid.NewString()))
}
