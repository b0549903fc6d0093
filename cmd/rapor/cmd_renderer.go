package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/infrastructure/render"
)

var rendererConvert bool

func newRendererCmd() *cobra.Command {
	rendererCmd := &cobra.Command{
		Use:   "renderer",
		Short: "Inspect the headless browser used for PDF conversion",
	}
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Show which browser paths are checked and which one is used",
		RunE:  runRendererCheck,
	}
	checkCmd.Flags().BoolVar(&rendererConvert, "convert", false, "also convert a one-page test document")
	rendererCmd.AddCommand(checkCmd)
	return rendererCmd
}

// runRendererCheck печатает результат поиска браузера. Хранилище не
// нужно, поэтому команда работает и без БД.
func runRendererCheck(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	d := a.discoverBrowser()
	for _, p := range d.Checked {
		mark := " "
		if p == d.Path {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, p)
	}
	if !d.Resolved() {
		return errors.New("no headless browser found; set RENDERER_CHROME_PATH")
	}
	fmt.Fprintf(out, "using %s\n", d.Path)

	if !rendererConvert {
		return nil
	}

	dir, err := os.MkdirTemp(a.cfg.Renderer.TempDir, "rapor-check-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	opts := report.DefaultConvertOptions(d.Path)
	opts.Timeout = a.cfg.Renderer.Timeout

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	started := time.Now()
	target := filepath.Join(dir, "check.pdf")
	conv := render.NewChromeConverter(a.log, a.cfg.Renderer.NoSandbox)
	if err := conv.Convert(ctx, []byte(testDocument), opts, target); err != nil {
		return fmt.Errorf("test conversion failed: %w", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "test conversion ok: %d bytes in %s\n", info.Size(), time.Since(started).Round(time.Millisecond))
	return nil
}

const testDocument = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Rapor</title></head>
<body><h1>Rapor Hub</h1><p>Renderer check.</p></body></html>`
