package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raporhub/rapor-hub/config"
	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// reportFlags - флаги команды report.
type reportFlags struct {
	mode      string
	studentID string
	classID   string
	periodID  string
	outDir    string
	demo      bool

	noAttitude        bool
	noAttendance      bool
	noAchievements    bool
	noExtracurricular bool
}

var reportOpts reportFlags

func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report card PDF into a directory",
		Example: `  rapor report --mode single --student st-02
  rapor report --mode class --class class-x-ipa-1 --period 2024-ganjil
  rapor report --mode whole-school --demo --out ./out`,
		RunE: runReport,
	}

	f := reportCmd.Flags()
	f.StringVar(&reportOpts.mode, "mode", "single", "single, class or whole-school")
	f.StringVar(&reportOpts.studentID, "student", "", "student ID for single mode")
	f.StringVar(&reportOpts.classID, "class", "", "class ID for class mode")
	f.StringVar(&reportOpts.periodID, "period", "", "period ID (default: active period)")
	f.StringVarP(&reportOpts.outDir, "out", "o", ".", "output directory")
	f.BoolVar(&reportOpts.demo, "demo", false, "use the built-in demo dataset instead of the configured store")
	f.BoolVar(&reportOpts.noAttitude, "no-sikap", false, "omit the attitude section")
	f.BoolVar(&reportOpts.noAttendance, "no-kehadiran", false, "omit the attendance section")
	f.BoolVar(&reportOpts.noAchievements, "no-prestasi", false, "omit the achievements section")
	f.BoolVar(&reportOpts.noExtracurricular, "no-ekskul", false, "omit the extracurricular section")
	return reportCmd
}

// runReport собирает отчёт тем же конвейером, что и HTTP, и пишет
// результат в файл: PDF при успехе, HTML при деградации.
func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if reportOpts.demo {
		a.cfg.Database.Driver = config.DriverMemory
	}
	if err := a.openStore(ctx); err != nil {
		return err
	}

	mode, err := report.ParseMode(reportOpts.mode)
	if err != nil {
		return err
	}
	defaults := a.reportDefaults()
	req := report.Request{
		Mode:      mode,
		StudentID: reportOpts.studentID,
		ClassID:   reportOpts.classID,
		Include: report.Include{
			Attitude:        defaults.Attitude && !reportOpts.noAttitude,
			Attendance:      defaults.Attendance && !reportOpts.noAttendance,
			Achievements:    defaults.Achievements && !reportOpts.noAchievements,
			Extracurricular: defaults.Extracurricular && !reportOpts.noExtracurricular,
		},
	}
	if err := req.Validate(); err != nil {
		return err
	}

	period, err := query.ResolvePeriod(ctx, a.store, reportOpts.periodID)
	if err != nil {
		return err
	}

	stack, err := a.buildReportStack()
	if err != nil {
		return err
	}
	out, err := stack.pipeline.Generate(ctx, req, period)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(reportOpts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	switch out.State {
	case report.StateDelivered:
		path := filepath.Join(reportOpts.outDir, out.Filename)
		if err := writeArtifact(path, out.Artifact); err != nil {
			return err
		}
		a.log.Info("report written",
			logger.String("path", path),
			logger.Int64("size", out.Artifact.Size),
			logger.Int("data_count", out.DataCount),
		)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil

	case report.StateDegraded:
		path := filepath.Join(reportOpts.outDir, htmlName(out.Filename))
		if err := os.WriteFile(path, out.HTML, 0o644); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
		a.log.Warn("pdf conversion failed, wrote html instead", logger.String("path", path))
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil

	default:
		enc := json.NewEncoder(cmd.ErrOrStderr())
		enc.SetIndent("", "  ")
		_ = enc.Encode(out.Failure)
		return errors.New("report generation failed")
	}
}

func writeArtifact(path string, artifact *report.Artifact) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := artifact.Stream(f); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func htmlName(pdfName string) string {
	return pdfName[:len(pdfName)-len(filepath.Ext(pdfName))] + ".html"
}
