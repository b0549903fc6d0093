package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/pkg/timeutil"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// TemplateRenderer renders report documents with html/template.
type TemplateRenderer struct {
	tmpl       *template.Template
	schoolName string
}

var _ report.TemplateRenderer = (*TemplateRenderer)(nil)

// NewTemplateRenderer parses the embedded report template.
func NewTemplateRenderer(schoolName string) (*TemplateRenderer, error) {
	tmpl, err := template.New("report.html.tmpl").Funcs(template.FuncMap{
		"avg":       formatAverage,
		"pct":       func(v float64) string { return fmt.Sprintf("%.2f%%", academic.Round2(v)) },
		"date":      timeutil.FormatIndonesian,
		"datetime":  timeutil.FormatDateTimeStr,
		"semester":  semesterLabel,
		"mastery":   masteryLabel,
		"aspect":    aspectLabel,
		"level":     levelLabel,
		"inc":       func(i int) int { return i + 1 },
		"modeTitle": modeTitle,
	}).ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl, schoolName: schoolName}, nil
}

type templateData struct {
	SchoolName  string
	Mode        report.Mode
	Period      academic.Period
	GeneratedAt time.Time
	Include     report.Include
	Students    []report.StudentBundle
}

// Render implements report.TemplateRenderer. One template serves 1..N students;
// every student starts on a new page.
func (r *TemplateRenderer) Render(_ context.Context, doc *report.Document) ([]byte, error) {
	data := templateData{
		SchoolName:  r.schoolName,
		Mode:        doc.Mode,
		Period:      doc.Period,
		GeneratedAt: doc.GeneratedAt,
		Include:     doc.Include,
		Students:    doc.Students,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAverage(a academic.Average) string {
	if !a.HasData() {
		return "-"
	}
	return fmt.Sprintf("%.2f", a.Rounded())
}

func semesterLabel(s academic.Semester) string {
	switch s {
	case academic.SemesterOdd:
		return "Ganjil"
	case academic.SemesterEven:
		return "Genap"
	default:
		return string(s)
	}
}

func masteryLabel(m academic.MasteryStatus) string {
	switch m {
	case academic.Mastered:
		return "Tuntas"
	case academic.NotMastered:
		return "Belum Tuntas"
	default:
		return "-"
	}
}

func aspectLabel(a academic.AttitudeAspect) string {
	switch a {
	case academic.AspectSocial:
		return "Sosial"
	case academic.AspectSpiritual:
		return "Spiritual"
	default:
		return string(a)
	}
}

func levelLabel(l academic.AchievementLevel) string {
	switch l {
	case academic.LevelSchool:
		return "Sekolah"
	case academic.LevelDistrict:
		return "Kabupaten/Kota"
	case academic.LevelProvince:
		return "Provinsi"
	case academic.LevelNational:
		return "Nasional"
	case academic.LevelInternational:
		return "Internasional"
	default:
		return string(l)
	}
}

func modeTitle(m report.Mode) string {
	switch m {
	case report.ModeClass:
		return "Laporan Hasil Belajar Per Kelas"
	case report.ModeWholeSchool:
		return "Laporan Hasil Belajar Satu Sekolah"
	default:
		return "Laporan Hasil Belajar Siswa"
	}
}
