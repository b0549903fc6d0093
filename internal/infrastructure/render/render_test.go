package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/memory"
)

func TestDiscover_ExplicitPathFirst(t *testing.T) {
	exists := func(c string) bool { return c == "/opt/chrome" || c == "/usr/bin/chromium" }

	d := Discover("/opt/chrome", []string{"/usr/bin/chromium"}, "linux", exists)

	assert.True(t, d.Resolved())
	assert.Equal(t, "/opt/chrome", d.Path)
	assert.Equal(t, []string{"/opt/chrome"}, d.Checked)
}

func TestDiscover_FirstExistingCandidateWins(t *testing.T) {
	exists := func(c string) bool { return c == "/usr/bin/chromium" || c == "/snap/bin/chromium" }

	d := Discover("/missing/chrome", Candidates("linux"), "linux", exists)

	assert.Equal(t, "/usr/bin/chromium", d.Path)
	assert.Equal(t, []string{"/missing/chrome", "/usr/bin/google-chrome", "/usr/bin/google-chrome-stable", "/usr/bin/chromium"}, d.Checked)
}

func TestDiscover_Unresolved(t *testing.T) {
	d := Discover("", Candidates("linux"), "linux", func(string) bool { return false })

	assert.False(t, d.Resolved())
	assert.Equal(t, Candidates("linux"), d.Checked)
	assert.NotEmpty(t, d.Checked)
}

func TestDiscover_WindowsAcceptsBareName(t *testing.T) {
	d := Discover("", []string{`C:\nope\chrome.exe`, "chrome"}, "windows", func(string) bool { return false })

	assert.Equal(t, "chrome", d.Path)
	assert.Len(t, d.Checked, 2)
}

func TestPrintParams(t *testing.T) {
	p, err := printParams(report.DefaultConvertOptions(""))
	require.NoError(t, err)

	assert.InDelta(t, 8.27, p.PaperWidth, 1e-9)
	assert.InDelta(t, 11.69, p.PaperHeight, 1e-9)
	assert.InDelta(t, 10/25.4, p.MarginTop, 1e-9)
	assert.InDelta(t, 10/25.4, p.MarginRight, 1e-9)
	assert.True(t, p.PrintBackground)

	_, err = printParams(report.ConvertOptions{PageSize: "B5"})
	assert.Error(t, err)
}

func collect(t *testing.T, req report.Request) *report.Document {
	t.Helper()
	store := memory.NewDemoStore()
	period, err := query.ResolvePeriod(context.Background(), store, "")
	require.NoError(t, err)

	doc, err := report.NewCollector(query.NewAggregationService(store, 120)).
		Collect(context.Background(), req, period, time.Date(2025, time.May, 2, 1, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return doc
}

func TestTemplateRenderer_SingleStudent(t *testing.T) {
	r, err := NewTemplateRenderer("SMA Negeri 1 Contoh")
	require.NoError(t, err)

	doc := collect(t, report.Request{Mode: report.ModeSingle, StudentID: "st-01", Include: report.IncludeAll()})
	html, err := r.Render(context.Background(), doc)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "SMA Negeri 1 Contoh")
	assert.Contains(t, out, "Ahmad Fauzi")
	assert.Contains(t, out, "Matematika")
	assert.Contains(t, out, "Olimpiade Sains Nasional")
	assert.Contains(t, out, "Pramuka")
	assert.Contains(t, out, "97.50%")
	assert.Contains(t, out, "Genap")
	assert.Equal(t, 1, strings.Count(out, `<section class="student">`))
}

func TestTemplateRenderer_ClassWithMissingSections(t *testing.T) {
	r, err := NewTemplateRenderer("SMA")
	require.NoError(t, err)

	doc := collect(t, report.Request{Mode: report.ModeClass, ClassID: memory.DemoClassB, Include: report.Include{Attitude: true}})
	html, err := r.Render(context.Background(), doc)
	require.NoError(t, err)

	out := string(html)
	assert.Equal(t, 2, strings.Count(out, `<section class="student">`))
	assert.Contains(t, out, "Belum ada penilaian sikap.")
	assert.NotContains(t, out, "Ketidakhadiran")
}

func TestTemplateRenderer_EmptyCohort(t *testing.T) {
	r, err := NewTemplateRenderer("SMA")
	require.NoError(t, err)

	html, err := r.Render(context.Background(), &report.Document{
		Mode:   report.ModeWholeSchool,
		Period: academic.Period{SchoolYear: "2024/2025", Semester: academic.SemesterOdd},
	})
	require.NoError(t, err)
	assert.Contains(t, string(html), "Tidak ada data siswa")
}

func TestFormatAverage(t *testing.T) {
	assert.Equal(t, "-", formatAverage(academic.Average{}))
	assert.Equal(t, "83.33", formatAverage(academic.Average{Value: 83.3333, Count: 3}))
	assert.Equal(t, "0.00", formatAverage(academic.Average{Value: 0, Count: 1}))
}
