package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/raporhub/rapor-hub/config"
	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// reportParams are accepted from the query string and, for POST, from a JSON body.
// Absent include flags fall back to the configured defaults.
type reportParams struct {
	Mode      string `form:"mode" json:"mode"`
	StudentID string `form:"student_id" json:"student_id"`
	ClassID   string `form:"class_id" json:"class_id"`
	PeriodID  string `form:"period_id" json:"period_id"`

	IncludeAttitude        *bool `form:"include_sikap" json:"include_sikap"`
	IncludeAttendance      *bool `form:"include_kehadiran" json:"include_kehadiran"`
	IncludeAchievements    *bool `form:"include_prestasi" json:"include_prestasi"`
	IncludeExtracurricular *bool `form:"include_ekskul" json:"include_ekskul"`
}

// mode returns the explicit mode, or infers it from the target:
// a student ID means single, a class ID means class.
func (p reportParams) mode() (report.Mode, error) {
	raw := p.Mode
	if raw == "" {
		switch {
		case p.StudentID != "":
			raw = string(report.ModeSingle)
		case p.ClassID != "":
			raw = string(report.ModeClass)
		}
	}
	return report.ParseMode(raw)
}

func (p reportParams) include(defaults report.Include) report.Include {
	pick := func(v *bool, def bool) bool {
		if v == nil {
			return def
		}
		return *v
	}
	return report.Include{
		Attitude:        pick(p.IncludeAttitude, defaults.Attitude),
		Attendance:      pick(p.IncludeAttendance, defaults.Attendance),
		Achievements:    pick(p.IncludeAchievements, defaults.Achievements),
		Extracurricular: pick(p.IncludeExtracurricular, defaults.Extracurricular),
	}
}

// handleGenerateReport handles GET|POST /api/v1/reports.
//
// Delivered reports stream as application/pdf with a download filename.
// In development a conversion failure degrades to the rendered HTML;
// elsewhere it returns 500 with diagnostics for the operator.
func (s *Server) handleGenerateReport(c *gin.Context) {
	var params reportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", "Invalid query parameters", err.Error())
		return
	}
	if c.Request.Method == http.MethodPost && c.ContentType() == binding.MIMEJSON && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			abortError(c, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
			return
		}
	}

	mode, err := params.mode()
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !s.reportModeEnabled(mode, params.ClassID) {
		abortError(c, http.StatusForbidden, "feature_disabled", "This report mode is currently disabled", string(mode))
		return
	}

	req := report.Request{
		Mode:      mode,
		StudentID: params.StudentID,
		ClassID:   params.ClassID,
		Include:   params.include(s.deps.ReportDefaults),
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	period, err := query.ResolvePeriod(ctx, s.deps.Store, params.PeriodID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	out, err := s.deps.Reports.Generate(ctx, req, period)
	if err != nil {
		s.respondError(c, err)
		return
	}

	log := logger.FromContext(ctx).With(logger.ReportMode(string(mode)), logger.PeriodID(period.ID))
	switch out.State {
	case report.StateDelivered:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Length", strconv.FormatInt(out.Artifact.Size, 10))
		c.Status(http.StatusOK)
		if _, err := out.Artifact.Stream(c.Writer); err != nil {
			log.Warn("report stream interrupted", logger.Err(err), logger.String("filename", out.Filename))
		}

	case report.StateDegraded:
		c.Header("X-Report-State", string(out.State))
		c.Data(http.StatusOK, "text/html; charset=utf-8", out.HTML)

	default:
		c.JSON(http.StatusInternalServerError, out.Failure)
	}
}

func (s *Server) reportModeEnabled(mode report.Mode, classID string) bool {
	switch mode {
	case report.ModeWholeSchool:
		return s.featureEnabled(config.FeatureWholeSchoolReports, "")
	case report.ModeClass:
		return s.featureEnabled(config.FeatureClassReports, classID)
	default:
		return true
	}
}
