package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"name":        "Rapor Hub API",
		"version":     s.deps.Version,
		"description": "Academic aggregation and report card generation",
		"endpoints": gin.H{
			"health":    "/health",
			"periods":   "/api/v1/periods",
			"summary":   "/api/v1/students/{id}/summary",
			"ranking":   "/api/v1/subjects/{subject_id}/ranking",
			"dashboard": "/api/v1/subjects/{subject_id}/dashboard",
			"reports":   "/api/v1/reports",
		},
	})
}

// handleHealth reports aggregated health of all registered checks.
func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.HealthChecker == nil {
		respond(c, http.StatusOK, gin.H{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.deps.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Healthy {
		respond(c, http.StatusServiceUnavailable, status)
		return
	}
	respond(c, http.StatusOK, status)
}

// handleReady handles the readiness probe.
func (s *Server) handleReady(c *gin.Context) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(c.Request.Context())
		if !status.Ready {
			respond(c, http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"status": "ready"})
}

// handleLive handles the liveness probe.
func (s *Server) handleLive(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REFERENCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListPeriods handles GET /api/v1/periods
func (s *Server) handleListPeriods(c *gin.Context) {
	periods, err := s.deps.Views.Periods(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, periods, &ResponseMeta{TotalCount: len(periods)})
}

// handleListFeatures handles GET /api/v1/features
func (s *Server) handleListFeatures(c *gin.Context) {
	if s.deps.Flags == nil {
		respond(c, http.StatusOK, gin.H{})
		return
	}
	features := s.deps.Flags.GetAllFeatures()
	result := make(map[string]bool, len(features))
	for name, f := range features {
		result[name] = f.Enabled
	}
	respond(c, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleStudentSummary handles GET /api/v1/students/:id/summary
func (s *Server) handleStudentSummary(c *gin.Context) {
	dto, err := s.deps.Views.StudentSummary(c.Request.Context(), query.StudentQuery{
		StudentID: c.Param("id"),
		PeriodID:  c.Query("period_id"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// handleStudentAttendance handles GET /api/v1/students/:id/attendance
func (s *Server) handleStudentAttendance(c *gin.Context) {
	dto, err := s.deps.Views.Attendance(c.Request.Context(), query.StudentQuery{
		StudentID: c.Param("id"),
		PeriodID:  c.Query("period_id"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// handleSubjectAverage handles GET /api/v1/students/:id/subjects/:subject_id/average
// Query: period_id, kind (knowledge|skill|other).
func (s *Server) handleSubjectAverage(c *gin.Context) {
	dto, err := s.deps.Views.SubjectAverage(c.Request.Context(), query.SubjectAverageQuery{
		StudentID: c.Param("id"),
		SubjectID: c.Param("subject_id"),
		PeriodID:  c.Query("period_id"),
		Kind:      academic.ComponentKind(strings.ToLower(c.Query("kind"))),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// handleStudentTrend handles GET /api/v1/students/:id/trend
// Query: metric (average|absences), subject_id, periods (comma-separated IDs).
func (s *Server) handleStudentTrend(c *gin.Context) {
	dto, err := s.deps.Views.Trend(c.Request.Context(), query.TrendQuery{
		StudentID: c.Param("id"),
		Metric:    c.Query("metric"),
		SubjectID: c.Query("subject_id"),
		PeriodIDs: splitList(c.Query("periods")),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, dto, &ResponseMeta{TotalCount: len(dto.Points)})
}

// ══════════════════════════════════════════════════════════════════════════════
// COHORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// cohortQuery reads class_id, period_id and include_inactive; the subject
// comes from the path when present, otherwise from the query string.
func cohortQuery(c *gin.Context) query.CohortQuery {
	subjectID := c.Param("subject_id")
	if subjectID == "" {
		subjectID = c.Query("subject_id")
	}
	return query.CohortQuery{
		ClassID:         c.Query("class_id"),
		SubjectID:       subjectID,
		PeriodID:        c.Query("period_id"),
		IncludeInactive: queryBool(c, "include_inactive", false),
	}
}

// handleRanking handles GET /api/v1/subjects/:subject_id/ranking
func (s *Server) handleRanking(c *gin.Context) {
	dto, err := s.deps.Views.Ranking(c.Request.Context(), cohortQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, dto, &ResponseMeta{TotalCount: len(dto.Entries)})
}

// handleDistribution handles GET /api/v1/subjects/:subject_id/distribution
// and GET /api/v1/distribution (all subjects unless subject_id is given).
func (s *Server) handleDistribution(c *gin.Context) {
	dto, err := s.deps.Views.Distribution(c.Request.Context(), cohortQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// handleDashboard handles GET /api/v1/subjects/:subject_id/dashboard
func (s *Server) handleDashboard(c *gin.Context) {
	dto, err := s.deps.Views.Dashboard(c.Request.Context(), cohortQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// queryBool parses a boolean query parameter; absent or malformed values
// fall back to def.
func queryBool(c *gin.Context, key string, def bool) bool {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "yes", "y", "ya", "on":
		return true
	case "no", "n", "tidak", "off":
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
