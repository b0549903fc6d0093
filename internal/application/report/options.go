// Package report собирает табели успеваемости: сбор данных по ученикам,
// рендеринг HTML и конвертация в PDF через внешний процесс браузера.
// Результат никогда не сохраняется - каждый запрос строит отчёт заново.
package report

import (
	"strings"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MODE
// ══════════════════════════════════════════════════════════════════════════════

// Mode - охват отчёта.
type Mode string

const (
	// ModeSingle - один ученик.
	ModeSingle Mode = "single"
	// ModeClass - все ученики класса.
	ModeClass Mode = "class"
	// ModeWholeSchool - все ученики школы.
	ModeWholeSchool Mode = "whole-school"
)

// ParseMode разбирает режим из строки запроса.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle:
		return ModeSingle, nil
	case ModeClass:
		return ModeClass, nil
	case ModeWholeSchool, "school", "all":
		return ModeWholeSchool, nil
	default:
		return "", shared.ErrInvalidReportMode
	}
}

// Label возвращает метку режима для имени файла.
func (m Mode) Label() string {
	switch m {
	case ModeSingle:
		return "per-siswa"
	case ModeClass:
		return "per-kelas"
	case ModeWholeSchool:
		return "satu-sekolah"
	default:
		return "laporan"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST
// ══════════════════════════════════════════════════════════════════════════════

// Include - какие разделы попадают в табель.
type Include struct {
	Attitude        bool // include_sikap
	Attendance      bool // include_kehadiran
	Achievements    bool // include_prestasi
	Extracurricular bool // include_ekskul
}

// IncludeAll включает все разделы.
func IncludeAll() Include {
	return Include{Attitude: true, Attendance: true, Achievements: true, Extracurricular: true}
}

// Request - параметры генерации отчёта.
// Период передаётся отдельно, явным параметром Generate.
type Request struct {
	Mode      Mode
	StudentID string // для ModeSingle
	ClassID   string // для ModeClass
	Include   Include
}

// Validate проверяет, что для режима указана цель.
func (r Request) Validate() error {
	switch r.Mode {
	case ModeSingle:
		if r.StudentID == "" {
			return shared.ErrMissingTarget
		}
	case ModeClass:
		if r.ClassID == "" {
			return shared.ErrMissingTarget
		}
	case ModeWholeSchool:
	default:
		return shared.ErrInvalidReportMode
	}
	return nil
}

// Cohort возвращает фильтр группы для режимов class и whole-school.
func (r Request) Cohort() academic.CohortFilter {
	if r.Mode == ModeClass {
		return academic.CohortFilter{ClassID: r.ClassID}
	}
	return academic.CohortFilter{}
}
