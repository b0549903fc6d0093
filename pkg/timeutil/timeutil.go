// Package timeutil provides timezone utilities for the school's local time.
// Schools run on Western Indonesia Time (WIB, UTC+7) unless configured otherwise.
// Report timestamps, artifact names and printed dates all use the school zone.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// WIB is Western Indonesia Time (UTC+7, no DST).
var WIB = time.FixedZone("Asia/Jakarta", 7*60*60)

var (
	zoneMu     sync.RWMutex
	schoolZone = WIB
)

// SetLocation overrides the school timezone by IANA name.
// An unknown name leaves the current zone in place and returns the error.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	zoneMu.Lock()
	schoolZone = loc
	zoneMu.Unlock()
	return nil
}

// Location returns the school timezone.
func Location() *time.Location {
	zoneMu.RLock()
	defer zoneMu.RUnlock()
	return schoolZone
}

// Now returns the current time in the school timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// ToSchool converts a time to the school timezone.
func ToSchool(t time.Time) time.Time {
	return t.In(Location())
}

// Date creates a time in the school timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// StartOfDay returns the start of the day (00:00:00) in the school timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToSchool(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
	// FormatFileStamp is safe for file names on every platform.
	FormatFileStamp = "2006-01-02_15-04-05"
)

// FileStamp formats a time for artifact names in the school timezone.
func FileStamp(t time.Time) string {
	return ToSchool(t).Format(FormatFileStamp)
}

// FormatDateTimeStr formats a time as datetime string in the school timezone.
func FormatDateTimeStr(t time.Time) string {
	return ToSchool(t).Format(FormatDateTimeSeconds)
}

// FormatIndonesian formats a date the way report cards print it: "12 April 2025".
func FormatIndonesian(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	local := ToSchool(t)
	return fmt.Sprintf("%d %s %d", local.Day(), MonthNameID(local.Month()), local.Year())
}

// MonthNameID returns the Indonesian name for a month.
func MonthNameID(m time.Month) string {
	names := []string{
		"", "Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	}
	if int(m) >= 1 && int(m) <= 12 {
		return names[m]
	}
	return ""
}
