package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileStamp_UsesSchoolZone(t *testing.T) {
	utc := time.Date(2025, time.March, 3, 20, 15, 9, 0, time.UTC)
	assert.Equal(t, "2025-03-04_03-15-09", FileStamp(utc))
}

func TestFormatIndonesian(t *testing.T) {
	assert.Equal(t, "12 April 2025", FormatIndonesian(time.Date(2025, time.April, 12, 0, 0, 0, 0, WIB)))
	assert.Equal(t, "-", FormatIndonesian(time.Time{}))
}

func TestMonthNameID(t *testing.T) {
	assert.Equal(t, "Agustus", MonthNameID(time.August))
	assert.Equal(t, "", MonthNameID(time.Month(13)))
}

func TestSetLocation_RejectsUnknownZone(t *testing.T) {
	assert.Error(t, SetLocation("Mars/Olympus"))
	assert.Equal(t, WIB, Location())
	assert.NoError(t, SetLocation(""))
}
