package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Options{Output: buf, Level: level, Format: FormatJSON}), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)

	log.With(StudentID("st-01")).Info("report collected",
		Int("data_count", 3),
		Err(errors.New("boom")),
	)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "report collected", lines[0]["message"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "st-01", lines[0]["student_id"])
	assert.Equal(t, float64(3), lines[0]["data_count"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	log, buf := newBufferLogger(LevelWarn)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestContextPropagation(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)
	ctx := WithContext(context.Background(), log.WithRequestID("req-1"))

	FromContext(ctx).Info("hello")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0][RequestIDKey])
}

func TestFromContext_DefaultsWhenMissing(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
