package report

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewLogger(slog.New(h)), &buf
}

func TestLogger_SeverityLevels(t *testing.T) {
	l, buf := newBufferLogger()

	l.Report(CategoryParser, SeverityLow, "bad css", nil)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "category=parser")
	buf.Reset()

	l.Report(CategoryValidation, SeverityMedium, "query before init", nil)
	assert.Contains(t, buf.String(), "level=WARN")
	buf.Reset()

	l.Report(CategoryUnknown, SeverityHigh, "recovered panic", nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	buf.Reset()

	l.Report(CategoryData, SeverityCritical, "catalog load failed", nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "critical=true")
}

func TestLogger_Fields(t *testing.T) {
	l, buf := newBufferLogger()

	l.Report(CategoryTimeout, SeverityMedium, "parse deadline", map[string]any{
		"uri":     "file:///a.css",
		"elapsed": "5s",
	})
	out := buf.String()
	assert.Contains(t, out, "uri=file:///a.css")
	assert.Contains(t, out, "elapsed=5s")
}

func TestLogger_Counts(t *testing.T) {
	l, _ := newBufferLogger()

	require.EqualValues(t, 0, l.Count(SeverityHigh))
	l.Report(CategoryUnknown, SeverityHigh, "one", nil)
	l.Report(CategoryUnknown, SeverityHigh, "two", nil)
	l.Report(CategoryParser, SeverityLow, "three", nil)

	assert.EqualValues(t, 2, l.Count(SeverityHigh))
	assert.EqualValues(t, 1, l.Count(SeverityLow))
	assert.EqualValues(t, 0, l.Count(SeverityCritical))
}

func TestNewLogger_NilUsesDefault(t *testing.T) {
	l := NewLogger(nil)
	require.NotNil(t, l)
	// Must not panic.
	l.Report(CategoryParser, SeverityLow, "ok", nil)
}

func TestNop_Discards(t *testing.T) {
	r := Nop()
	// Must not panic; nothing observable.
	r.Report(CategoryData, SeverityCritical, "dropped", map[string]any{"k": "v"})
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "low", SeverityLow.String())
	assert.Equal(t, "medium", SeverityMedium.String())
	assert.Equal(t, "high", SeverityHigh.String())
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "unknown", Severity(99).String())
}
