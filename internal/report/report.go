// Package report is the shared error-reporting sink for the analysis
// pipeline. Core components never let internal failures escape as panics
// or returned errors at their public boundary; they degrade to a safe
// default and describe what happened here instead.
package report

import (
	"log/slog"
	"sync/atomic"
)

// Category classifies a report by where in the pipeline it originated.
type Category string

const (
	CategoryParser     Category = "parser"     // malformed source, recovered locally
	CategoryData       Category = "data"       // catalog load or lookup fault
	CategoryValidation Category = "validation" // bad arguments, use-before-init
	CategoryTimeout    Category = "timeout"    // deadline exceeded, result discarded
	CategoryRule       Category = "rule"       // user rule script failure
	CategoryResource   Category = "resource"   // memory pressure, soft limits
	CategoryUnknown    Category = "unknown"    // recovered panic or unclassified fault
)

// Severity orders reports by how loudly they should surface.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Reporter receives (category, severity, message, fields) tuples from the
// core. Implementations must be safe for concurrent use.
type Reporter interface {
	Report(cat Category, sev Severity, msg string, fields map[string]any)
}

// Logger adapts a *slog.Logger into a Reporter. Severity maps onto slog
// levels: low→Debug, medium→Warn, high and critical→Error.
type Logger struct {
	log *slog.Logger

	// counts by severity, readable via Count for threshold alerting.
	counts [4]atomic.Int64
}

// NewLogger returns a Reporter writing through log. A nil log uses
// slog.Default().
func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

// Report implements Reporter.
func (l *Logger) Report(cat Category, sev Severity, msg string, fields map[string]any) {
	if sev >= SeverityLow && sev <= SeverityCritical {
		l.counts[sev].Add(1)
	}

	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "category", string(cat))
	if sev == SeverityCritical {
		attrs = append(attrs, "critical", true)
	}
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}

	switch sev {
	case SeverityLow:
		l.log.Debug(msg, attrs...)
	case SeverityMedium:
		l.log.Warn(msg, attrs...)
	default:
		l.log.Error(msg, attrs...)
	}
}

// Count returns how many reports have been made at the given severity.
func (l *Logger) Count(sev Severity) int64 {
	if sev < SeverityLow || sev > SeverityCritical {
		return 0
	}
	return l.counts[sev].Load()
}

// nop discards every report.
type nop struct{}

func (nop) Report(Category, Severity, string, map[string]any) {}

// Nop returns a Reporter that drops everything. Useful as a default and in
// tests that don't assert on reporting.
func Nop() Reporter { return nop{} }
