package baselint

import (
	"time"

	"github.com/mhollis/baselint/internal/catalog"
	"github.com/mhollis/baselint/internal/parser"
	"github.com/mhollis/baselint/internal/report"
	"github.com/mhollis/baselint/internal/sched"
)

// Public type aliases for the internal types that surface in the
// Analyzer API. Aliases (=) are identical to the internal types at
// compile time, so no conversion is needed.

type Position = parser.Position
type Range = parser.Range
type Occurrence = parser.Occurrence

type Record = catalog.Record
type Status = catalog.Status
type Level = catalog.Level

const (
	LevelNone = catalog.LevelNone
	LevelLow  = catalog.LevelLow
	LevelHigh = catalog.LevelHigh
)

type Config = sched.Config

// DefaultConfig returns the stock tunables: 300ms debounce, 5s parse
// timeout, 5MiB max file size, 100KiB large-file threshold, 10000 memo
// entries.
func DefaultConfig() Config { return sched.DefaultConfig() }

type Reporter = report.Reporter

// ErrTimeout marks work abandoned at its deadline. The computation may
// still be running; only its result is discarded.
var ErrTimeout = sched.ErrTimeout

// ErrUnknownLanguage is returned for documents in languages no
// detector covers.
var ErrUnknownLanguage = parser.ErrUnknownLanguage

// Reason classifies why a finding was raised.
type Reason string

const (
	// ReasonUnsupported marks a feature that is not Baseline.
	ReasonUnsupported Reason = "unsupported"
	// ReasonLimited marks a feature that is newly available: Baseline
	// low, interoperable but not yet widely established.
	ReasonLimited Reason = "limited-support"
	// ReasonRule marks a finding added by a user rule script.
	ReasonRule Reason = "rule"
)

// Severity orders findings for presentation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one diagnostic produced by an analysis pass. Findings are
// derived, never persisted by the core; the audit store keeps its own
// copies.
type Finding struct {
	// Range spans the triggering source text.
	Range Range `json:"range"`

	// FeatureID is the canonical feature id, empty for rule findings
	// not tied to a feature.
	FeatureID string `json:"feature_id,omitempty"`

	// FeatureName is the dataset's display name, or the id when the
	// dataset has none.
	FeatureName string `json:"feature_name,omitempty"`

	Reason   Reason   `json:"reason"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Rule names the script that raised the finding, for ReasonRule.
	Rule string `json:"rule,omitempty"`
}

// Analysis is the outcome of one pass over one document.
type Analysis struct {
	URI      string `json:"uri"`
	Language string `json:"language"`

	// Features holds the first occurrence of each detected feature id,
	// in document order.
	Features []Occurrence `json:"features,omitempty"`

	Findings []Finding `json:"findings,omitempty"`

	// Partial is set when the source had syntax errors and detection
	// worked from what the parser recovered.
	Partial bool `json:"partial,omitempty"`

	// FromCache is set when the parse was served from the memo.
	FromCache bool `json:"from_cache,omitempty"`

	// TimedOut is set when the parse missed its deadline and the pass
	// produced no features or findings.
	TimedOut bool `json:"timed_out,omitempty"`

	Duration time.Duration `json:"duration"`
}
