package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is a Baseline support tier. The dataset encodes it as
// false | "low" | "high" | true; true is normalized to LevelHigh on load.
type Level string

const (
	// LevelNone means the feature is not Baseline-compatible.
	LevelNone Level = "none"
	// LevelLow means newly compatible: supported by the current set of
	// Baseline browsers, but not yet for the qualifying period.
	LevelLow Level = "low"
	// LevelHigh means widely compatible.
	LevelHigh Level = "high"
)

// UnmarshalJSON accepts the dataset's mixed boolean/string encoding.
func (l *Level) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "false":
		*l = LevelNone
	case "true":
		*l = LevelHigh
	case `"low"`:
		*l = LevelLow
	case `"high"`:
		*l = LevelHigh
	default:
		return fmt.Errorf("catalog: invalid baseline level %s", b)
	}
	return nil
}

// MarshalJSON writes the canonical dataset encoding.
func (l Level) MarshalJSON() ([]byte, error) {
	switch l {
	case LevelNone:
		return []byte("false"), nil
	case LevelLow:
		return []byte(`"low"`), nil
	case LevelHigh:
		return []byte(`"high"`), nil
	}
	return nil, fmt.Errorf("catalog: invalid baseline level %q", string(l))
}

// Date is a calendar date (YYYY-MM-DD) from the dataset. The zero Date
// means "not recorded".
type Date struct {
	time.Time
}

// UnmarshalJSON parses YYYY-MM-DD; null and "" decode to the zero Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("catalog: invalid date %s: %w", b, err)
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return fmt.Errorf("catalog: invalid date %q: %w", raw, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON writes YYYY-MM-DD, or null for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// Status is a feature's Baseline classification plus the dates it crossed
// each tier, when known.
type Status struct {
	Baseline Level `json:"baseline"`
	LowDate  Date  `json:"baseline_low_date,omitzero"`
	HighDate Date  `json:"baseline_high_date,omitzero"`
}

// Record is one feature's compatibility entry. Records are immutable once
// the catalog is loaded.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	SpecURL string `json:"spec_url,omitempty"`
	DocURL  string `json:"doc_url,omitempty"`
}
