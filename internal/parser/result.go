package parser

import sitter "github.com/smacker/go-tree-sitter"

// Position is a zero-based line/column pair, counted in bytes on the
// line the way tree-sitter counts them.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open [Start, End) span of source text.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Occurrence is one detected use of a platform feature.
type Occurrence struct {
	// ID is the canonical feature id, e.g. "css.properties.float".
	ID string
	// Token is the source text that triggered the detection.
	Token string
	// Range spans the triggering node.
	Range Range
}

// Result collects the features detected in one document. Feature ids
// are ordered by first occurrence with no duplicates; every occurrence
// contributes its range to the id's location list.
type Result struct {
	// Partial is set when the syntax tree contained error nodes and the
	// detector worked from what it could recover.
	Partial bool

	order     []Occurrence
	locations map[string][]Range
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{locations: make(map[string][]Range)}
}

// Add records occ. The first occurrence of a feature id fixes its
// position and token; every occurrence adds a location. It reports
// whether the id was new.
func (r *Result) Add(occ Occurrence) bool {
	_, seen := r.locations[occ.ID]
	if !seen {
		r.order = append(r.order, occ)
	}
	r.locations[occ.ID] = append(r.locations[occ.ID], occ.Range)
	return !seen
}

// Occurrences returns the first occurrence of each feature id in
// document order. The returned slice is owned by the Result and must
// not be mutated.
func (r *Result) Occurrences() []Occurrence {
	return r.order
}

// IDs returns the detected feature ids in document order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.order))
	for i, occ := range r.order {
		ids[i] = occ.ID
	}
	return ids
}

// Locations returns every range where id was detected, in document
// order. The returned slice is owned by the Result.
func (r *Result) Locations(id string) []Range {
	return r.locations[id]
}

// LocationMap returns a copy of the id → ranges mapping.
func (r *Result) LocationMap() map[string][]Range {
	m := make(map[string][]Range, len(r.locations))
	for id, ranges := range r.locations {
		m[id] = append([]Range(nil), ranges...)
	}
	return m
}

// Len returns the number of distinct features detected.
func (r *Result) Len() int { return len(r.order) }

func nodeRange(n *sitter.Node) Range {
	start, end := n.StartPoint(), n.EndPoint()
	return Range{
		Start: Position{Line: int(start.Row), Column: int(start.Column)},
		End:   Position{Line: int(end.Row), Column: int(end.Column)},
	}
}

func nodeText(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}
