package rules

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/mhollis/baselint/internal/catalog"
	"github.com/mhollis/baselint/internal/compat"
	"github.com/mhollis/baselint/internal/parser"
	"github.com/mhollis/baselint/internal/report"
)

// Severity values a script may pass to add_finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// documentObject exposes the document under analysis as a map with
// uri, language and text keys.
func documentObject(in Input) object.Object {
	return object.NewMap(map[string]object.Object{
		"uri":      object.NewString(in.URI),
		"language": object.NewString(in.Language),
		"text":     object.NewString(string(in.Content)),
	})
}

// featuresObject exposes the detected features as a list of maps, one
// per distinct feature in document order.
func featuresObject(occs []parser.Occurrence) object.Object {
	items := make([]object.Object, 0, len(occs))
	for _, occ := range occs {
		items = append(items, object.NewMap(map[string]object.Object{
			"id":    object.NewString(occ.ID),
			"token": object.NewString(occ.Token),
			"range": rangeObject(occ.Range),
		}))
	}
	return object.NewList(items)
}

func rangeObject(r parser.Range) object.Object {
	return object.NewMap(map[string]object.Object{
		"start": positionObject(r.Start),
		"end":   positionObject(r.End),
	})
}

func positionObject(p parser.Position) object.Object {
	return object.NewMap(map[string]object.Object{
		"line":   object.NewInt(int64(p.Line)),
		"column": object.NewInt(int64(p.Column)),
	})
}

// makeLocationsFn builds locations(id), returning every range the
// given feature id occupies in the document.
func makeLocationsFn(locs map[string][]parser.Range) object.Object {
	return object.NewBuiltin("locations", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("locations", 1, len(args))
		}
		id, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("locations: expected string, got %s", args[0].Type())
		}
		ranges := make([]object.Object, 0, len(locs[id.Value()]))
		for _, r := range locs[id.Value()] {
			ranges = append(ranges, rangeObject(r))
		}
		return object.NewList(ranges)
	})
}

// makeIsSupportedFn builds is_supported(id), the script-side view of
// the resolver verdict. Fails open when no resolver was supplied.
func makeIsSupportedFn(resolver *compat.Resolver) object.Object {
	return object.NewBuiltin("is_supported", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("is_supported", 1, len(args))
		}
		id, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("is_supported: expected string, got %s", args[0].Type())
		}
		if resolver == nil {
			return object.NewBool(true)
		}
		return object.NewBool(resolver.Supported(id.Value()))
	})
}

// makeGetRecordFn builds get_record(id), returning the catalog record
// as a map, or nil when the id is unknown.
func makeGetRecordFn(resolver *compat.Resolver) object.Object {
	return object.NewBuiltin("get_record", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("get_record", 1, len(args))
		}
		id, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("get_record: expected string, got %s", args[0].Type())
		}
		if resolver == nil {
			return object.Nil
		}
		rec, found := resolver.Record(id.Value())
		if !found {
			return object.Nil
		}

		fields := map[string]object.Object{
			"id":       object.NewString(rec.ID),
			"name":     object.NewString(rec.Name),
			"baseline": object.NewString(string(rec.Status.Baseline)),
			"spec_url": object.NewString(rec.SpecURL),
			"doc_url":  object.NewString(rec.DocURL),
		}
		fields["baseline_low_date"] = dateObject(rec.Status.LowDate)
		fields["baseline_high_date"] = dateObject(rec.Status.HighDate)
		return object.NewMap(fields)
	})
}

func dateObject(d catalog.Date) object.Object {
	if d.IsZero() {
		return object.Nil
	}
	return object.NewString(d.Format("2006-01-02"))
}

// makeAddFindingFn builds add_finding(map). The map must carry a
// message; severity defaults to warning. The finding's range comes
// from explicit line/column keys when given, else from the first
// occurrence of feature_id, else it is empty.
func makeAddFindingFn(rule string, in Input, sink *[]Finding) object.Object {
	return object.NewBuiltin("add_finding", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_finding", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_finding: %v", err)
		}

		message := getString(m, "message")
		if message == "" {
			return object.Errorf("add_finding: message is required")
		}
		severity := getStringDefault(m, "severity", SeverityWarning)
		switch severity {
		case SeverityError, SeverityWarning, SeverityInfo:
		default:
			return object.Errorf("add_finding: invalid severity %q", severity)
		}

		f := Finding{
			Rule:      rule,
			FeatureID: getString(m, "feature_id"),
			Message:   message,
			Severity:  severity,
		}
		if _, ok := m["line"]; ok {
			pos := parser.Position{Line: getInt(m, "line"), Column: getInt(m, "column")}
			f.Range = parser.Range{Start: pos, End: pos}
		} else if f.FeatureID != "" {
			for _, occ := range in.Features {
				if occ.ID == f.FeatureID {
					f.Range = occ.Range
					break
				}
			}
		}

		*sink = append(*sink, f)
		return object.Nil
	})
}

// scriptLog backs the log global. Script log lines flow through the
// reporter so they land next to everything else.
type scriptLog struct {
	rule     string
	reporter report.Reporter
}

func (l *scriptLog) Info(msg string) {
	l.reporter.Report(report.CategoryRule, report.SeverityLow, msg, map[string]any{"rule": l.rule})
}

func (l *scriptLog) Warn(msg string) {
	l.reporter.Report(report.CategoryRule, report.SeverityMedium, msg, map[string]any{"rule": l.rule})
}

func (l *scriptLog) Error(msg string) {
	l.reporter.Report(report.CategoryRule, report.SeverityHigh, msg, map[string]any{"rule": l.rule})
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("rules: proxy error: %v", err))
	}
	return p
}

func extractMap(arg object.Object) (map[string]object.Object, error) {
	m, ok := arg.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("want a map argument, got %s", arg.Type())
	}
	return m.Value(), nil
}

// getString reads a string field; missing keys and non-strings read as "".
func getString(fields map[string]object.Object, key string) string {
	if s, ok := fields[key].(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(fields map[string]object.Object, key, def string) string {
	if v := getString(fields, key); v != "" {
		return v
	}
	return def
}

// getInt reads a numeric field; scripts may produce either int or float.
func getInt(fields map[string]object.Object, key string) int {
	switch v := fields[key].(type) {
	case *object.Int:
		return int(v.Value())
	case *object.Float:
		return int(v.Value())
	}
	return 0
}
