// Package rules runs user-supplied Risor scripts against analyzed
// documents. Scripts see the document, its detected features and the
// support verdicts, and raise their own findings through add_finding.
// A failing script is reported and skipped; it never fails the
// analysis that hosted it.
package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"

	"github.com/mhollis/baselint/internal/compat"
	"github.com/mhollis/baselint/internal/parser"
	"github.com/mhollis/baselint/internal/report"
)

// Script is one named rule script.
type Script struct {
	Name   string
	Source string
}

// Finding is a diagnostic raised by a rule script.
type Finding struct {
	// Rule names the script that raised it.
	Rule string
	// FeatureID is the canonical feature id the finding is about, when
	// the script gave one.
	FeatureID string
	Message   string
	// Severity is one of error, warning, info.
	Severity string
	Range    parser.Range
}

// Input is everything one run exposes to the scripts.
type Input struct {
	URI      string
	Language string
	Content  []byte
	// Features holds the first occurrence of each detected feature id,
	// in document order.
	Features []parser.Occurrence
	// Locations maps each feature id to every range it was detected
	// at. When nil, the Features ranges stand in.
	Locations map[string][]parser.Range
	Resolver  *compat.Resolver
}

// locationMap returns the full id → ranges view, falling back to the
// first-occurrence ranges when no map was provided.
func (in Input) locationMap() map[string][]parser.Range {
	if in.Locations != nil {
		return in.Locations
	}
	locs := make(map[string][]parser.Range, len(in.Features))
	for _, occ := range in.Features {
		locs[occ.ID] = append(locs[occ.ID], occ.Range)
	}
	return locs
}

// Engine holds a fixed set of scripts and runs them sequentially.
type Engine struct {
	reporter report.Reporter
	scripts  []Script
}

// New builds an Engine. A nil reporter discards script diagnostics.
func New(reporter report.Reporter, scripts ...Script) *Engine {
	if reporter == nil {
		reporter = report.Nop()
	}
	return &Engine{reporter: reporter, scripts: scripts}
}

// Len returns how many scripts are loaded.
func (e *Engine) Len() int { return len(e.scripts) }

// Names returns the script names in run order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.scripts))
	for i, s := range e.scripts {
		names[i] = s.Name
	}
	return names
}

// Run executes every script against in and returns the findings they
// raised. A script that fails mid-run keeps the findings it already
// raised; the failure itself is reported, not returned.
func (e *Engine) Run(ctx context.Context, in Input) []Finding {
	var out []Finding
	for _, s := range e.scripts {
		findings, err := e.runScript(ctx, s, in)
		out = append(out, findings...)
		if err != nil {
			e.reporter.Report(report.CategoryRule, report.SeverityMedium,
				"rule script failed", map[string]any{
					"rule":  s.Name,
					"uri":   in.URI,
					"error": err.Error(),
				})
		}
	}
	return out
}

func (e *Engine) runScript(ctx context.Context, s Script, in Input) ([]Finding, error) {
	var collected []Finding

	opts := []risor.Option{
		risor.WithGlobal("document", documentObject(in)),
		risor.WithGlobal("features", featuresObject(in.Features)),
		risor.WithGlobal("locations", makeLocationsFn(in.locationMap())),
		risor.WithGlobal("is_supported", makeIsSupportedFn(in.Resolver)),
		risor.WithGlobal("get_record", makeGetRecordFn(in.Resolver)),
		risor.WithGlobal("add_finding", makeAddFindingFn(s.Name, in, &collected)),
		risor.WithGlobal("log", mustProxy(&scriptLog{rule: s.Name, reporter: e.reporter})),
	}

	if _, err := risor.Eval(ctx, s.Source, opts...); err != nil {
		return collected, fmt.Errorf("rules: script %s: %w", s.Name, err)
	}
	return collected, nil
}

// LoadFile reads one .risor script. The script's name is the file's
// base name without the extension.
func LoadFile(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("rules: loading script %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Script{Name: name, Source: string(data)}, nil
}

// LoadDir reads every .risor file in dir, in lexical order. A missing
// directory yields no scripts and no error.
func LoadDir(dir string) ([]Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rules: reading script dir %s: %w", dir, err)
	}

	var scripts []Script
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".risor") {
			continue
		}
		s, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// LoadFS reads every .risor file in fsys, including subdirectories, in
// lexical path order. Useful with go:embed script bundles.
func LoadFS(fsys fs.FS) ([]Script, error) {
	var scripts []Script
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".risor") {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("rules: loading script %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		scripts = append(scripts, Script{Name: name, Source: string(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rules: walking script fs: %w", err)
	}
	return scripts, nil
}
