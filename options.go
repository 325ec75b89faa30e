package baselint

import (
	"io/fs"

	"github.com/mhollis/baselint/internal/catalog"
	"github.com/mhollis/baselint/internal/rules"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCatalog supplies a pre-loaded feature catalog instead of the
// embedded dataset.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(a *Analyzer) {
		a.catalog = cat
	}
}

// WithReporter routes diagnostics (parse failures, timeouts, rule
// errors, memory pressure) to the given Reporter. The default reporter
// discards everything.
func WithReporter(r Reporter) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.reporter = r
		}
	}
}

// WithConfig overrides the default tuning knobs. Zero or negative
// fields fall back to their defaults; the substitutions are reported.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) {
		a.initial = cfg
	}
}

// WithRuleScripts registers in-memory rule scripts to run on every
// analysis pass.
func WithRuleScripts(scripts ...rules.Script) Option {
	return func(a *Analyzer) {
		a.scripts = append(a.scripts, scripts...)
	}
}

// WithRulesDir loads every .risor file in dir as a rule script. A
// missing directory is not an error; an unreadable one fails New.
func WithRulesDir(dir string) Option {
	return func(a *Analyzer) {
		a.rulesDir = dir
	}
}

// WithRulesFS loads rule scripts from an fs.FS, typically a go:embed
// bundle shipped with the host application.
func WithRulesFS(fsys fs.FS) Option {
	return func(a *Analyzer) {
		a.rulesFS = fsys
	}
}

// WithFlagNewlyAvailable also flags features that are newly available
// (Baseline low) with informational findings. By default only features
// with no Baseline support produce findings.
func WithFlagNewlyAvailable(flag bool) Option {
	return func(a *Analyzer) {
		a.flagLow = flag
	}
}
