package baselint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minio/highwayhash"

	"github.com/mhollis/baselint/internal/catalog"
	"github.com/mhollis/baselint/internal/compat"
	"github.com/mhollis/baselint/internal/parser"
	"github.com/mhollis/baselint/internal/report"
	"github.com/mhollis/baselint/internal/rules"
	"github.com/mhollis/baselint/internal/sched"
)

// ErrFileTooLarge is returned when a document is bigger than
// Config.MaxFileSize.
var ErrFileTooLarge = errors.New("document exceeds size limit")

// memoHashKey keys the content hash in parse-memo keys. HighwayHash
// wants exactly 32 bytes.
var memoHashKey = []byte("baselint-parse-memo-key-32bytes!")

// ctxCheckStride is how many features the resolve phase processes
// between context checks.
const ctxCheckStride = 64

// Analyzer runs the detect/resolve/extend pipeline over documents. One
// Analyzer serves any number of goroutines; construct it with New and
// release it with Close.
type Analyzer struct {
	settings *sched.Settings
	reporter report.Reporter
	catalog  *catalog.Catalog
	resolver *compat.Resolver
	rules    *rules.Engine
	flagLow  bool

	memo     *sched.Memo[*parser.Result]
	debounce *sched.Debouncer
	memory   *sched.MemoryTracker
	sweeper  *sched.Sweeper

	mu          sync.Mutex
	generations map[string]uint64

	opSeq     atomic.Uint64
	closeOnce sync.Once

	// Option staging, consumed by New.
	initial  Config
	scripts  []rules.Script
	rulesDir string
	rulesFS  fs.FS
}

// New builds an Analyzer. A failure to load the bundled dataset is
// reported but not fatal: the Analyzer still runs and resolves every
// feature as supported. Unreadable rule sources are fatal, since the
// caller asked for them explicitly.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		reporter:    report.Nop(),
		initial:     DefaultConfig(),
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.settings = sched.NewSettings(a.initial)
	cfg := a.settings.Load()

	if a.catalog == nil {
		cat, err := catalog.Load()
		if err != nil {
			a.reporter.Report(report.CategoryData, report.SeverityCritical,
				"feature dataset failed to load, resolving everything as supported",
				map[string]any{"error": err.Error()})
		} else {
			a.catalog = cat
		}
	}
	a.resolver = compat.New(a.catalog, compat.WithReporter(a.reporter))

	scripts := a.scripts
	if a.rulesDir != "" {
		loaded, err := rules.LoadDir(a.rulesDir)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, loaded...)
	}
	if a.rulesFS != nil {
		loaded, err := rules.LoadFS(a.rulesFS)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, loaded...)
	}
	a.rules = rules.New(a.reporter, scripts...)

	a.memo = sched.NewMemo[*parser.Result](cfg.MemoCapacity)
	a.debounce = sched.NewDebouncer(a.reporter)
	a.memory = sched.NewMemoryTracker(cfg.MemoryThreshold, a.reporter)
	a.sweeper = sched.NewSweeper(cfg.SweepInterval, cfg.MemoMaxAge, a.memo.EvictIdle)
	a.sweeper.Start()

	return a, nil
}

// Analyze runs one synchronous pass over doc.
//
// A parse that misses its deadline is not an error: the pass is
// reported and an empty Analysis marked TimedOut comes back, so a
// pathological document costs its caller nothing but the findings it
// would have had. Cancellation of ctx is an error. Documents over the
// size limit return ErrFileTooLarge.
func (a *Analyzer) Analyze(ctx context.Context, doc Document) (*Analysis, error) {
	cfg := a.settings.Load()
	content := doc.Text()

	if int64(len(content)) > cfg.MaxFileSize {
		a.reporter.Report(report.CategoryValidation, report.SeverityMedium,
			"document exceeds size limit", map[string]any{
				"uri":        doc.URI(),
				"size_bytes": len(content),
				"max_bytes":  cfg.MaxFileSize,
			})
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)",
			ErrFileTooLarge, doc.URI(), len(content), cfg.MaxFileSize)
	}

	det, err := parser.ForLanguage(doc.Language())
	if err != nil {
		return nil, err
	}

	opID := fmt.Sprintf("analyze-%d", a.opSeq.Add(1))
	a.memory.Track(opID, int64(len(content)))
	defer a.memory.Release(opID)

	started := time.Now()

	fromCache := true
	res, err := a.memo.GetOrCompute(memoKey(doc.URI(), content), func() (*parser.Result, error) {
		fromCache = false
		return sched.WithTimeout(ctx, cfg.ParseTimeout, func(ctx context.Context) (*parser.Result, error) {
			return det.Detect(ctx, content)
		})
	})
	if err != nil {
		if errors.Is(err, sched.ErrTimeout) {
			a.reporter.Report(report.CategoryTimeout, report.SeverityMedium,
				"parse missed its deadline, no findings this pass", map[string]any{
					"uri":        doc.URI(),
					"timeout_ms": cfg.ParseTimeout.Milliseconds(),
				})
			return &Analysis{
				URI:      doc.URI(),
				Language: det.Language(),
				TimedOut: true,
				Duration: time.Since(started),
			}, nil
		}
		return nil, fmt.Errorf("analyze %s: %w", doc.URI(), err)
	}

	if res.Partial && !fromCache {
		a.reporter.Report(report.CategoryParser, report.SeverityLow,
			"document has syntax errors, detection is partial",
			map[string]any{"uri": doc.URI()})
	}

	// Large documents yield once between the parse and resolve phases
	// so a burst of big files cannot starve other goroutines.
	if int64(len(content)) > cfg.LargeFileThreshold {
		runtime.Gosched()
	}

	findings, err := a.resolveFindings(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", doc.URI(), err)
	}
	findings = append(findings, a.runRules(ctx, doc, det.Language(), content, res)...)

	if a.memory.OverThreshold() {
		a.memo.Shrink()
	}

	return &Analysis{
		URI:       doc.URI(),
		Language:  det.Language(),
		Features:  res.Occurrences(),
		Findings:  findings,
		Partial:   res.Partial,
		FromCache: fromCache,
		Duration:  time.Since(started),
	}, nil
}

// AnalyzeDebounced schedules an analysis of doc after the configured
// quiet period, replacing any pass still pending for the same URI. sink
// receives the outcome on a background goroutine. A pass that was
// superseded while it ran is dropped rather than delivered stale.
func (a *Analyzer) AnalyzeDebounced(doc Document, sink func(*Analysis, error)) {
	cfg := a.settings.Load()
	uri := doc.URI()
	gen := a.nextGeneration(uri)
	a.debounce.Schedule(uri, cfg.DebounceInterval, func() {
		analysis, err := a.Analyze(context.Background(), doc)
		if !a.isLatest(uri, gen) {
			return
		}
		sink(analysis, err)
	})
}

// CloseDocument cancels pending work for uri and evicts its parse
// results. It returns how many cache entries were dropped.
func (a *Analyzer) CloseDocument(uri string) int {
	a.debounce.Cancel(uri)
	a.mu.Lock()
	delete(a.generations, uri)
	a.mu.Unlock()
	return a.memo.DeletePrefix(uri + ":")
}

// UpdateConfig swaps the tunables while the Analyzer runs. Non-positive
// fields fall back to their defaults and the substitution is reported.
// The memo capacity and memory threshold take effect immediately; the
// sweep cadence is fixed at construction. The applied config is
// returned.
func (a *Analyzer) UpdateConfig(cfg Config) Config {
	applied, fixed := a.settings.Store(cfg)
	if len(fixed) > 0 {
		a.reporter.Report(report.CategoryValidation, report.SeverityMedium,
			"config fields reset to defaults", map[string]any{"fields": fixed})
	}
	a.memo.SetCapacity(applied.MemoCapacity)
	a.memory.SetThreshold(applied.MemoryThreshold)
	return applied
}

// Config returns the current tunables.
func (a *Analyzer) Config() Config {
	return a.settings.Load()
}

// Record returns the dataset record for a feature id.
func (a *Analyzer) Record(id string) (*Record, bool) {
	return a.resolver.Record(id)
}

// DatasetVersion returns the loaded dataset's version, or "" when the
// dataset failed to load.
func (a *Analyzer) DatasetVersion() string {
	if a.catalog == nil {
		return ""
	}
	return a.catalog.Version()
}

// Stats is a point-in-time view of the Analyzer's caches and counters.
type Stats struct {
	// Memo reports the parse cache.
	Memo sched.MemoStats
	// MemoryUsed estimates bytes held by in-flight analyses.
	MemoryUsed int64
	// ResolverHits counts support verdicts served from the verdict memo;
	// ResolverMisses counts ids the dataset did not know.
	ResolverHits   uint64
	ResolverMisses uint64
	// PendingAnalyses counts debounced passes not yet fired.
	PendingAnalyses int
}

// Stats returns current cache and counter values.
func (a *Analyzer) Stats() Stats {
	hits, misses := a.resolver.Stats()
	return Stats{
		Memo:            a.memo.Stats(),
		MemoryUsed:      a.memory.Used(),
		ResolverHits:    hits,
		ResolverMisses:  misses,
		PendingAnalyses: a.debounce.Pending(),
	}
}

// Close cancels pending debounced passes and stops the background
// sweeper. The Analyzer must not be used afterwards.
func (a *Analyzer) Close() {
	a.closeOnce.Do(func() {
		a.debounce.Stop()
		a.sweeper.Stop()
	})
}

// resolveFindings maps each detected feature to findings per its
// Baseline status: one finding per recorded location.
func (a *Analyzer) resolveFindings(ctx context.Context, res *parser.Result) ([]Finding, error) {
	var findings []Finding
	for i, occ := range res.Occurrences() {
		if i%ctxCheckStride == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !a.resolver.Supported(occ.ID) {
			rec, _ := a.resolver.Record(occ.ID)
			name := occ.ID
			if rec != nil && rec.Name != "" {
				name = rec.Name
			}
			findings = appendPerLocation(findings, res.Locations(occ.ID), Finding{
				FeatureID:   occ.ID,
				FeatureName: name,
				Reason:      ReasonUnsupported,
				Severity:    SeverityWarning,
				Message:     fmt.Sprintf("%s is not a Baseline feature", name),
			})
			continue
		}

		if !a.flagLow {
			continue
		}
		rec, ok := a.resolver.Record(occ.ID)
		if !ok || rec.Status.Baseline != LevelLow {
			continue
		}
		msg := fmt.Sprintf("%s is newly available, not yet Baseline widely", rec.Name)
		if !rec.Status.LowDate.IsZero() {
			msg = fmt.Sprintf("%s is newly available since %s, not yet Baseline widely",
				rec.Name, rec.Status.LowDate.Format("2006-01-02"))
		}
		findings = appendPerLocation(findings, res.Locations(occ.ID), Finding{
			FeatureID:   occ.ID,
			FeatureName: rec.Name,
			Reason:      ReasonLimited,
			Severity:    SeverityInfo,
			Message:     msg,
		})
	}
	return findings, nil
}

// runRules feeds the detection result to the rule engine and converts
// what the scripts raised. Script failures are reported inside the
// engine and never fail the pass.
func (a *Analyzer) runRules(ctx context.Context, doc Document, language string, content []byte, res *parser.Result) []Finding {
	if a.rules.Len() == 0 {
		return nil
	}
	raised := a.rules.Run(ctx, rules.Input{
		URI:       doc.URI(),
		Language:  language,
		Content:   content,
		Features:  res.Occurrences(),
		Locations: res.LocationMap(),
		Resolver:  a.resolver,
	})
	if len(raised) == 0 {
		return nil
	}
	out := make([]Finding, 0, len(raised))
	for _, rf := range raised {
		var name string
		if rf.FeatureID != "" {
			if rec, ok := a.resolver.Record(rf.FeatureID); ok {
				name = rec.Name
			}
		}
		out = append(out, Finding{
			Range:       rf.Range,
			FeatureID:   rf.FeatureID,
			FeatureName: name,
			Reason:      ReasonRule,
			Severity:    Severity(rf.Severity),
			Message:     rf.Message,
			Rule:        rf.Rule,
		})
	}
	return out
}

// nextGeneration bumps and returns the analysis generation for uri.
// Generations order debounced passes so a result that was superseded
// while it ran is recognizably stale.
func (a *Analyzer) nextGeneration(uri string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generations[uri]++
	return a.generations[uri]
}

func (a *Analyzer) isLatest(uri string, gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generations[uri] == gen
}

// appendPerLocation appends one copy of proto per range.
func appendPerLocation(dst []Finding, ranges []Range, proto Finding) []Finding {
	for _, rng := range ranges {
		f := proto
		f.Range = rng
		dst = append(dst, f)
	}
	return dst
}

// memoKey joins the document uri and a keyed content hash. The uri
// prefix lets CloseDocument clear a document's entries; the hash makes
// an edit a natural cache miss.
func memoKey(uri string, content []byte) string {
	return fmt.Sprintf("%s:%016x", uri, highwayhash.Sum64(content, memoHashKey))
}
