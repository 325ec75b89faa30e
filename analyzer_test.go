package baselint

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhollis/baselint/internal/catalog"
	"github.com/mhollis/baselint/internal/report"
	"github.com/mhollis/baselint/internal/rules"
)

// testDataset is a four-record slice of the real dataset: one feature
// per Baseline tier plus an at-rule, enough to exercise every resolve
// path.
const testDataset = `{
	"version": "2025.8.1-test",
	"features": [
		{"id": "css.properties.float", "name": "float", "status": {"baseline": false}},
		{"id": "css.properties.text-wrap", "name": "text-wrap",
		 "status": {"baseline": "low", "baseline_low_date": "2024-03-05"}},
		{"id": "css.at-rules.container", "name": "Container queries",
		 "status": {"baseline": "high", "baseline_low_date": "2023-02-14", "baseline_high_date": "2025-08-14"}},
		{"id": "api.fetch", "name": "fetch", "status": {"baseline": "high"}}
	]
}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(testDataset))
	require.NoError(t, err)
	return cat
}

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	opts = append([]Option{WithCatalog(testCatalog(t))}, opts...)
	a, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

type recordedReport struct {
	category report.Category
	severity report.Severity
	msg      string
	fields   map[string]any
}

type recordingReporter struct {
	mu    sync.Mutex
	calls []recordedReport
}

func (r *recordingReporter) Report(cat report.Category, sev report.Severity, msg string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedReport{category: cat, severity: sev, msg: msg, fields: fields})
}

func (r *recordingReporter) byCategory(cat report.Category) []recordedReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedReport
	for _, c := range r.calls {
		if c.category == cat {
			out = append(out, c)
		}
	}
	return out
}

func TestNew_DefaultsAndClose(t *testing.T) {
	a := newTestAnalyzer(t)

	assert.Equal(t, DefaultConfig(), a.Config())
	assert.Equal(t, "2025.8.1-test", a.DatasetVersion())

	rec, ok := a.Record("css.properties.float")
	require.True(t, ok)
	assert.Equal(t, "float", rec.Name)

	_, ok = a.Record("css.properties.bogus")
	assert.False(t, ok)

	// Close is idempotent.
	a.Close()
	a.Close()
}

func TestAnalyzer_FlagsUnsupportedFeature(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///app.css", "css", []byte(`.box { float: left; }`))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "file:///app.css", an.URI)
	assert.Equal(t, "css", an.Language)
	assert.False(t, an.FromCache)
	assert.False(t, an.Partial)
	require.Len(t, an.Features, 1)
	assert.Equal(t, "css.properties.float", an.Features[0].ID)

	require.Len(t, an.Findings, 1)
	f := an.Findings[0]
	assert.Equal(t, ReasonUnsupported, f.Reason)
	assert.Equal(t, SeverityWarning, f.Severity)
	assert.Equal(t, "css.properties.float", f.FeatureID)
	assert.Equal(t, "float", f.FeatureName)
	assert.Contains(t, f.Message, "float")
	assert.Equal(t, Range{
		Start: Position{Line: 0, Column: 7},
		End:   Position{Line: 0, Column: 12},
	}, f.Range)
}

func TestAnalyzer_SupportedFeaturesProduceNoFindings(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///app.css", "css", []byte(`a { text-wrap: balance; }`))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, an.Features, 1, "newly available features are still detected")
	assert.Equal(t, "css.properties.text-wrap", an.Features[0].ID)
	assert.Empty(t, an.Findings, "baseline low is quiet unless the flag is on")
}

func TestAnalyzer_FlagNewlyAvailable(t *testing.T) {
	a := newTestAnalyzer(t, WithFlagNewlyAvailable(true))
	doc := NewMemDocument("file:///app.css", "css", []byte(`a { text-wrap: balance; }`))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, an.Findings, 1)
	f := an.Findings[0]
	assert.Equal(t, ReasonLimited, f.Reason)
	assert.Equal(t, SeverityInfo, f.Severity)
	assert.Equal(t, "css.properties.text-wrap", f.FeatureID)
	assert.Contains(t, f.Message, "2024-03-05")
}

func TestAnalyzer_FindingPerOccurrence(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///app.css", "css", []byte(".a { float: left; }\n.b { float: right; }"))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, an.Features, 1, "features dedup by id")
	require.Len(t, an.Findings, 2, "findings do not")
	assert.Equal(t, 0, an.Findings[0].Range.Start.Line)
	assert.Equal(t, 1, an.Findings[1].Range.Start.Line)
}

func TestAnalyzer_SecondPassHitsCache(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///app.css", "css", []byte(`.box { float: left; }`))

	first, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Findings, second.Findings, "resolve re-runs against the cached parse")

	stats := a.Stats()
	assert.Equal(t, 1, stats.Memo.Len)
	assert.Equal(t, uint64(1), stats.Memo.Hits)
	assert.Equal(t, uint64(1), stats.Memo.Misses)
}

func TestAnalyzer_EditMissesCache(t *testing.T) {
	a := newTestAnalyzer(t)
	uri := "file:///app.css"

	v1, err := a.Analyze(context.Background(), NewMemDocument(uri, "css", []byte(`.a { float: left; }`)))
	require.NoError(t, err)
	v2, err := a.Analyze(context.Background(), NewMemDocument(uri, "css", []byte(`.a { float: none; }`)))
	require.NoError(t, err)

	assert.False(t, v1.FromCache)
	assert.False(t, v2.FromCache, "changed content is a cache miss")
	assert.Equal(t, 2, a.Stats().Memo.Len, "both revisions keyed by content hash")

	dropped := a.CloseDocument(uri)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 0, a.Stats().Memo.Len)
}

func TestAnalyzer_RejectsOversizedDocument(t *testing.T) {
	rep := &recordingReporter{}
	cfg := DefaultConfig()
	cfg.MaxFileSize = 16
	a := newTestAnalyzer(t, WithConfig(cfg), WithReporter(rep))

	doc := NewMemDocument("file:///big.css", "css", []byte(`.box { float: left; }`))
	an, err := a.Analyze(context.Background(), doc)

	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Nil(t, an)
	require.Len(t, rep.byCategory(report.CategoryValidation), 1)
}

func TestAnalyzer_UnknownLanguage(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///prog.f90", "fortran", []byte(`print *, "hi"`))

	_, err := a.Analyze(context.Background(), doc)
	require.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///app.css", "css", []byte(`.box { float: left; }`))

	// Warm the parse memo so cancellation hits the resolve phase.
	_, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	an, err := a.Analyze(ctx, doc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, an)
}

func TestAnalyzer_ParseTimeoutIsSoft(t *testing.T) {
	rep := &recordingReporter{}
	cfg := DefaultConfig()
	cfg.ParseTimeout = time.Millisecond
	a := newTestAnalyzer(t, WithConfig(cfg), WithReporter(rep))

	// ~2 MB of stylesheet cannot parse inside a millisecond.
	src := strings.Repeat(".a { float: left; }\n", 100_000)
	doc := NewMemDocument("file:///huge.css", "css", []byte(src))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err, "a missed deadline is not the caller's error")
	require.NotNil(t, an)
	assert.True(t, an.TimedOut)
	assert.Empty(t, an.Features)
	assert.Empty(t, an.Findings)
	assert.False(t, an.FromCache)
	require.Len(t, rep.byCategory(report.CategoryTimeout), 1)
	assert.Equal(t, 0, a.Stats().Memo.Len, "failed parses are not cached")
}

func TestAnalyzer_RuleScriptAddsFinding(t *testing.T) {
	script := rules.Script{Name: "no-float", Source: `
add_finding({
	"message": "floats are banned in new code",
	"feature_id": "css.properties.float",
	"severity": "error",
})
`}
	a := newTestAnalyzer(t, WithRuleScripts(script))
	doc := NewMemDocument("file:///app.css", "css", []byte(`.box { float: left; }`))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, an.Findings, 2, "resolve finding plus rule finding")
	assert.Equal(t, ReasonUnsupported, an.Findings[0].Reason)

	f := an.Findings[1]
	assert.Equal(t, ReasonRule, f.Reason)
	assert.Equal(t, "no-float", f.Rule)
	assert.Equal(t, SeverityError, f.Severity)
	assert.Equal(t, "floats are banned in new code", f.Message)
	assert.Equal(t, "float", f.FeatureName, "feature names resolve for rule findings too")
	assert.Equal(t, Range{
		Start: Position{Line: 0, Column: 7},
		End:   Position{Line: 0, Column: 12},
	}, f.Range)
}

func TestAnalyzer_AnalyzeDebouncedDeliversNewestOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceInterval = 100 * time.Millisecond
	a := newTestAnalyzer(t, WithConfig(cfg))

	var mu sync.Mutex
	var got []*Analysis
	sink := func(an *Analysis, err error) {
		require.NoError(t, err)
		mu.Lock()
		got = append(got, an)
		mu.Unlock()
	}

	uri := "file:///app.css"
	a.AnalyzeDebounced(NewMemDocument(uri, "css", []byte(`.a { float: left; }`)), sink)
	a.AnalyzeDebounced(NewMemDocument(uri, "css", []byte(`.a { text-wrap: pretty; }`)), sink)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Give a superseded first pass time to surface if it wrongly fired.
	time.Sleep(3 * cfg.DebounceInterval)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1, "the earlier edit was coalesced away")
	require.Len(t, got[0].Features, 1)
	assert.Equal(t, "css.properties.text-wrap", got[0].Features[0].ID)
}

func TestAnalyzer_CloseDocumentCancelsPending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceInterval = 200 * time.Millisecond
	a := newTestAnalyzer(t, WithConfig(cfg))

	var fired sync.Map
	a.AnalyzeDebounced(NewMemDocument("file:///app.css", "css", []byte(`.a { float: left; }`)), func(*Analysis, error) {
		fired.Store("hit", true)
	})
	require.Equal(t, 1, a.Stats().PendingAnalyses)

	a.CloseDocument("file:///app.css")
	assert.Equal(t, 0, a.Stats().PendingAnalyses)

	time.Sleep(3 * cfg.DebounceInterval)
	_, ok := fired.Load("hit")
	assert.False(t, ok, "cancelled pass must not deliver")
}

func TestAnalyzer_UpdateConfig(t *testing.T) {
	rep := &recordingReporter{}
	a := newTestAnalyzer(t, WithReporter(rep))

	applied := a.UpdateConfig(Config{})
	assert.Equal(t, DefaultConfig(), applied, "zero fields fall back to defaults")
	require.Len(t, rep.byCategory(report.CategoryValidation), 1)
	assert.Equal(t, "config fields reset to defaults", rep.byCategory(report.CategoryValidation)[0].msg)
}

func TestAnalyzer_UpdateConfigShrinksMemo(t *testing.T) {
	a := newTestAnalyzer(t)
	for _, uri := range []string{"file:///a.css", "file:///b.css", "file:///c.css", "file:///d.css"} {
		_, err := a.Analyze(context.Background(), NewMemDocument(uri, "css", []byte(`.x { float: left; }`)))
		require.NoError(t, err)
	}
	require.Equal(t, 4, a.Stats().Memo.Len)

	cfg := DefaultConfig()
	cfg.MemoCapacity = 2
	a.UpdateConfig(cfg)
	assert.Equal(t, 2, a.Stats().Memo.Len)
}

func TestAnalyzer_Stats(t *testing.T) {
	a := newTestAnalyzer(t)
	doc := NewMemDocument("file:///app.css", "css", []byte(`.box { float: left; }`))

	_, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	stats := a.Stats()
	assert.Equal(t, 1, stats.Memo.Len)
	assert.Equal(t, uint64(1), stats.Memo.Hits)
	assert.Equal(t, uint64(1), stats.ResolverHits, "second pass serves the verdict from memo")
	assert.Equal(t, uint64(0), stats.ResolverMisses)
	assert.Equal(t, int64(0), stats.MemoryUsed, "passes release what they track")
	assert.Equal(t, 0, stats.PendingAnalyses)
}

func TestAnalyzer_PartialSourceStillYieldsFindings(t *testing.T) {
	rep := &recordingReporter{}
	a := newTestAnalyzer(t, WithReporter(rep))
	doc := NewMemDocument("file:///broken.css", "css", []byte("body { float: left; } @@@"))

	an, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, an.Partial)
	require.NotEmpty(t, an.Findings, "detection proceeds on the recovered tree")
	assert.Equal(t, "css.properties.float", an.Findings[0].FeatureID)
	require.Len(t, rep.byCategory(report.CategoryParser), 1)

	// The cached pass does not re-report the syntax errors.
	_, err = a.Analyze(context.Background(), doc)
	require.NoError(t, err)
	assert.Len(t, rep.byCategory(report.CategoryParser), 1)
}
