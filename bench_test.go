package baselint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// benchCSSSource is a realistic stylesheet exercising the css detector:
// custom properties, tracked property names and nested at-rules.
const benchCSSSource = `:root {
  --accent: #5b8def;
  --radius: 6px;
}

.layout {
  display: grid;
  grid-template-columns: 240px auto;
  gap: 16px;
}

.sidebar {
  float: left;
  user-select: none;
  overscroll-behavior: contain;
  scrollbar-width: thin;
}

.card {
  border-radius: var(--radius);
  container-type: inline-size;
  content-visibility: auto;
  backdrop-filter: blur(6px);
}

.card:hover {
  transform: translateY(-2px);
  box-shadow: 0 4px 12px rgba(0, 0, 0, 0.2);
}

@media (min-width: 900px) {
  .layout {
    grid-template-columns: 280px auto;
  }
}

@supports (backdrop-filter: blur(1px)) {
  .hero {
    backdrop-filter: blur(12px);
  }
}

@keyframes pulse {
  from { opacity: 0.6; }
  to { opacity: 1; }
}
`

// benchJSSource is a realistic module with the call, member and
// constructor shapes the script detector tracks.
const benchJSSource = `const listeners = new Map();

export function on(event, handler) {
  if (!listeners.has(event)) {
    listeners.set(event, []);
  }
  listeners.get(event).push(handler);
}

export function emit(event, payload) {
  const handlers = listeners.get(event) ?? [];
  for (const handler of handlers) {
    queueMicrotask(() => handler(payload));
  }
}

export async function fetchJSON(url, signal) {
  const res = await fetch(url, { signal });
  if (!res.ok) {
    throw new Error(` + "`request failed: ${res.status}`" + `);
  }
  return res.json();
}

export async function loadDashboard(userId) {
  const controller = new AbortController();
  const [profile, activity] = await Promise.all([
    fetchJSON(` + "`/api/users/${userId}`" + `, controller.signal),
    fetchJSON(` + "`/api/users/${userId}/activity`" + `, controller.signal),
  ]);
  return { profile, activity: activity.toSorted((a, b) => b.at - a.at) };
}

export function observe(el, onVisible) {
  const observer = new IntersectionObserver((entries) => {
    const visible = entries.filter((e) => e.isIntersecting);
    if (visible.length > 0) {
      onVisible(visible);
    }
  });
  observer.observe(el);
  return observer;
}

export function persist(key, value) {
  localStorage.setItem(key, JSON.stringify(value));
  return structuredClone(value);
}
`

// newBenchAnalyzer builds an Analyzer outside the timed region.
func newBenchAnalyzer(b *testing.B) *Analyzer {
	b.Helper()
	a, err := New()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(a.Close)
	return a
}

// BenchmarkAnalyze_CSS measures a cold pass over a stylesheet. Each
// iteration uses a fresh URI so the parse memo never serves it.
func BenchmarkAnalyze_CSS(b *testing.B) {
	a := newBenchAnalyzer(b)
	ctx := context.Background()
	src := []byte(benchCSSSource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc := NewMemDocument(fmt.Sprintf("mem://bench/%d.css", i), "css", src)
		if _, err := a.Analyze(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAnalyze_JS measures a cold pass over a JavaScript module.
func BenchmarkAnalyze_JS(b *testing.B) {
	a := newBenchAnalyzer(b)
	ctx := context.Background()
	src := []byte(benchJSSource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc := NewMemDocument(fmt.Sprintf("mem://bench/%d.js", i), "javascript", src)
		if _, err := a.Analyze(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAnalyze_Memoized measures the repeat-pass path: the parse
// comes from the memo and only resolution runs.
func BenchmarkAnalyze_Memoized(b *testing.B) {
	a := newBenchAnalyzer(b)
	ctx := context.Background()
	doc := NewMemDocument("mem://bench/app.js", "javascript", []byte(benchJSSource))
	if _, err := a.Analyze(ctx, doc); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Analyze(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAudit_Unchanged measures re-auditing a workspace where
// nothing changed: discovery, hashing and stored-result replay, no
// parsing.
func BenchmarkAudit_Unchanged(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < 4; i++ {
		css := filepath.Join(dir, fmt.Sprintf("styles-%d.css", i))
		js := filepath.Join(dir, fmt.Sprintf("app-%d.js", i))
		if err := os.WriteFile(css, []byte(benchCSSSource), 0644); err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(js, []byte(benchJSSource), 0644); err != nil {
			b.Fatal(err)
		}
	}

	a := newBenchAnalyzer(b)
	auditor, err := NewAuditor(a, filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { auditor.Close() })

	ctx := context.Background()
	if _, err := auditor.Audit(ctx, dir); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := auditor.Audit(ctx, dir); err != nil {
			b.Fatal(err)
		}
	}
}
