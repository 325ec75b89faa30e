// Package baselint detects web platform features in CSS, JavaScript,
// TypeScript and HTML sources and reports the ones that are not
// Baseline, meaning not yet interoperable across the major browser
// engines.
//
// # Pipeline
//
// Analysis runs in three phases:
//
//  1. Detect: parse the document with tree-sitter and map syntax nodes
//     to canonical feature ids (css.properties.float,
//     api.Clipboard.writeText, html.elements.dialog, ...). CSS uses a
//     denylist of noteworthy properties plus every at-rule; HTML and
//     the script languages use allowlists of tags, attributes, globals
//     and member paths.
//
//  2. Resolve: look each id up in the bundled Baseline dataset. Ids
//     with baseline false yield unsupported findings; ids at baseline
//     "low" optionally yield limited-support findings. Unknown ids
//     fail open with no finding, so universal platform features never
//     produce noise.
//
//  3. Extend: user rule scripts written in Risor may inspect the
//     detected features and add their own findings.
//
// # Usage
//
// Construct one Analyzer and share it:
//
//	a, err := baselint.New()
//	if err != nil { ... }
//	defer a.Close()
//
//	doc := baselint.NewMemDocument("file:///app.css", "css", src)
//	an, err := a.Analyze(ctx, doc)
//	for _, f := range an.Findings { ... }
//
// Parse results are memoized by (uri, content hash), so re-analyzing
// an unchanged document skips the parse. Editor-style callers use
// [Analyzer.AnalyzeDebounced], which coalesces rapid edits per URI and
// delivers only the newest result.
//
// # Workspace audits
//
// [Auditor] walks a source tree, analyzes every supported file with a
// bounded worker pool, and persists results in a SQLite store so
// unchanged files are skipped on the next run.
package baselint
