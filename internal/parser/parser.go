// Package parser turns source text into the set of web platform
// features it uses.
//
// Each supported language has a Detector that parses with the matching
// tree-sitter grammar and maps syntax nodes to canonical feature ids:
// CSS works from a denylist of noteworthy property names plus every
// at-rule, while HTML and the script languages work from allowlists of
// known tags, attributes, globals and member paths. Detectors are
// stateless; every Detect call builds its own parser, so one Detector
// may serve any number of goroutines.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnknownLanguage is returned when no detector covers a language id
// or file extension.
var ErrUnknownLanguage = errors.New("unknown language")

// Detector extracts platform feature uses from one source language.
type Detector interface {
	// Language returns the canonical language id.
	Language() string
	// Detect parses src and returns the features found. Malformed
	// source is tolerated: detection proceeds on whatever the parser
	// recovered and the Result is marked Partial.
	Detect(ctx context.Context, src []byte) (*Result, error)
}

// aliases maps accepted language ids to canonical ones.
var aliases = map[string]string{
	"js":              "javascript",
	"jsx":             "javascript",
	"javascriptreact": "javascript",
	"ts":              "typescript",
	"tsx":             "typescriptreact",
}

// extLanguages maps file extensions to canonical language ids.
var extLanguages = map[string]string{
	".css":  "css",
	".html": "html",
	".htm":  "html",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".tsx":  "typescriptreact",
}

// ForLanguage returns the detector for a language id. Besides the
// canonical ids it accepts the usual short forms (js, ts, tsx) and the
// editor-style javascriptreact.
func ForLanguage(lang string) (Detector, error) {
	id := strings.ToLower(lang)
	if c, ok := aliases[id]; ok {
		id = c
	}
	switch id {
	case "css":
		return cssDetector{}, nil
	case "html":
		return htmlDetector{}, nil
	case "javascript", "typescript", "typescriptreact":
		return NewScript(id, nil)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
}

// ForPath returns the detector for a file path, keyed on extension.
func ForPath(path string) (Detector, error) {
	lang, ok := LanguageForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: no detector for %q files", ErrUnknownLanguage, strings.ToLower(filepath.Ext(path)))
	}
	return ForLanguage(lang)
}

// LanguageForPath returns the canonical language id for a file path,
// keyed on extension.
func LanguageForPath(path string) (string, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Languages returns the canonical language ids with detectors, sorted.
func Languages() []string {
	ids := []string{"css", "html", "javascript", "typescript", "typescriptreact"}
	sort.Strings(ids)
	return ids
}

func parse(ctx context.Context, lang *sitter.Language, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return tree, nil
}

// walk visits n and its named descendants depth-first, parents before
// children. The visitor returns false to prune a subtree.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func grammarFor(lang string) *sitter.Language {
	switch lang {
	case "css":
		return css.GetLanguage()
	case "html":
		return html.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "typescriptreact":
		return tsx.GetLanguage()
	}
	return nil
}
