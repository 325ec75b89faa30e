package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// cssDetector surfaces denylisted property declarations and every
// at-rule. Vendor-prefixed properties always surface: under the
// unprefixed record when the dataset has one, otherwise under the
// written name so custom rules can still see them.
type cssDetector struct{}

func (cssDetector) Language() string { return "css" }

func (cssDetector) Detect(ctx context.Context, src []byte) (*Result, error) {
	tree, err := parse(ctx, grammarFor("css"), src)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	res := NewResult()
	res.Partial = root.HasError()
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "declaration":
			cssProperty(n, src, res)
		case "media_statement", "supports_statement", "keyframes_statement",
			"import_statement", "charset_statement", "namespace_statement", "at_rule":
			cssAtRule(n, src, res)
		}
		return true
	})
	return res, nil
}

func cssProperty(n *sitter.Node, src []byte, res *Result) {
	var prop *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "property_name" {
			prop = c
			break
		}
	}
	if prop == nil {
		return
	}

	name := strings.ToLower(nodeText(prop, src))
	id, ok := cssProperties[name]
	if !ok {
		base, prefixed := stripVendorPrefix(name)
		if !prefixed {
			return
		}
		if mapped, known := cssProperties[base]; known {
			id = mapped
		} else {
			id = "css.properties." + name
		}
	}
	res.Add(Occurrence{ID: id, Token: name, Range: nodeRange(prop)})
}

func cssAtRule(n *sitter.Node, src []byte, res *Result) {
	kw := n.Child(0)
	if kw == nil {
		return
	}
	tok := nodeText(kw, src)
	if !strings.HasPrefix(tok, "@") {
		return
	}
	name := strings.ToLower(strings.TrimPrefix(tok, "@"))
	if base, prefixed := stripVendorPrefix(name); prefixed {
		name = base
	}
	if name == "" {
		return
	}
	res.Add(Occurrence{ID: "css.at-rules." + name, Token: tok, Range: nodeRange(kw)})
}
