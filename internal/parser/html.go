package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// htmlDetector surfaces allowlisted tag names and global attributes.
// Script and style bodies are opaque here; they are separate documents
// as far as detection is concerned.
type htmlDetector struct{}

func (htmlDetector) Language() string { return "html" }

func (htmlDetector) Detect(ctx context.Context, src []byte) (*Result, error) {
	tree, err := parse(ctx, grammarFor("html"), src)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	res := NewResult()
	res.Partial = root.HasError()
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "start_tag", "self_closing_tag":
			htmlTag(n, src, res)
		}
		return true
	})
	return res, nil
}

func htmlTag(n *sitter.Node, src []byte, res *Result) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "tag_name":
			name := strings.ToLower(nodeText(c, src))
			if id, ok := htmlElements[name]; ok {
				res.Add(Occurrence{ID: id, Token: name, Range: nodeRange(c)})
			}
		case "attribute":
			an := c.NamedChild(0)
			if an == nil || an.Type() != "attribute_name" {
				continue
			}
			name := strings.ToLower(nodeText(an, src))
			if id, ok := htmlAttributes[name]; ok {
				res.Add(Occurrence{ID: id, Token: name, Range: nodeRange(an)})
			}
		}
	}
}
