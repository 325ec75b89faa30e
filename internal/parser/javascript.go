package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// scriptDetector covers the JavaScript family. The javascript grammar
// also parses JSX; TypeScript and TSX get their own grammars but share
// the traversal, since the expression node types are identical.
type scriptDetector struct {
	lang     string
	grammar  *sitter.Language
	strategy Strategy
}

// NewScript returns a detector for one of the script languages
// (javascript, typescript, typescriptreact). A nil strategy selects
// DefaultStrategy.
func NewScript(lang string, strategy Strategy) (Detector, error) {
	grammar := grammarFor(lang)
	if grammar == nil || lang == "css" || lang == "html" {
		return nil, fmt.Errorf("%w: %q is not a script language", ErrUnknownLanguage, lang)
	}
	if strategy == nil {
		strategy = DefaultStrategy
	}
	return &scriptDetector{lang: lang, grammar: grammar, strategy: strategy}, nil
}

func (d *scriptDetector) Language() string { return d.lang }

func (d *scriptDetector) Detect(ctx context.Context, src []byte) (*Result, error) {
	tree, err := parse(ctx, d.grammar, src)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	res := NewResult()
	res.Partial = root.HasError()
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			d.call(n, src, res)
		case "new_expression":
			d.construct(n, src, res)
		case "member_expression":
			return d.member(n, src, res)
		}
		return true
	})
	return res, nil
}

// call handles global function calls and instance method calls. Member
// paths that resolve against jsMemberPaths are left for the member
// visitor, which sees the function child right after this node.
func (d *scriptDetector) call(n *sitter.Node, src []byte, res *Result) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "identifier":
		name := nodeText(fn, src)
		if id, ok := jsGlobals[name]; ok {
			res.Add(Occurrence{ID: id, Token: name, Range: nodeRange(n)})
		}
	case "member_expression":
		if segs, ok := pathOf(fn, src); ok {
			if _, matched := lookupPath(segs); matched {
				return
			}
		}
		d.instanceMethod(fn, src, res)
	}
}

// construct handles `new X(...)`, including the window-qualified form.
func (d *scriptDetector) construct(n *sitter.Node, src []byte, res *Result) {
	ctor := n.ChildByFieldName("constructor")
	if ctor == nil {
		return
	}
	var name string
	switch ctor.Type() {
	case "identifier":
		name = nodeText(ctor, src)
	case "member_expression":
		segs, ok := pathOf(ctor, src)
		if !ok {
			return
		}
		segs = stripGlobalRoot(segs)
		if len(segs) != 1 {
			return
		}
		name = segs[0]
	default:
		return
	}
	if id, ok := jsConstructors[name]; ok {
		res.Add(Occurrence{ID: id, Token: nodeText(ctor, src), Range: nodeRange(n)})
	}
}

// member resolves a dotted chain against jsMemberPaths, longest prefix
// first. A resolved or fully static chain prunes the walk: any inner
// chain is a prefix this lookup already tried. Dynamic chains keep the
// walk going so calls nested inside them are still seen.
func (d *scriptDetector) member(n *sitter.Node, src []byte, res *Result) bool {
	segs, ok := pathOf(n, src)
	if !ok {
		return true
	}
	if id, matched := lookupPath(segs); matched {
		res.Add(Occurrence{ID: id, Token: strings.Join(segs, "."), Range: nodeRange(n)})
	}
	return false
}

// instanceMethod attributes a method call to Array or String when the
// name is on either prototype's table, consulting the strategy for
// names that exist on both.
func (d *scriptDetector) instanceMethod(fn *sitter.Node, src []byte, res *Result) {
	obj := fn.ChildByFieldName("object")
	prop := fn.ChildByFieldName("property")
	if obj == nil || prop == nil || prop.Type() != "property_identifier" {
		return
	}
	name := nodeText(prop, src)
	arrID, inArr := arrayMethods[name]
	strID, inStr := stringMethods[name]

	var id string
	switch {
	case inArr && inStr:
		if d.strategy(nodeText(obj, src)) == KindString {
			id = strID
		} else {
			id = arrID
		}
	case inArr:
		id = arrID
	case inStr:
		id = strID
	default:
		return
	}
	res.Add(Occurrence{ID: id, Token: nodeText(fn, src), Range: nodeRange(fn)})
}

// pathOf reconstructs the dotted path of a member chain. ok is false
// when the chain involves anything but plain identifiers and property
// names: calls, subscripts and private fields make a chain dynamic and
// unmappable.
func pathOf(n *sitter.Node, src []byte) ([]string, bool) {
	obj := unwrap(n.ChildByFieldName("object"))
	prop := n.ChildByFieldName("property")
	if obj == nil || prop == nil || prop.Type() != "property_identifier" {
		return nil, false
	}

	var segs []string
	switch obj.Type() {
	case "identifier", "this":
		segs = []string{nodeText(obj, src)}
	case "member_expression":
		inner, ok := pathOf(obj, src)
		if !ok {
			return nil, false
		}
		segs = inner
	default:
		return nil, false
	}
	return append(segs, nodeText(prop, src)), true
}

// unwrap skips the TypeScript wrapper nodes that decorate an expression
// without changing what it refers to.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "non_null_expression", "as_expression", "satisfies_expression", "parenthesized_expression":
			n = n.NamedChild(0)
		default:
			return n
		}
	}
	return nil
}

// stripGlobalRoot drops a leading window/globalThis/self segment.
func stripGlobalRoot(segs []string) []string {
	if len(segs) > 1 {
		switch segs[0] {
		case "window", "globalThis", "self":
			return segs[1:]
		}
	}
	return segs
}

// lookupPath finds the longest prefix of segs present in
// jsMemberPaths.
func lookupPath(segs []string) (string, bool) {
	segs = stripGlobalRoot(segs)
	for k := len(segs); k >= 1; k-- {
		if id, ok := jsMemberPaths[strings.Join(segs[:k], ".")]; ok {
			return id, true
		}
	}
	return "", false
}
