package zenmill

// Position identifies a location within a template's source text, used to annotate
// nodes for diagnostics (SyntaxError, NonIterable, ExpressionError).
//
// Line and Column are 1-based. Column counts runes, not bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// DefMode names the merge strategy carried by a Def node and resolved against a Block
// during composition.
type DefMode int

const (
	DefReplace DefMode = iota
	DefAppend
	DefPrepend
)

func (m DefMode) String() string {
	switch m {
	case DefReplace:
		return "replace"
	case DefAppend:
		return "append"
	case DefPrepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// Node is the tagged variant produced by the parser (C1) and consumed by the
// composition engine (C4) and renderer emitter (C5). Each concrete type below
// corresponds to exactly one row of the Node table in §3 of the specification,
// plus ScopeNode, which exists only in composed trees (the parser never produces it).
type Node interface {
	Pos() Position
	node()
}

type base struct {
	Position Position
}

func (b base) Pos() Position { return b.Position }
func (base) node()           {}

// PlainNode is a literal run of text, emitted verbatim.
type PlainNode struct {
	base
	Text string
}

// CommentNode is the body of an XML comment, between "<!--" and "-->".
type CommentNode struct {
	base
	Content string
}

// ExprNode is an interpolation: #{...} (Escape=true) or !{...} (Escape=false).
type ExprNode struct {
	base
	Source string
	Escape bool
}

// VarNode binds Name in the current scope to the value of Source.
type VarNode struct {
	base
	Name   string
	Source string
}

// IncludeNode is a static composition site. Children are Def nodes (and, per the
// relaxed admit set described in §9, Var nodes).
type IncludeNode struct {
	base
	File     string
	Children []Node
}

// InlineNode is a raw file inclusion. Escape is derived from a "!" prefix on the
// file attribute in the source.
type InlineNode struct {
	base
	File   string
	Escape bool
}

// DefNode is a block override, carried as a child of an IncludeNode.
type DefNode struct {
	base
	Name  string
	Mode  DefMode
	Nodes []Node
}

// BlockNode is a block declaration inside a layout; Nodes is the default body.
type BlockNode struct {
	base
	Name  string
	Nodes []Node
}

// IfNode is a compound conditional: one or more When arms plus an optional
// Otherwise body.
type IfNode struct {
	base
	Whens     []*WhenNode
	Otherwise []Node
}

// WhenNode is one arm of an If.
type WhenNode struct {
	base
	Source string
	Nodes  []Node
}

// EachNode iterates over an array or object, binding Name (plus the _index,
// _key, _last, _has_next companions) for each element.
type EachNode struct {
	base
	Name   string
	Source string
	Nodes  []Node
}

// ScopeNode wraps Nodes so that they are rendered in a fresh lexical scope.
// Only the composition engine produces this variant (for Include bodies, for
// whole If statements and for each When/Otherwise body, per §3 invariant 5);
// the parser never does.
type ScopeNode struct {
	base
	Nodes []Node
}
