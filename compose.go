package zenmill

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// compositionContext is a CompositionContext stack frame (§3): the file the
// walk is currently resolving relative paths against, the block definitions
// collected at this Include site, and a link to the enclosing frame. Frames
// are stack-scoped: a frame's lifetime strictly nests its parent's, so a plain
// pointer chain is enough; no frame outlives the composeNodes call that
// created it.
type compositionContext struct {
	file   string
	defs   map[string]*defEntry
	parent *compositionContext
}

type defEntry struct {
	mode  DefMode
	nodes []Node
}

// lookupDef walks the context chain outward looking for a definition for name,
// the way Block resolution must see definitions from any enclosing Include
// (§4.4: "definitions in an outer Include propagate via the parent chain").
func (c *compositionContext) lookupDef(name string) (*defEntry, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if e, ok := cur.defs[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// mergeDef applies §4.4's Def merge law: replace wins outright; append puts
// the new body after whatever is already stored; prepend puts it before.
func mergeDef(defs map[string]*defEntry, name string, mode DefMode, body []Node) {
	existing, ok := defs[name]
	if !ok {
		defs[name] = &defEntry{mode: mode, nodes: body}
		return
	}
	switch mode {
	case DefReplace:
		defs[name] = &defEntry{mode: mode, nodes: body}
	case DefAppend:
		merged := make([]Node, 0, len(existing.nodes)+len(body))
		merged = append(merged, existing.nodes...)
		merged = append(merged, body...)
		defs[name] = &defEntry{mode: mode, nodes: merged}
	case DefPrepend:
		merged := make([]Node, 0, len(existing.nodes)+len(body))
		merged = append(merged, body...)
		merged = append(merged, existing.nodes...)
		defs[name] = &defEntry{mode: mode, nodes: merged}
	}
}

// composer runs C4 against a single Job: it walks a parsed tree, resolving
// Include/Block/Def/Inline into a composed tree using only the node variants
// render.go knows how to lower (Plain, Comment, Expr, Var, If, When, Each,
// ScopeNode).
type composer struct {
	job *Job
}

// compose is the entry point: it composes a file's parsed node list under a
// root context (no parent, no pending defs).
func (c *composer) compose(ctx context.Context, file string, nodes []Node) ([]Node, error) {
	root := &compositionContext{file: file}
	return c.composeNodes(ctx, root, nodes)
}

// composeNodes composes a sibling node list under cctx. Per §5, sibling
// Include loads may be requested concurrently even though the final order is
// fixed by the textual walk that follows; prefetch warms the per-Job AST cache
// so the sequential pass below never actually blocks on more than one
// in-flight load at a time.
func (c *composer) composeNodes(ctx context.Context, cctx *compositionContext, nodes []Node) ([]Node, error) {
	c.prefetchIncludes(ctx, cctx, nodes)

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		composed, err := c.composeOne(ctx, cctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, composed...)
	}
	return out, nil
}

// prefetchIncludes issues concurrent loads for every Include directly in
// nodes. Errors are discarded here; the sequential pass below recomputes the
// same path resolution and load deterministically (the AST cache makes a
// second load of an already-attempted path free, whether it succeeded or
// failed) and reports the error with the right node context.
func (c *composer) prefetchIncludes(ctx context.Context, cctx *compositionContext, nodes []Node) {
	var g errgroup.Group
	for _, n := range nodes {
		inc, ok := n.(*IncludeNode)
		if !ok {
			continue
		}
		inc := inc
		g.Go(func() error {
			path, err := localPath(cctx.file, inc.File)
			if err != nil {
				return nil //nolint:nilerr // deliberate: see doc comment
			}
			_, _ = c.job.cache.loadAndParse(ctx, c.job.loader, path)
			return nil
		})
	}
	_ = g.Wait()
}

// composeOne composes a single parsed Node, returning the zero or more
// composed Nodes it expands to (Block may expand to many; Plain/Expr/Var
// expand to exactly themselves).
func (c *composer) composeOne(ctx context.Context, cctx *compositionContext, n Node) ([]Node, error) {
	switch t := n.(type) {
	case *PlainNode:
		return []Node{t}, nil

	case *CommentNode:
		if c.job.options.StripComments {
			return nil, nil
		}
		return []Node{t}, nil

	case *ExprNode, *VarNode:
		return []Node{n}, nil

	case *IfNode:
		return c.composeIf(ctx, cctx, t)

	case *EachNode:
		body, err := c.composeNodes(ctx, cctx, t.Nodes)
		if err != nil {
			return nil, err
		}
		return []Node{&EachNode{base: t.base, Name: t.Name, Source: t.Source, Nodes: body}}, nil

	case *BlockNode:
		return c.composeBlock(ctx, cctx, t)

	case *IncludeNode:
		node, err := c.composeInclude(ctx, cctx, t)
		if err != nil {
			return nil, err
		}
		return []Node{node}, nil

	case *InlineNode:
		return c.composeInline(ctx, cctx, t)

	default:
		return nil, &UnknownNodeType{Tag: nodeTag(n)}
	}
}

func (c *composer) composeIf(ctx context.Context, cctx *compositionContext, ifn *IfNode) ([]Node, error) {
	whens := make([]*WhenNode, len(ifn.Whens))
	for i, w := range ifn.Whens {
		body, err := c.composeNodes(ctx, cctx, w.Nodes)
		if err != nil {
			return nil, err
		}
		// Each branch gets its own nested scope (§4.4: "lower each When's body
		// under its own nested scope").
		whens[i] = &WhenNode{base: w.base, Source: w.Source, Nodes: []Node{&ScopeNode{base: w.base, Nodes: body}}}
	}

	var otherwise []Node
	if ifn.Otherwise != nil {
		body, err := c.composeNodes(ctx, cctx, ifn.Otherwise)
		if err != nil {
			return nil, err
		}
		otherwise = []Node{&ScopeNode{base: ifn.base, Nodes: body}}
	}

	// The If as a whole also gets a fresh scope (§3 invariant 5).
	inner := &IfNode{base: ifn.base, Whens: whens, Otherwise: otherwise}
	return []Node{&ScopeNode{base: ifn.base, Nodes: []Node{inner}}}, nil
}

func (c *composer) composeBlock(ctx context.Context, cctx *compositionContext, blk *BlockNode) ([]Node, error) {
	composedDefault, err := c.composeNodes(ctx, cctx, blk.Nodes)
	if err != nil {
		return nil, err
	}

	entry, ok := cctx.lookupDef(blk.Name)
	if !ok {
		return composedDefault, nil
	}

	switch entry.mode {
	case DefReplace:
		return entry.nodes, nil
	case DefAppend:
		out := make([]Node, 0, len(composedDefault)+len(entry.nodes))
		out = append(out, composedDefault...)
		out = append(out, entry.nodes...)
		return out, nil
	case DefPrepend:
		out := make([]Node, 0, len(composedDefault)+len(entry.nodes))
		out = append(out, entry.nodes...)
		out = append(out, composedDefault...)
		return out, nil
	default:
		return composedDefault, nil
	}
}

func (c *composer) composeInclude(ctx context.Context, cctx *compositionContext, inc *IncludeNode) (Node, error) {
	// The new context's file starts out inherited from the parent: Def
	// children are textually part of the including file, so their own nested
	// Include/Inline sites must resolve relative to it, not to the file being
	// included (§4.4).
	newCtx := &compositionContext{file: cctx.file, defs: map[string]*defEntry{}, parent: cctx}

	var prelude []Node
	for _, child := range inc.Children {
		switch cn := child.(type) {
		case *DefNode:
			body, err := c.composeNodes(ctx, newCtx, cn.Nodes)
			if err != nil {
				return nil, err
			}
			mergeDef(newCtx.defs, cn.Name, cn.Mode, body)
		case *VarNode:
			// Open question (§9): Vars admitted as Include children evaluate
			// into the Include's new scope, before the included file's body.
			prelude = append(prelude, cn)
		default:
			return nil, &UnknownNodeType{Tag: nodeTag(child)}
		}
	}

	includedPath, err := localPath(cctx.file, inc.File)
	if err != nil {
		return nil, err
	}

	rawNodes, err := c.job.cache.loadAndParse(ctx, c.job.loader, includedPath)
	if err != nil {
		return nil, err
	}

	// Now descend: the included file's own relative references resolve
	// against itself.
	newCtx.file = includedPath

	body, err := c.composeNodes(ctx, newCtx, rawNodes)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(prelude)+len(body))
	nodes = append(nodes, prelude...)
	nodes = append(nodes, body...)

	// Include introduces a fresh lexical scope for the included body (§3
	// invariant 5).
	return &ScopeNode{base: inc.base, Nodes: nodes}, nil
}

func (c *composer) composeInline(ctx context.Context, cctx *compositionContext, inl *InlineNode) ([]Node, error) {
	path, err := localPath(cctx.file, inl.File)
	if err != nil {
		return nil, err
	}
	content, err := c.job.cache.loadRaw(ctx, c.job.loader, path)
	if err != nil {
		return nil, err
	}
	if inl.Escape {
		content = escapeHTML(content)
	}
	return []Node{&PlainNode{base: inl.base, Text: content}}, nil
}

// nodeTag names a Node variant for UnknownNodeType diagnostics.
func nodeTag(n Node) string {
	switch n.(type) {
	case *PlainNode:
		return "plain"
	case *CommentNode:
		return "comment"
	case *ExprNode:
		return "expr"
	case *VarNode:
		return "var"
	case *IncludeNode:
		return "include"
	case *InlineNode:
		return "inline"
	case *DefNode:
		return "def"
	case *BlockNode:
		return "block"
	case *IfNode:
		return "if"
	case *WhenNode:
		return "when"
	case *EachNode:
		return "each"
	case *ScopeNode:
		return "scope"
	default:
		return "unknown"
	}
}
