package zenmill

import (
	"fmt"
	"strings"

	"github.com/dpotapov/zenmill/exprlang"
)

// renderStep is one lowered unit of output: write to out (and possibly read
// or write scope) for a single render. A composed tree lowers to a sequence
// of these, closing over their compiled expressions so that render(data)
// performs no further compilation (§4.5 point 2: synchronous render).
type renderStep func(out *strings.Builder, scope Scope) error

// lowerer turns a composed tree (produced by composer, using only the
// Plain/Comment/Expr/Var/If/When/Each/ScopeNode variants) into renderSteps,
// compiling every EXPR source string exactly once via ev.
type lowerer struct {
	ev exprlang.Evaluator
}

func (l *lowerer) compile(pos Position, source string) (exprlang.Program, error) {
	prog, err := l.ev.Compile(source)
	if err != nil {
		return nil, &ExpressionError{Pos: pos, Expr: source, Err: err}
	}
	return prog, nil
}

// lowerSequence lowers nodes to a single step that runs each of their steps
// in order against the same scope it is given.
func (l *lowerer) lowerSequence(nodes []Node) (renderStep, error) {
	steps := make([]renderStep, 0, len(nodes))
	for _, n := range nodes {
		step, err := l.lowerOne(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return func(out *strings.Builder, scope Scope) error {
		for _, step := range steps {
			if err := step(out, scope); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func (l *lowerer) lowerOne(n Node) (renderStep, error) {
	switch t := n.(type) {
	case *PlainNode:
		text := t.Text
		return func(out *strings.Builder, _ Scope) error {
			out.WriteString(text)
			return nil
		}, nil

	case *CommentNode:
		text := "<!--" + t.Content + "-->"
		return func(out *strings.Builder, _ Scope) error {
			out.WriteString(text)
			return nil
		}, nil

	case *ExprNode:
		return l.lowerExpr(t)

	case *VarNode:
		return l.lowerVar(t)

	case *IfNode:
		return l.lowerIf(t)

	case *EachNode:
		return l.lowerEach(t)

	case *ScopeNode:
		return l.lowerScope(t)

	default:
		return nil, &UnknownNodeType{Tag: nodeTag(n)}
	}
}

func (l *lowerer) lowerExpr(n *ExprNode) (renderStep, error) {
	prog, err := l.compile(n.Pos(), n.Source)
	if err != nil {
		return nil, err
	}
	pos, source, escape := n.Pos(), n.Source, n.Escape
	return func(out *strings.Builder, scope Scope) error {
		v, err := prog.Run(scope.Vars())
		if err != nil {
			return &ExpressionError{Pos: pos, Expr: source, Err: err}
		}
		s := stringify(v)
		if escape {
			s = escapeHTML(s)
		}
		out.WriteString(s)
		return nil
	}, nil
}

func (l *lowerer) lowerVar(n *VarNode) (renderStep, error) {
	prog, err := l.compile(n.Pos(), n.Source)
	if err != nil {
		return nil, err
	}
	pos, source, name := n.Pos(), n.Source, n.Name
	return func(_ *strings.Builder, scope Scope) error {
		v, err := prog.Run(scope.Vars())
		if err != nil {
			return &ExpressionError{Pos: pos, Expr: source, Err: err}
		}
		scope.Set(name, v)
		return nil
	}, nil
}

func (l *lowerer) lowerIf(n *IfNode) (renderStep, error) {
	type branch struct {
		prog exprlang.Program
		pos  Position
		src  string
		step renderStep
	}

	branches := make([]branch, len(n.Whens))
	for i, w := range n.Whens {
		prog, err := l.compile(w.Pos(), w.Source)
		if err != nil {
			return nil, err
		}
		step, err := l.lowerSequence(w.Nodes)
		if err != nil {
			return nil, err
		}
		branches[i] = branch{prog: prog, pos: w.Pos(), src: w.Source, step: step}
	}

	var otherwiseStep renderStep
	if n.Otherwise != nil {
		step, err := l.lowerSequence(n.Otherwise)
		if err != nil {
			return nil, err
		}
		otherwiseStep = step
	}

	return func(out *strings.Builder, scope Scope) error {
		for _, b := range branches {
			v, err := b.prog.Run(scope.Vars())
			if err != nil {
				return &ExpressionError{Pos: b.pos, Expr: b.src, Err: err}
			}
			if isTruthy(v) {
				return b.step(out, scope)
			}
		}
		if otherwiseStep != nil {
			return otherwiseStep(out, scope)
		}
		return nil
	}, nil
}

func (l *lowerer) lowerEach(n *EachNode) (renderStep, error) {
	prog, err := l.compile(n.Pos(), n.Source)
	if err != nil {
		return nil, err
	}
	body, err := l.lowerSequence(n.Nodes)
	if err != nil {
		return nil, err
	}
	pos, source, name := n.Pos(), n.Source, n.Name

	return func(out *strings.Builder, scope Scope) error {
		v, err := prog.Run(scope.Vars())
		if err != nil {
			return &ExpressionError{Pos: pos, Expr: source, Err: err}
		}
		bindings, err := iterateEach(pos, v)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			child := scope.Spawn(map[string]any{
				name:              b.Value,
				name + "_index":    b.Index,
				name + "_key":      b.Key,
				name + "_last":     b.Last,
				name + "_has_next": b.HasNext,
			})
			if err := body(out, child); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func (l *lowerer) lowerScope(n *ScopeNode) (renderStep, error) {
	body, err := l.lowerSequence(n.Nodes)
	if err != nil {
		return nil, err
	}
	return func(out *strings.Builder, scope Scope) error {
		return body(out, scope.Spawn(nil))
	}, nil
}

// stringify converts an expression result to its textual form for
// interpolation. nil renders as the empty string; everything else uses its
// natural Go formatting, matching expr-lang's own value set (bool, numeric
// kinds, string, slices, maps).
func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// isTruthy applies JS-like truthiness to an expression result, since EXPR
// conditions in templates are written against that surface (§4, S4).
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
