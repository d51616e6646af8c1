// Package exprlang implements the expression sub-language that ZenMill treats
// as an opaque compile/evaluate capability: EXPR source text in, a value or
// error out, against an environment of named variables.
//
// The default implementation is backed by github.com/expr-lang/expr, the way
// the teacher's chtml package compiles interpolated expressions via
// expr.Compile and runs them through a vm.VM (see chtml/expr.go).
package exprlang

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Program is a compiled expression, ready to be run repeatedly against
// different environments.
type Program interface {
	Run(env map[string]any) (any, error)
}

// Evaluator compiles EXPR source text into a reusable Program. Compilation
// happens once per expression site in the composed tree (at lowering time,
// C5); Run is called once per render.
type Evaluator interface {
	Compile(source string) (Program, error)
}

// Expr is the default Evaluator, backed by expr-lang/expr. Its zero value is
// ready to use.
type Expr struct{}

// New returns the default expr-lang-backed Evaluator.
func New() Expr { return Expr{} }

func (Expr) Compile(source string) (Program, error) {
	prog, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &program{prog: prog}, nil
}

// program holds a compiled expression. Run allocates its own vm.VM per call
// rather than sharing one (as the teacher's component does for a single
// single-threaded evaluation tree) because a Renderer produced by this
// package must be safe to run concurrently for multiple requests.
type program struct {
	prog *vm.Program
}

func (p *program) Run(env map[string]any) (any, error) {
	var v vm.VM
	return v.Run(p.prog, env)
}
