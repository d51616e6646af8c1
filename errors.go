package zenmill

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is returned by Loader implementations (and FSLoader) when a
// logical path does not resolve to any content, mirroring the teacher's
// ErrComponentNotFound sentinel.
var ErrTemplateNotFound = errors.New("template not found")

// SyntaxError is returned by the parser (C1) on malformed input. It is fatal to the
// Job that produced it.
type SyntaxError struct {
	Path     string
	Pos      Position
	Message  string
	Expected []string
	Found    string
}

func (e *SyntaxError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Is reports whether target is a SyntaxError with the same Path and Message,
// ignoring Pos/Expected/Found.
func (e *SyntaxError) Is(target error) bool {
	var se *SyntaxError
	if errors.As(target, &se) {
		return e.Path == se.Path && e.Message == se.Message
	}
	return false
}

// LoadError wraps a failure returned by the caller-supplied Loader, annotating it
// with the path that was being loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Err.Error())
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports whether target is a LoadError for the same Path, so callers can
// match on path without unwrapping to the underlying loader error.
func (e *LoadError) Is(target error) bool {
	var le *LoadError
	if errors.As(target, &le) {
		return e.Path == le.Path
	}
	return false
}

// OutOfScope is returned when path normalization (C2) yields a path that ascends
// above the logical root.
type OutOfScope struct {
	Path string
}

func (e *OutOfScope) Error() string {
	return fmt.Sprintf("path %q escapes the template root", e.Path)
}

// Is reports whether target is an OutOfScope for the same Path.
func (e *OutOfScope) Is(target error) bool {
	var oos *OutOfScope
	if errors.As(target, &oos) {
		return e.Path == oos.Path
	}
	return false
}

// UnknownNodeType is returned by the composition engine or renderer emitter when a
// Node variant falls through an exhaustive switch. It should be unreachable by
// construction (see §9); its presence here is purely defensive.
type UnknownNodeType struct {
	Tag string
}

func (e *UnknownNodeType) Error() string {
	return fmt.Sprintf("unknown node type: %s", e.Tag)
}

// Is reports whether target is an UnknownNodeType for the same Tag, so callers
// can match by tag with errors.Is instead of a type assertion.
func (e *UnknownNodeType) Is(target error) bool {
	var u *UnknownNodeType
	if errors.As(target, &u) {
		return e.Tag == u.Tag
	}
	return false
}

// NonIterable is a render-time error raised by the each runtime primitive (C6)
// when the iterated value is neither an ordered sequence nor a keyed mapping.
type NonIterable struct {
	Pos  Position
	Type string
}

func (e *NonIterable) Error() string {
	return fmt.Sprintf("%d:%d: value of type %s is not iterable", e.Pos.Line, e.Pos.Column, e.Type)
}

// Is reports whether target is a NonIterable for the same value Type,
// ignoring Pos.
func (e *NonIterable) Is(target error) bool {
	var ni *NonIterable
	if errors.As(target, &ni) {
		return e.Type == ni.Type
	}
	return false
}

// ExpressionError is a render-time error propagated verbatim from the expression
// evaluator, annotated with the node's source location.
type ExpressionError struct {
	Pos  Position
	Expr string
	Err  error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("%d:%d: evaluate %q: %s", e.Pos.Line, e.Pos.Column, e.Expr, e.Err.Error())
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// Is reports whether target is an ExpressionError for the same source Expr,
// ignoring Pos and the wrapped cause.
func (e *ExpressionError) Is(target error) bool {
	var ee *ExpressionError
	if errors.As(target, &ee) {
		return e.Expr == ee.Expr
	}
	return false
}

// errJobAlreadyUsed is returned when a Job is compiled more than once (§5: "a Job is
// single-shot; compiling twice on the same Job is an error").
var errJobAlreadyUsed = errors.New("zenmill: job already compiled")
