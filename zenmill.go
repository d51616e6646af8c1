// Package zenmill implements a template engine for composing XML-ish
// documents: it parses a root template and any templates it transitively
// includes, statically resolves layout composition (include/block/def/inline),
// and lowers the result to a Renderer, a pure function from a data
// environment to an output string.
package zenmill

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dpotapov/zenmill/exprlang"
)

// Options configures a Job or Compiler. The zero value is the default: no
// comment stripping.
type Options struct {
	// StripComments, when true, drops <!-- ... --> nodes from the output
	// entirely instead of emitting them verbatim.
	StripComments bool
}

// Renderer is the product of a successful compile: a pure function from a
// data environment to the fully expanded document. It performs no I/O and may
// be invoked concurrently from multiple goroutines, provided the Evaluator
// backing the Job that produced it is itself concurrency-safe (the default,
// exprlang.Expr, is).
type Renderer func(data map[string]any) (string, error)

// Job is one compilation invocation (§3, §5): it owns the loader, the per-Job
// AST cache, and the options in effect; the root path is passed to Compile. A
// Job is single-shot; Compile may be called at most once.
type Job struct {
	loader  Loader
	options Options
	ev      exprlang.Evaluator
	cache   *astCache

	// Logger configures logging for internal events (load/parse/compose
	// failures). If nil, a discarding logger is used.
	Logger *slog.Logger

	mu      sync.Mutex
	used    bool
	logOnce sync.Once
	logger  *slog.Logger
}

// log returns the Job's effective logger, defaulting it to a discarding
// handler on first use if Logger was never set.
func (j *Job) log() *slog.Logger {
	j.logOnce.Do(func() {
		j.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if j.Logger != nil {
			j.logger = j.Logger
		}
	})
	return j.logger
}

// NewJob constructs a Job against loader with the given options, using the
// default expr-lang-backed evaluator.
func NewJob(loader Loader, options Options) (*Job, error) {
	return newJob(loader, options, exprlang.New())
}

func newJob(loader Loader, options Options, ev exprlang.Evaluator) (*Job, error) {
	if loader == nil {
		return nil, errNilLoader
	}
	return &Job{loader: loader, options: options, ev: ev, cache: newASTCache()}, nil
}

// Compile parses path and everything it transitively includes, composes
// layout inheritance, and lowers the result to a Renderer. Calling Compile a
// second time on the same Job returns errJobAlreadyUsed.
func (j *Job) Compile(ctx context.Context, path string) (Renderer, error) {
	j.mu.Lock()
	if j.used {
		j.mu.Unlock()
		return nil, errJobAlreadyUsed
	}
	j.used = true
	j.mu.Unlock()

	// The root path has no parent file to resolve against, so it is treated
	// as rooted regardless of a leading "/": C2's scope check only applies to
	// paths resolved relative to another file (localPath).
	rootPath, _ := normalizePath(path)
	rootPath = strings.TrimLeft(rootPath, "/")

	rawNodes, err := j.cache.loadAndParse(ctx, j.loader, rootPath)
	if err != nil {
		j.log().Error("load/parse failed", slog.String("path", rootPath), slog.Any("error", err))
		return nil, err
	}

	composed, err := (&composer{job: j}).compose(ctx, rootPath, rawNodes)
	if err != nil {
		j.log().Error("compose failed", slog.String("path", rootPath), slog.Any("error", err))
		return nil, err
	}

	step, err := (&lowerer{ev: j.ev}).lowerSequence(composed)
	if err != nil {
		j.log().Error("lower failed", slog.String("path", rootPath), slog.Any("error", err))
		return nil, err
	}

	return func(data map[string]any) (string, error) {
		var out strings.Builder
		scope := newRootScope(data)
		if err := step(&out, scope); err != nil {
			return "", err
		}
		return out.String(), nil
	}, nil
}

// Compiler is a reusable factory for Jobs sharing the same loader and
// options: each Compile call spawns a fresh Job (and thus a fresh AST cache),
// so a Compiler itself may be compiled from repeatedly, unlike a Job.
type Compiler struct {
	loader  Loader
	options Options
	ev      exprlang.Evaluator

	// Logger configures logging for internal events on every Job this
	// Compiler spawns. If nil, a discarding logger is used.
	Logger *slog.Logger
}

// NewCompiler builds a Compiler around loader and options (§6: create(loader,
// options) -> Compiler).
func NewCompiler(loader Loader, options Options) (*Compiler, error) {
	if loader == nil {
		return nil, errNilLoader
	}
	return &Compiler{loader: loader, options: options, ev: exprlang.New()}, nil
}

// Compile resolves path to a Renderer (§6: Compiler.compile(path) ->
// Future<Renderer>).
func (c *Compiler) Compile(ctx context.Context, path string) (Renderer, error) {
	job, err := newJob(c.loader, c.options, c.ev)
	if err != nil {
		return nil, err
	}
	job.Logger = c.Logger
	return job.Compile(ctx, path)
}

// Render is a convenience for Compile(path).then(render(data)) (§6).
func (c *Compiler) Render(ctx context.Context, path string, data map[string]any) (string, error) {
	r, err := c.Compile(ctx, path)
	if err != nil {
		return "", err
	}
	return r(data)
}
