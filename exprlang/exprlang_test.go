package exprlang

import (
	"fmt"
	"testing"
)

func TestExprCompileAndRun(t *testing.T) {
	ev := New()
	prog, err := ev.Compile("1 + a")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v, err := prog.Run(map[string]any{"a": 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v != 3 {
		t.Fatalf("Run result = %v, want 3", v)
	}
}

func TestExprAllowsUndefinedVariables(t *testing.T) {
	ev := New()
	prog, err := ev.Compile("missing")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v, err := prog.Run(map[string]any{})
	if err != nil {
		t.Fatalf("Run with undefined variable should not error, got: %v", err)
	}
	if v != nil {
		t.Fatalf("Run(missing) = %v, want nil", v)
	}
}

func TestExprCompileErrorSurfaces(t *testing.T) {
	ev := New()
	if _, err := ev.Compile("1 +"); err == nil {
		t.Fatal("expected a compile error for malformed expression")
	}
}

// TestExprProgramConcurrentRun exercises a single compiled Program from many
// goroutines at once: Renderer is documented to be safe under concurrent use
// (spec §5), which this package supports by allocating a fresh vm.VM per Run
// call rather than sharing one across calls.
func TestExprProgramConcurrentRun(t *testing.T) {
	ev := New()
	prog, err := ev.Compile("a * 2")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	const n = 50
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			v, err := prog.Run(map[string]any{"a": i})
			if err != nil {
				errs <- err
				return
			}
			if v != i*2 {
				errs <- fmt.Errorf("Run(a=%d) = %v, want %d", i, v, i*2)
				return
			}
			errs <- nil
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
