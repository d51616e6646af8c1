package zenmill

// Scope binds names to values for a render in progress. It forms a prototype
// chain: a lookup that misses in the current frame falls through to its
// parent, the way the teacher's chtml.Scope/ScopeMap pair models nested
// component scopes, except that a ZenMill render is single-shot (there is no
// Touch/Closed change-propagation machinery here, since nothing is re-rendered
// in place once produced).
type Scope interface {
	// Spawn creates a child scope with vars layered on top of the receiver.
	// Lookups that miss in vars fall through to the parent.
	Spawn(vars map[string]any) Scope

	// Lookup resolves name, searching the chain from the receiver outward.
	Lookup(name string) (any, bool)

	// Vars flattens the chain into a single map, child bindings shadowing
	// parent ones. It is what gets passed as the evaluator's environment.
	Vars() map[string]any

	// Set binds name in the receiver's own frame (§4.5 point 3: assignments to
	// existing names at the same scope overwrite locally; assignments to new
	// names create local bindings). It never touches a parent frame.
	Set(name string, value any)
}

// scopeFrame is the sole Scope implementation: a map of local bindings plus an
// optional parent link.
type scopeFrame struct {
	vars   map[string]any
	parent *scopeFrame
}

// newRootScope builds the scope seeding a render: the data argument to
// Render plus the built-in globals (§4.5 point 4).
func newRootScope(data map[string]any) Scope {
	vars := make(map[string]any, len(data)+len(builtinGlobals))
	for k, v := range builtinGlobals {
		vars[k] = v
	}
	for k, v := range data {
		vars[k] = v
	}
	return &scopeFrame{vars: vars}
}

func (s *scopeFrame) Spawn(vars map[string]any) Scope {
	if vars == nil {
		vars = map[string]any{}
	}
	return &scopeFrame{vars: vars, parent: s}
}

func (s *scopeFrame) Lookup(name string) (any, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scopeFrame) Set(name string, value any) {
	s.vars[name] = value
}

func (s *scopeFrame) Vars() map[string]any {
	if s.parent == nil {
		out := make(map[string]any, len(s.vars))
		for k, v := range s.vars {
			out[k] = v
		}
		return out
	}
	out := s.parent.Vars()
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}
