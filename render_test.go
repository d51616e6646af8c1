package zenmill

import "testing"

func TestStringify(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hi", "hi"},
		{42, "42"},
		{3.5, "3.5"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := stringify(c.in); got != c.want {
			t.Errorf("stringify(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	truthy := []any{true, "x", 1, int64(1), 1.5, []any{}, map[string]any{}}
	falsy := []any{nil, false, "", 0, int64(0), 0.0}

	for _, v := range truthy {
		if !isTruthy(v) {
			t.Errorf("isTruthy(%#v) = false, want true", v)
		}
	}
	for _, v := range falsy {
		if isTruthy(v) {
			t.Errorf("isTruthy(%#v) = true, want false", v)
		}
	}
}

func TestLowerUnknownNodeTypeIsRejected(t *testing.T) {
	l := &lowerer{}
	_, err := l.lowerOne(unknownNode{})
	if err == nil {
		t.Fatal("expected UnknownNodeType error")
	}
	if _, ok := err.(*UnknownNodeType); !ok {
		t.Fatalf("got %T, want *UnknownNodeType", err)
	}
}

// unknownNode is a Node variant the lowerer has never heard of, used to prove
// lowerOne's default case is reachable in isolation (it is unreachable from
// any real composed tree, per §9's design note, since the composer itself is
// exhaustive).
type unknownNode struct{ base }
