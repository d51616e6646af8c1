package zenmill

import "testing"

func TestDefModeString(t *testing.T) {
	cases := map[DefMode]string{
		DefReplace: "replace",
		DefAppend:  "append",
		DefPrepend: "prepend",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("DefMode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}

func TestNodePosReturnsConstructorPosition(t *testing.T) {
	pos := Position{Offset: 3, Line: 2, Column: 1}
	n := &PlainNode{base: base{pos}, Text: "hi"}
	if got := n.Pos(); got != pos {
		t.Errorf("Pos() = %+v, want %+v", got, pos)
	}
}
