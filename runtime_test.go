package zenmill

import (
	"strings"
	"testing"
)

// TestEscapeHTML checks property 5: no <, unescaped &, ", or unintended >
// survive in the output.
func TestEscapeHTML(t *testing.T) {
	got := escapeHTML(`<&>"`)
	want := "&lt;&amp;&gt;&quot;"
	if got != want {
		t.Fatalf("escapeHTML = %q, want %q", got, want)
	}
}

func TestEscapeHTMLOrderPreventsDoubleEscaping(t *testing.T) {
	// "&lt;" should become "&amp;lt;", not be reprocessed into "&lt;" again.
	got := escapeHTML("&lt;")
	want := "&amp;lt;"
	if got != want {
		t.Fatalf("escapeHTML(%q) = %q, want %q", "&lt;", got, want)
	}
}

func TestIterateEachArrayNaturalOrder(t *testing.T) {
	bindings, err := iterateEach(Position{}, []any{"a", "b", "c"})
	if err != nil {
		t.Fatalf("iterateEach: %v", err)
	}
	if len(bindings) != 3 {
		t.Fatalf("got %d bindings, want 3", len(bindings))
	}
	for i, want := range []string{"a", "b", "c"} {
		if bindings[i].Value != want || bindings[i].Index != i || bindings[i].Key != i {
			t.Errorf("bindings[%d] = %+v, want value %q index %d", i, bindings[i], want, i)
		}
	}
	if bindings[0].HasNext != true || bindings[2].HasNext != false {
		t.Errorf("HasNext wrong: first=%v last=%v", bindings[0].HasNext, bindings[2].HasNext)
	}
	if !bindings[2].Last || bindings[0].Last {
		t.Errorf("Last wrong: first=%v last=%v", bindings[0].Last, bindings[2].Last)
	}
}

// TestIterateEachObjectSortedKeys checks property 7's object ordering.
func TestIterateEachObjectSortedKeys(t *testing.T) {
	bindings, err := iterateEach(Position{}, map[string]any{"bob": "Bob", "alice": "Alice"})
	if err != nil {
		t.Fatalf("iterateEach: %v", err)
	}
	var keys []string
	for _, b := range bindings {
		keys = append(keys, b.Key.(string))
	}
	if strings.Join(keys, ",") != "alice,bob" {
		t.Fatalf("keys = %v, want [alice bob]", keys)
	}
}

func TestIterateEachNilIsNoOp(t *testing.T) {
	bindings, err := iterateEach(Position{}, nil)
	if err != nil {
		t.Fatalf("iterateEach(nil) returned error %v, want nil (no-op per §4.6)", err)
	}
	if bindings != nil {
		t.Fatalf("iterateEach(nil) = %v, want nil", bindings)
	}
}

func TestIterateEachNonIterable(t *testing.T) {
	_, err := iterateEach(Position{}, 42)
	var nonIter *NonIterable
	if err == nil {
		t.Fatal("expected NonIterable error, got nil")
	}
	if ni, ok := err.(*NonIterable); !ok {
		t.Fatalf("expected *NonIterable, got %T", err)
	} else {
		nonIter = ni
	}
	if nonIter.Type != "int" {
		t.Fatalf("NonIterable.Type = %q, want %q", nonIter.Type, "int")
	}
}
