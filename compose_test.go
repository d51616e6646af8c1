package zenmill

import (
	"context"
	"testing"
)

func mapLoader(files map[string]string) Loader {
	return func(_ context.Context, path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", ErrTemplateNotFound
		}
		return src, nil
	}
}

func renderFile(t *testing.T, files map[string]string, root string, data map[string]any) string {
	t.Helper()
	job, err := NewJob(mapLoader(files), Options{})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	renderer, err := job.Compile(context.Background(), root)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out, err := renderer(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

// TestBlockMergeLaws checks property 6 directly against the composer.
func TestBlockMergeLaws(t *testing.T) {
	layout := `<layout><block:content>D</block:content></layout>`

	cases := []struct {
		name string
		def  string
		want string
	}{
		{"no definition", "", "<layout>D</layout>"},
		{"replace", `<def:content>X</def:content>`, "<layout>X</layout>"},
		{"append", `<append:content>X</append:content>`, "<layout>DX</layout>"},
		{"prepend", `<prepend:content>X</prepend:content>`, "<layout>XD</layout>"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			page := `<include file='layout.html'>` + c.def + `</include>`
			files := map[string]string{"layout.html": layout, "page.html": page}
			got := renderFile(t, files, "page.html", nil)
			if got != c.want {
				t.Errorf("render = %q, want %q", got, c.want)
			}
		})
	}
}

// TestScopeIsolationAcrossIncludes checks property 3: a Var bound inside one
// Include is invisible to a sibling Include.
func TestScopeIsolationAcrossIncludes(t *testing.T) {
	files := map[string]string{
		"set.html":   `<include file='inner.html'><var:leak>1</var:leak></include>`,
		"inner.html": `ok`,
		"read.html":  `<if><when expr="leak"><p>leaked</p></when><otherwise><p>clean</p></otherwise></if>`,
	}
	// set.html and read.html are siblings under root.html; leak must not cross.
	files["root.html"] = `<include file='set.html'/><include file='read.html'/>`
	got := renderFile(t, files, "root.html", nil)
	want := "ok<p>clean</p>"
	if got != want {
		t.Fatalf("render = %q, want %q (Var from set.html must not leak into read.html's scope)", got, want)
	}
}

func TestScopeIsolationEachDoesNotLeakAfterLoop(t *testing.T) {
	files := map[string]string{
		"root.html": `<each:x in="items">#{x}</each:x><if expr="x"><p>leaked</p></if>`,
	}
	got := renderFile(t, files, "root.html", map[string]any{"items": []any{"a", "b"}})
	if got != "ab" {
		t.Fatalf("render = %q, want %q (If after Each must see x as undefined, so it is falsy)", got, "ab")
	}
}
