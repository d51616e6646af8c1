package zenmill

import (
	"errors"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in         string
		wantResult string
		wantRooted bool
	}{
		{"a/b/c", "a/b/c", false},
		{"/a/b/c", "a/b/c", true},
		{"a/./b", "a/b", false},
		{"a/b/../c", "a/c", false},
		{"../a", "../a", false},
		{"a/../../b", "../b", false},
		{"/a/../../b", "b", true},
		{"", "", false},
	}
	for _, c := range cases {
		got, rooted := normalizePath(c.in)
		if got != c.wantResult || rooted != c.wantRooted {
			t.Errorf("normalizePath(%q) = (%q, %v), want (%q, %v)", c.in, got, rooted, c.wantResult, c.wantRooted)
		}
	}
}

// TestLocalPathAbsoluteIgnoresParent checks property 4: a rooted p ignores
// parent entirely.
func TestLocalPathAbsoluteIgnoresParent(t *testing.T) {
	got, err := localPath("deeply/nested/parent.html", "/top.html")
	if err != nil {
		t.Fatalf("localPath: %v", err)
	}
	if got != "top.html" {
		t.Fatalf("localPath with rooted child = %q, want %q", got, "top.html")
	}
}

// TestLocalPathRelative checks property 4's dirname equality for the relative
// case.
func TestLocalPathRelative(t *testing.T) {
	got, err := localPath("views/pages/index.html", "partials/header.html")
	if err != nil {
		t.Fatalf("localPath: %v", err)
	}
	want := "views/pages/partials/header.html"
	if got != want {
		t.Fatalf("localPath = %q, want %q", got, want)
	}
}

func TestLocalPathEscapeRejected(t *testing.T) {
	_, err := localPath("views/index.html", "../../../etc/passwd")
	var oos *OutOfScope
	if err == nil {
		t.Fatal("expected OutOfScope error, got nil")
	}
	if !errors.As(err, &oos) {
		t.Fatalf("expected *OutOfScope, got %T: %v", err, err)
	}
}

func TestLocalPathRootedNeverEscapes(t *testing.T) {
	// A rooted path is allowed to collapse all the way back to the root: it
	// never produces an OutOfScope, by construction of normalizePath (rooted
	// ".." beyond root just stays at root).
	got, err := localPath("a/b.html", "/../../x.html")
	if err != nil {
		t.Fatalf("localPath: %v", err)
	}
	if got != "x.html" {
		t.Fatalf("localPath = %q, want %q", got, "x.html")
	}
}
