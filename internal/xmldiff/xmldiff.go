// Package xmldiff compares two XML-ish fragments for structural equality,
// ignoring insignificant whitespace. It is used by the end-to-end scenario
// tests that compare markup structure (spec §8's S1-S3), whose expected outputs are documented as
// "whitespace-insensitive" comparisons over markup fragments: a plain
// string-equality check would be too brittle against reformatting, and a full
// HTML DOM is more machinery than a fragment comparison needs.
//
// It is built on github.com/beevik/etree, not because ZenMill's own parser
// models templates as an XML DOM (it doesn't; see the root package's grammar),
// but because etree is a convenient, already-vendored way to parse the
// well-formed markup fragments these tests produce and walk them
// structurally.
package xmldiff

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Equal reports whether want and got are the same XML fragment up to
// insignificant whitespace: leading/trailing whitespace around text content
// is trimmed, and whitespace-only text nodes between elements are ignored.
// Attribute order does not matter; attribute values and element text do.
func Equal(want, got string) (bool, error) {
	wantRoot, err := parseFragment(want)
	if err != nil {
		return false, fmt.Errorf("parse want: %w", err)
	}
	gotRoot, err := parseFragment(got)
	if err != nil {
		return false, fmt.Errorf("parse got: %w", err)
	}
	return elementsEqual(wantRoot, gotRoot), nil
}

// Diff returns a human-readable description of the first structural
// difference between want and got, or "" if they are Equal.
func Diff(want, got string) string {
	eq, err := Equal(want, got)
	if err != nil {
		return err.Error()
	}
	if eq {
		return ""
	}
	return fmt.Sprintf("xmldiff: fragments differ\n--- want ---\n%s\n--- got ---\n%s", want, got)
}

// parseFragment wraps s in a synthetic root so that sibling top-level nodes
// (as every scenario in §8 produces) parse as a single well-formed document.
func parseFragment(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<zenmill-fragment>" + s + "</zenmill-fragment>"); err != nil {
		return nil, err
	}
	return doc.Root(), nil
}

func elementsEqual(a, b *etree.Element) bool {
	if a.Tag != b.Tag {
		return false
	}
	if !attrsEqual(a.Attr, b.Attr) {
		return false
	}

	aChildren := a.ChildElements()
	bChildren := b.ChildElements()
	if len(aChildren) != len(bChildren) {
		return false
	}

	// Compare text interleaved with children: etree exposes text as CharData
	// tokens among an element's Child slice, so walk both in parallel,
	// comparing trimmed text runs and recursing into elements.
	aTexts := textRuns(a)
	bTexts := textRuns(b)
	if len(aTexts) != len(bTexts) {
		return false
	}
	for i := range aTexts {
		if strings.TrimSpace(aTexts[i]) != strings.TrimSpace(bTexts[i]) {
			return false
		}
	}

	for i := range aChildren {
		if !elementsEqual(aChildren[i], bChildren[i]) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b []etree.Attr) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[string]string, len(a))
	for _, at := range a {
		am[at.FullKey()] = at.Value
	}
	for _, bt := range b {
		v, ok := am[bt.FullKey()]
		if !ok || v != bt.Value {
			return false
		}
	}
	return true
}

// textRuns returns the text segments that appear between (and around) an
// element's children, in document order: element.Text() is the run before the
// first child, and each child's Tail() is the run after it.
func textRuns(el *etree.Element) []string {
	children := el.ChildElements()
	runs := make([]string, 0, len(children)+1)
	runs = append(runs, el.Text())
	for _, c := range children {
		runs = append(runs, c.Tail())
	}
	return runs
}
