package zenmill

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"time"
)

// escapeHTML replaces the four characters that would otherwise change markup
// structure, in the fixed order required by §3 invariant 4: "&" first (so it
// never double-escapes entities produced by the later substitutions), then
// "<", ">", and finally '"'.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

// eachBinding is one step of an each loop: the companion variables bound
// alongside the element/value itself (§3, EachNode).
type eachBinding struct {
	Value   any
	Index   int
	Key     any
	Last    bool
	HasNext bool
}

// iterateEach normalizes the each target into an ordered slice of bindings.
// Arrays iterate in natural order; maps (objects) iterate by sorted
// code-point order of their string keys, per §3 invariant 7. Any other type is
// a NonIterable error.
func iterateEach(pos Position, v any) ([]eachBinding, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]eachBinding, len(t))
		for i, elem := range t {
			out[i] = eachBinding{
				Value:   elem,
				Index:   i,
				Key:     i,
				Last:    i == len(t)-1,
				HasNext: i != len(t)-1,
			}
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys) // sorts by code point, matching string byte/rune order for valid UTF-8
		out := make([]eachBinding, len(keys))
		for i, k := range keys {
			out[i] = eachBinding{
				Value:   t[k],
				Index:   i,
				Key:     k,
				Last:    i == len(keys)-1,
				HasNext: i != len(keys)-1,
			}
		}
		return out, nil
	default:
		return nil, &NonIterable{Pos: pos, Type: fmt.Sprintf("%T", v)}
	}
}

// builtinGlobals seeds the top-level render scope per §4.5 point 4: a fixed
// set of built-in identifiers, expressed as their closest Go equivalents so
// that EXPR source written against a JS-like surface still resolves.
var builtinGlobals = map[string]any{
	"encodeURI":          encodeURI,
	"encodeURIComponent": url.QueryEscape,
	"decodeURI":          decodeURIPermissive,
	"decodeURIComponent": decodeURIComponent,
	"Date":               dateNS{},
	"Math":               mathNS{},
	"JSON":               jsonNS{},
	"Object":             objectNS{},
}

func encodeURI(s string) string {
	u := url.URL{Path: s}
	return u.EscapedPath()
}

func decodeURIPermissive(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return out
}

func decodeURIComponent(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// dateNS mirrors the surface of JS's Date namespace used as a value (not a
// constructor): now and formatting helpers.
type dateNS struct{}

func (dateNS) Now() int64               { return time.Now().UnixMilli() }
func (dateNS) ISOString() string        { return time.Now().UTC().Format(time.RFC3339) }
func (dateNS) Format(layout string) string {
	return time.Now().Format(layout)
}

// mathNS mirrors the numeric surface of JS's Math namespace.
type mathNS struct{}

func (mathNS) Floor(x float64) float64 { return math.Floor(x) }
func (mathNS) Ceil(x float64) float64  { return math.Ceil(x) }
func (mathNS) Round(x float64) float64 { return math.Round(x) }
func (mathNS) Abs(x float64) float64   { return math.Abs(x) }
func (mathNS) Sqrt(x float64) float64  { return math.Sqrt(x) }
func (mathNS) Pow(x, y float64) float64 {
	return math.Pow(x, y)
}
func (mathNS) Max(xs ...float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}
func (mathNS) Min(xs ...float64) float64 {
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return m
}
func (mathNS) Random() float64 { return rand.Float64() }

// jsonNS mirrors JS's JSON namespace.
type jsonNS struct{}

func (jsonNS) Stringify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jsonNS) Parse(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// objectNS mirrors the reflective subset of JS's Object namespace that makes
// sense against map[string]any values.
type objectNS struct{}

func (objectNS) Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (objectNS) Values(m map[string]any) []any {
	keys := objectNS{}.Keys(m)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

func (objectNS) Entries(m map[string]any) [][2]any {
	keys := objectNS{}.Keys(m)
	out := make([][2]any, len(keys))
	for i, k := range keys {
		out[i] = [2]any{k, m[k]}
	}
	return out
}
