package zenmill

import (
	"strings"
)

// Parse converts template source into a flat Node list (§4.1). path is used only
// to annotate SyntaxError with a file name; it plays no role in parsing itself.
func Parse(src string, path string) ([]Node, error) {
	p := &parser{s: newScanner(src), path: path}
	nodes, err := p.parseNodeList(nil)
	if err != nil {
		return nil, err
	}
	if !p.s.eof() {
		return nil, p.errorf(p.s.position(), "unexpected trailing content", nil, p.s.rest())
	}
	return nodes, nil
}

type parser struct {
	s    *scanner
	path string
}

func (p *parser) errorf(pos Position, msg string, expected []string, found string) *SyntaxError {
	return &SyntaxError{Path: p.path, Pos: pos, Message: msg, Expected: expected, Found: found}
}

func (p *parser) foundSnippet() string {
	const maxLen = 24
	rest := p.s.rest()
	if len(rest) > maxLen {
		rest = rest[:maxLen]
	}
	return rest
}

// closeMatcher reports whether the scanner is currently positioned at the
// closing tag this parseNodeList call should stop before. It must not consume
// input when it returns false.
type closeMatcher func(s *scanner) bool

// parseNodeList parses a sequence of Nodes until EOF (when stop is nil) or until
// stop matches the current position.
func (p *parser) parseNodeList(stop closeMatcher) ([]Node, error) {
	var nodes []Node
	for {
		if p.s.eof() {
			if stop != nil {
				return nil, p.errorf(p.s.position(), "unexpected end of input, expected closing tag", nil, "<EOF>")
			}
			return nodes, nil
		}
		if stop != nil && stop(p.s) {
			return nodes, nil
		}
		n, err := p.parseOne(stop)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

// literalCloseMatcher matches a fixed closing tag literal, such as "</if>".
func literalCloseMatcher(lit string) closeMatcher {
	return func(s *scanner) bool { return s.hasPrefix(lit) }
}

// namedCloseMatcher matches closing tags of the shape "</TAG:NAME>" where NAME is
// fixed once the opening tag has been parsed (Block, Def/Append/Prepend, Var, Each).
func namedCloseMatcher(tag, name string) closeMatcher {
	lit := "</" + tag + ":" + name
	return func(s *scanner) bool {
		if !s.hasPrefix(lit) {
			return false
		}
		rest := s.rest()[len(lit):]
		rest = strings.TrimLeft(rest, whitespace)
		return strings.HasPrefix(rest, ">")
	}
}

// parseOne parses a single Node at the current position: a recognized ZenMill
// construct, or a maximal run of Plain text. stop is the closing tag the
// enclosing parseNodeList is watching for (nil at the top level); Plain text
// must not run past it.
func (p *parser) parseOne(stop closeMatcher) (Node, error) {
	if p.s.hasPrefix("<!--") {
		return p.parseComment()
	}
	if p.s.hasPrefix("#{") {
		return p.parseInterpolation(true)
	}
	if p.s.hasPrefix("!{") {
		return p.parseInterpolation(false)
	}
	if p.s.hasPrefix("<") {
		if n, ok, err := p.tryParseTag(); ok || err != nil {
			return n, err
		}
	}
	return p.parsePlain(stop), nil
}

// tryParseTag attempts to parse one of the recognized "<KEYWORD...>" constructs.
// If the input at the current position is a "<" that does not introduce a
// recognized construct, ok is false and nothing is consumed, so the caller falls
// back to Plain text.
func (p *parser) tryParseTag() (Node, bool, error) {
	rest := p.s.rest()[1:] // drop the leading '<'

	switch {
	case strings.HasPrefix(rest, "include"):
		if tagBoundary(rest, len("include")) {
			n, err := p.parseInclude()
			return n, true, err
		}
	case strings.HasPrefix(rest, "inline"):
		if tagBoundary(rest, len("inline")) {
			n, err := p.parseInline()
			return n, true, err
		}
	case strings.HasPrefix(rest, "block:"):
		n, err := p.parseBlock()
		return n, true, err
	case strings.HasPrefix(rest, "def:"):
		n, err := p.parseDefLike("def", DefReplace)
		return n, true, err
	case strings.HasPrefix(rest, "append:"):
		n, err := p.parseDefLike("append", DefAppend)
		return n, true, err
	case strings.HasPrefix(rest, "prepend:"):
		n, err := p.parseDefLike("prepend", DefPrepend)
		return n, true, err
	case strings.HasPrefix(rest, "var:"):
		n, err := p.parseVar()
		return n, true, err
	case strings.HasPrefix(rest, "if"):
		if tagBoundary(rest, len("if")) {
			n, err := p.parseIf()
			return n, true, err
		}
	case strings.HasPrefix(rest, "each:"):
		n, err := p.parseEach()
		return n, true, err
	}
	return nil, false, nil
}

// tagBoundary reports whether rest[n] (the character right after a candidate
// keyword of length n) is whitespace, "/" or ">", per §4.1's rule for what may
// follow a bare keyword such as "include" or "if".
func tagBoundary(rest string, n int) bool {
	if n >= len(rest) {
		return false
	}
	r := rest[n]
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '/' || r == '>'
}

// parsePlain consumes the maximal run of text that does not begin any
// recognized construct and does not reach stop (the closing tag the caller is
// watching for).
func (p *parser) parsePlain(stop closeMatcher) Node {
	pos := p.s.position()
	start := p.s.pos
	for {
		if p.s.eof() {
			break
		}
		if stop != nil && stop(p.s) {
			break
		}
		if p.s.hasPrefix("<!--") || p.s.hasPrefix("#{") || p.s.hasPrefix("!{") {
			break
		}
		if p.s.hasPrefix("<") {
			if _, ok, _ := p.peekTag(); ok {
				break
			}
		}
		p.s.next()
	}
	return &PlainNode{base: base{pos}, Text: p.s.src[start:p.s.pos]}
}

// peekTag reports whether the scanner is positioned at "<" followed by a
// recognized keyword boundary, without consuming anything.
func (p *parser) peekTag() (string, bool, error) {
	rest := p.s.rest()
	if !strings.HasPrefix(rest, "<") {
		return "", false, nil
	}
	rest = rest[1:]
	for _, kw := range []string{"include", "inline", "if"} {
		if strings.HasPrefix(rest, kw) && tagBoundary(rest, len(kw)) {
			return kw, true, nil
		}
	}
	for _, prefix := range []string{"block:", "def:", "append:", "prepend:", "var:", "each:"} {
		if strings.HasPrefix(rest, prefix) {
			return prefix, true, nil
		}
	}
	return "", false, nil
}

// --- Comment -----------------------------------------------------------------

func (p *parser) parseComment() (Node, error) {
	pos := p.s.position()
	p.s.consumeLiteral("<!--")
	start := p.s.pos
	for {
		if p.s.eof() {
			return nil, p.errorf(pos, "unterminated comment", []string{"-->"}, "<EOF>")
		}
		if p.s.hasPrefix("-->") {
			content := p.s.src[start:p.s.pos]
			p.s.consumeLiteral("-->")
			return &CommentNode{base: base{pos}, Content: content}, nil
		}
		p.s.next()
	}
}

// --- Interpolation -------------------------------------------------------------

func (p *parser) parseInterpolation(escape bool) (Node, error) {
	pos := p.s.position()
	if escape {
		p.s.consumeLiteral("#{")
	} else {
		p.s.consumeLiteral("!{")
	}
	expr, stop, err := p.scanExpr()
	if err != nil {
		return nil, err
	}
	if stop != '}' {
		return nil, p.errorf(p.s.position(), "unterminated interpolation, expected '}'", []string{"}"}, p.foundSnippet())
	}
	p.s.next() // consume '}'
	return &ExprNode{base: base{pos}, Source: expr, Escape: escape}, nil
}

// scanExpr consumes an EXPR token per §4.1: a run of balanced braces and any
// characters other than '{', '}', '"', '\'', '<' outside of string literals and
// nested "{...}". It stops (without consuming) at the first depth-0 '<' or
// depth-0 '}', returning which one it stopped at in stop (0 on EOF, which is
// always an error for the caller).
func (p *parser) scanExpr() (text string, stop rune, err error) {
	start := p.s.pos
	depth := 0
	for {
		if p.s.eof() {
			return p.s.src[start:p.s.pos], 0, p.errorf(p.s.position(), "unterminated expression", nil, "<EOF>")
		}
		r, _ := p.s.peekRune()
		switch r {
		case '"', '\'':
			p.s.next()
			if err := p.skipStringLiteral(r); err != nil {
				return "", 0, err
			}
		case '{':
			depth++
			p.s.next()
		case '}':
			if depth == 0 {
				return p.s.src[start:p.s.pos], '}', nil
			}
			depth--
			p.s.next()
		case '<':
			if depth == 0 {
				return p.s.src[start:p.s.pos], '<', nil
			}
			p.s.next()
		default:
			p.s.next()
		}
	}
}

func (p *parser) skipStringLiteral(quote rune) error {
	for {
		if p.s.eof() {
			return p.errorf(p.s.position(), "unterminated string literal in expression", nil, "<EOF>")
		}
		r, _ := p.s.peekRune()
		if r == '\\' {
			p.s.next()
			if !p.s.eof() {
				p.s.next()
			}
			continue
		}
		p.s.next()
		if r == quote {
			return nil
		}
	}
}

// --- Attribute values ----------------------------------------------------------

// parseAttrValue parses a quoted attribute value: a single or double quote,
// followed by any run of characters not equal to that quote, followed by a
// matching quote. No escape processing is performed (§6, §9).
func (p *parser) parseAttrValue() (string, error) {
	r, w := p.s.peekRune()
	if w == 0 || (r != '"' && r != '\'') {
		return "", p.errorf(p.s.position(), "expected quoted attribute value", []string{`"`, "'"}, p.foundSnippet())
	}
	quote := r
	p.s.next()
	start := p.s.pos
	for {
		if p.s.eof() {
			return "", p.errorf(p.s.position(), "unterminated attribute value", []string{string(quote)}, "<EOF>")
		}
		cr, _ := p.s.peekRune()
		if cr == quote {
			val := p.s.src[start:p.s.pos]
			p.s.next()
			return val, nil
		}
		p.s.next()
	}
}

// parseFileAttr parses `WS+ "file" WS* "=" WS* ATTR_VAL`, returning the raw
// attribute value.
func (p *parser) parseFileAttr() (string, error) {
	return p.parseNamedAttr("file")
}

func (p *parser) parseNamedAttr(name string) (string, error) {
	if !p.requireWS() {
		return "", p.errorf(p.s.position(), "expected whitespace before attribute "+name, []string{"WS"}, p.foundSnippet())
	}
	p.s.skipWS()
	if !p.s.consumeLiteral(name) {
		return "", p.errorf(p.s.position(), "expected attribute "+name, []string{name}, p.foundSnippet())
	}
	p.s.skipWS()
	if !p.s.consumeLiteral("=") {
		return "", p.errorf(p.s.position(), "expected '=' after attribute "+name, []string{"="}, p.foundSnippet())
	}
	p.s.skipWS()
	return p.parseAttrValue()
}

// requireWS consumes at least one whitespace character, returning false (and
// consuming nothing) if none is present.
func (p *parser) requireWS() bool {
	r, w := p.s.peekRune()
	if w == 0 || !isWS(r) {
		return false
	}
	p.s.skipWS()
	return true
}

func (p *parser) expectLiteral(lit string) error {
	if !p.s.consumeLiteral(lit) {
		return p.errorf(p.s.position(), "expected "+lit, []string{lit}, p.foundSnippet())
	}
	return nil
}

// --- Include / Inline ----------------------------------------------------------

func (p *parser) parseInclude() (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<include"); err != nil {
		return nil, err
	}
	file, err := p.parseFileAttr()
	if err != nil {
		return nil, err
	}
	p.s.skipWS()
	if p.s.consumeLiteral("/>") {
		return &IncludeNode{base: base{pos}, File: file}, nil
	}
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	children, err := p.parseNodeList(literalCloseMatcher("</include>"))
	if err != nil {
		return nil, err
	}
	if err := p.expectLiteral("</include>"); err != nil {
		return nil, err
	}
	// Children are Def and Var nodes "separated by whitespace" (§4.1): the
	// generic node-list parse above also captures that whitespace as Plain
	// text, which is dropped here rather than rejected.
	kept := children[:0]
	for _, c := range children {
		switch c.(type) {
		case *DefNode, *VarNode:
			kept = append(kept, c)
		case *PlainNode:
			if strings.TrimLeft(c.(*PlainNode).Text, whitespace) != "" {
				return nil, p.errorf(c.Pos(), "include children must be def/append/prepend or var", []string{"def", "append", "prepend", "var"}, "")
			}
		default:
			return nil, p.errorf(c.Pos(), "include children must be def/append/prepend or var", []string{"def", "append", "prepend", "var"}, "")
		}
	}
	return &IncludeNode{base: base{pos}, File: file, Children: kept}, nil
}

func (p *parser) parseInline() (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<inline"); err != nil {
		return nil, err
	}
	file, err := p.parseFileAttr()
	if err != nil {
		return nil, err
	}
	p.s.skipWS()
	if err := p.expectLiteral("/>"); err != nil {
		return nil, err
	}
	escape := true
	if strings.HasPrefix(file, "!") {
		escape = false
		file = file[1:]
	}
	return &InlineNode{base: base{pos}, File: file, Escape: escape}, nil
}

// --- Block -----------------------------------------------------------------

func (p *parser) parseBlock() (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<block:"); err != nil {
		return nil, err
	}
	name := p.s.scanName()
	if name == "" {
		return nil, p.errorf(p.s.position(), "expected block name", []string{"NAME"}, p.foundSnippet())
	}
	p.s.skipWS()
	if p.s.consumeLiteral("/>") {
		return &BlockNode{base: base{pos}, Name: name}, nil
	}
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	nodes, err := p.parseNodeList(namedCloseMatcher("block", name))
	if err != nil {
		return nil, err
	}
	if err := p.consumeNamedClose("block", name); err != nil {
		return nil, err
	}
	return &BlockNode{base: base{pos}, Name: name, Nodes: nodes}, nil
}

func (p *parser) consumeNamedClose(tag, name string) error {
	lit := "</" + tag + ":" + name
	if !p.s.consumeLiteral(lit) {
		return p.errorf(p.s.position(), "expected closing tag "+lit, []string{lit}, p.foundSnippet())
	}
	p.s.skipWS()
	return p.expectLiteral(">")
}

// --- Def / Append / Prepend --------------------------------------------------

func (p *parser) parseDefLike(tag string, mode DefMode) (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<" + tag + ":"); err != nil {
		return nil, err
	}
	name := p.s.scanName()
	if name == "" {
		return nil, p.errorf(p.s.position(), "expected "+tag+" name", []string{"NAME"}, p.foundSnippet())
	}
	p.s.skipWS()
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	nodes, err := p.parseNodeList(namedCloseMatcher(tag, name))
	if err != nil {
		return nil, err
	}
	if err := p.consumeNamedClose(tag, name); err != nil {
		return nil, err
	}
	return &DefNode{base: base{pos}, Name: name, Mode: mode, Nodes: nodes}, nil
}

// --- Var / Expr body -----------------------------------------------------------

func (p *parser) parseVar() (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<var:"); err != nil {
		return nil, err
	}
	name := p.s.scanName()
	if name == "" {
		return nil, p.errorf(p.s.position(), "expected var name", []string{"NAME"}, p.foundSnippet())
	}
	p.s.skipWS()
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	expr, stop, err := p.scanExpr()
	if err != nil {
		return nil, err
	}
	if stop != '<' {
		return nil, p.errorf(p.s.position(), "unterminated var expression, expected closing tag", []string{"</var:" + name + ">"}, p.foundSnippet())
	}
	if err := p.consumeNamedClose("var", name); err != nil {
		return nil, err
	}
	return &VarNode{base: base{pos}, Name: name, Source: strings.TrimSpace(expr)}, nil
}

// --- If / When / Otherwise ------------------------------------------------------

func (p *parser) parseIf() (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<if"); err != nil {
		return nil, err
	}
	p.s.skipWS()

	// Standalone form: <if expr="...">NODES</if>, lowered to a single When.
	if p.s.hasPrefix("expr") {
		expr, err := p.parseNamedAttr("expr")
		if err != nil {
			return nil, err
		}
		p.s.skipWS()
		if err := p.expectLiteral(">"); err != nil {
			return nil, err
		}
		whenPos := pos
		nodes, err := p.parseNodeList(literalCloseMatcher("</if>"))
		if err != nil {
			return nil, err
		}
		if err := p.expectLiteral("</if>"); err != nil {
			return nil, err
		}
		when := &WhenNode{base: base{whenPos}, Source: strings.TrimSpace(expr), Nodes: nodes}
		return &IfNode{base: base{pos}, Whens: []*WhenNode{when}}, nil
	}

	// Compound form: <if> WS* When+ Otherwise? </if>
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	p.s.skipWS()

	var whens []*WhenNode
	for p.s.hasPrefix("<when") {
		w, err := p.parseWhen()
		if err != nil {
			return nil, err
		}
		whens = append(whens, w)
		p.s.skipWS()
	}
	if len(whens) == 0 {
		return nil, p.errorf(p.s.position(), "compound if requires at least one when", []string{"<when"}, p.foundSnippet())
	}

	var otherwise []Node
	if p.s.hasPrefix("<otherwise>") {
		p.s.consumeLiteral("<otherwise>")
		nodes, err := p.parseNodeList(literalCloseMatcher("</otherwise>"))
		if err != nil {
			return nil, err
		}
		if err := p.expectLiteral("</otherwise>"); err != nil {
			return nil, err
		}
		otherwise = nodes
		p.s.skipWS()
	}

	if err := p.expectLiteral("</if>"); err != nil {
		return nil, err
	}
	return &IfNode{base: base{pos}, Whens: whens, Otherwise: otherwise}, nil
}

func (p *parser) parseWhen() (*WhenNode, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<when"); err != nil {
		return nil, err
	}
	expr, err := p.parseNamedAttr("expr")
	if err != nil {
		return nil, err
	}
	p.s.skipWS()
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	nodes, err := p.parseNodeList(literalCloseMatcher("</when>"))
	if err != nil {
		return nil, err
	}
	if err := p.expectLiteral("</when>"); err != nil {
		return nil, err
	}
	return &WhenNode{base: base{pos}, Source: strings.TrimSpace(expr), Nodes: nodes}, nil
}

// --- Each ------------------------------------------------------------------

func (p *parser) parseEach() (Node, error) {
	pos := p.s.position()
	if err := p.expectLiteral("<each:"); err != nil {
		return nil, err
	}
	name := p.s.scanName()
	if name == "" {
		return nil, p.errorf(p.s.position(), "expected each variable name", []string{"NAME"}, p.foundSnippet())
	}
	expr, err := p.parseNamedAttr("in")
	if err != nil {
		return nil, err
	}
	p.s.skipWS()
	if err := p.expectLiteral(">"); err != nil {
		return nil, err
	}
	nodes, err := p.parseNodeList(namedCloseMatcher("each", name))
	if err != nil {
		return nil, err
	}
	if err := p.consumeNamedClose("each", name); err != nil {
		return nil, err
	}
	return &EachNode{base: base{pos}, Name: name, Source: strings.TrimSpace(expr), Nodes: nodes}, nil
}
