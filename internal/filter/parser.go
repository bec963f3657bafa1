package filter

import (
	"strings"
	"unicode"
)

// Parse parses filter text into a Filter.
//
//	filter     = "(" filtercomp ")"
//	filtercomp = and / or / not / item
//	and        = "&" 1*filter
//	or         = "|" 1*filter
//	not        = "!" filter
//	item       = attr ( "=" / "~=" / ">=" / "<=" ) value
//
// White space around parentheses, operators and list members is ignored.
// Within a value, "\" escapes the next character; an unescaped "*" is a
// wildcard when the operator is "=".
func Parse(text string) (*Filter, error) {
	p := &parser{src: text}

	p.skipSpace()

	if p.eof() {
		return nil, p.errorf("empty filter")
	}

	root, err := p.parseFilter()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if !p.eof() {
		return nil, p.errorf("unexpected characters after filter")
	}

	return newFilter(root), nil
}

// MustParse is like Parse but panics on error. It is intended for filters
// fixed at compile time.
func MustParse(text string) *Filter {
	f, err := Parse(text)
	if err != nil {
		panic(err)
	}

	return f
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}

	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) errorf(msg string) *SyntaxError {
	return p.errorAt(p.pos, msg)
}

func (p *parser) errorAt(pos int, msg string) *SyntaxError {
	offending := ""
	if pos < len(p.src) {
		offending = p.src[pos:]
	}

	return &SyntaxError{Message: msg, Offending: offending, Offset: pos}
}

func (p *parser) parseFilter() (Node, error) {
	if p.peek() != '(' {
		if p.eof() {
			return nil, p.errorf("unbalanced parentheses: expected '('")
		}

		return nil, p.errorf("expected '('")
	}

	open := p.pos
	p.pos++
	p.skipSpace()

	n, err := p.parseFilterComp()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.peek() != ')' {
		if p.eof() {
			return nil, p.errorAt(open, "unbalanced parentheses: missing ')'")
		}

		return nil, p.errorf("expected ')'")
	}

	p.pos++

	return n, nil
}

func (p *parser) parseFilterComp() (Node, error) {
	switch p.peek() {
	case '&':
		p.pos++

		children, err := p.parseList('&')
		if err != nil {
			return nil, err
		}

		return &And{Children: children}, nil
	case '|':
		p.pos++

		children, err := p.parseList('|')
		if err != nil {
			return nil, err
		}

		return &Or{Children: children}, nil
	case '!':
		p.pos++
		p.skipSpace()

		if p.peek() != '(' {
			return nil, p.errorf("empty filter list for '!'")
		}

		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}

		return &Not{Child: child}, nil
	default:
		return p.parseItem()
	}
}

func (p *parser) parseList(op byte) ([]Node, error) {
	var children []Node

	for {
		p.skipSpace()

		if p.peek() != '(' {
			break
		}

		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	if len(children) == 0 {
		return nil, p.errorf("empty filter list for '" + string(op) + "'")
	}

	return children, nil
}

func (p *parser) parseItem() (Node, error) {
	start := p.pos

	for !p.eof() && !isAttrDelimiter(p.src[p.pos]) {
		if isControl(p.src[p.pos]) {
			return nil, p.errorf("invalid character in attribute name")
		}

		p.pos++
	}

	attr := strings.TrimFunc(p.src[start:p.pos], unicode.IsSpace)
	if attr == "" {
		return nil, p.errorAt(start, "empty attribute name")
	}

	if p.eof() {
		return nil, p.errorAt(start, "unbalanced parentheses: missing operator and ')'")
	}

	op, ok := p.parseOperator()
	if !ok {
		return nil, p.errorf("unknown operator")
	}

	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	if op != OpEqual || !v.wildcard {
		return &Comparison{Op: op, Attr: attr, Value: v.literal}, nil
	}

	if len(v.parts) == 2 && v.parts[0] == "" && v.parts[1] == "" {
		return &Present{Attr: attr}, nil
	}

	return &Substring{Attr: attr, Parts: v.parts}, nil
}

// parseOperator consumes one of "=", "~=", ">=", "<=". Two-character
// operators are tried first.
func (p *parser) parseOperator() (Op, bool) {
	rest := p.src[p.pos:]

	switch {
	case strings.HasPrefix(rest, "~="):
		p.pos += 2
		return OpApprox, true
	case strings.HasPrefix(rest, ">="):
		p.pos += 2
		return OpGreater, true
	case strings.HasPrefix(rest, "<="):
		p.pos += 2
		return OpLess, true
	case strings.HasPrefix(rest, "="):
		p.pos++
		return OpEqual, true
	default:
		return 0, false
	}
}

// parsedValue is an operand split two ways: literal is the unescaped text
// with "*" kept verbatim, parts is the text split at unescaped wildcards.
type parsedValue struct {
	literal  string
	parts    []string
	wildcard bool
}

// parseValue reads up to the closing parenthesis, which it leaves in place.
// Unescaped leading and trailing white space is dropped.
func (p *parser) parseValue() (parsedValue, error) {
	var (
		v        parsedValue
		literal  strings.Builder
		current  strings.Builder
		pending  strings.Builder // unescaped white space not yet known to be interior
		lastStar bool
	)

	p.skipSpace()

	flush := func() {
		literal.WriteString(pending.String())
		current.WriteString(pending.String())
		pending.Reset()
	}

	for {
		if p.eof() {
			return parsedValue{}, p.errorf("unbalanced parentheses: missing ')'")
		}

		c := p.src[p.pos]

		switch {
		case c == ')':
			v.literal = literal.String()
			v.parts = append(v.parts, current.String())

			return v, nil
		case c == '(':
			return parsedValue{}, p.errorf("unescaped '(' in value")
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return parsedValue{}, p.errorf("dangling escape in value")
			}

			flush()

			next := p.src[p.pos+1]
			literal.WriteByte(next)
			current.WriteByte(next)

			p.pos += 2
			lastStar = false

			continue
		case c == '*':
			flush()
			literal.WriteByte(c)

			if !lastStar {
				v.parts = append(v.parts, current.String())
				current.Reset()
			}

			v.wildcard = true
			lastStar = true
		case isSpace(c):
			pending.WriteByte(c)
		default:
			flush()
			literal.WriteByte(c)
			current.WriteByte(c)

			lastStar = false
		}

		p.pos++
	}
}

func isAttrDelimiter(c byte) bool {
	switch c {
	case '(', ')', '=', '<', '>', '~', '!', '&', '|':
		return true
	default:
		return false
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

func isControl(c byte) bool {
	return c < 0x20 && !isSpace(c) || c == 0x7f
}
