package callvalue

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrParse is wrapped by every *ParseError.
var ErrParse = errors.New("cannot parse call value")

// ParseError locates a syntax error in the input.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s\n  %s\n  %s^", ErrParse, e.Offset, e.Reason, e.Input, strings.Repeat(" ", e.Offset))
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Snippet returns the input from the error offset on.
func (e *ParseError) Snippet() string {
	if e.Offset >= len(e.Input) {
		return ""
	}
	return e.Input[e.Offset:]
}

var (
	maxUnsigned = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	minSigned   = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// Parse parses one value. Empty input yields the empty unnamed composite;
// anything left over after the value is an error.
func Parse(input string) (Value, error) {
	p := &parser{in: input}
	p.skipSpace()
	if p.eof() {
		return Composite{}, nil
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.fail("unexpected trailing input")
	}
	return v, nil
}

// ParseArgs joins command line arguments with spaces and parses the result
// into call arguments.
func ParseArgs(args []string) (Composite, error) {
	v, err := Parse(strings.Join(args, " "))
	if err != nil {
		return Composite{}, err
	}
	return IntoComposite(v), nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.in[p.pos:])
	return r
}

func (p *parser) next() rune {
	r, size := utf8.DecodeRuneInString(p.in[p.pos:])
	p.pos += size
	return r
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.next()
	}
}

func (p *parser) fail(format string, args ...any) *ParseError {
	return p.failAt(p.pos, format, args...)
}

func (p *parser) failAt(pos int, format string, args ...any) *ParseError {
	return &ParseError{Input: p.in, Offset: pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(r rune) error {
	p.skipSpace()
	if p.peek() != r || p.eof() {
		return p.fail("expected %q", r)
	}
	p.next()
	return nil
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.fail("unexpected end of input")
	}
	switch r := p.peek(); {
	case r == '(':
		return p.unnamed()
	case r == '{':
		return p.named()
	case r == '"':
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case r == '\'':
		return p.char()
	case r == '<':
		return p.bits()
	case r == '0' && strings.HasPrefix(p.in[p.pos:], "0x"):
		return p.hex()
	case r == '-' || r == '+' || isDigit(r):
		return p.number()
	case r == 'v' && strings.HasPrefix(p.in[p.pos:], `v"`):
		p.next()
		name, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return p.variant(name)
	case isIdentStart(r):
		start := p.pos
		name := p.ident()
		switch name {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		if name == "" {
			return nil, p.failAt(start, "expected identifier")
		}
		return p.variant(name)
	default:
		return nil, p.fail("unexpected character %q", r)
	}
}

func (p *parser) variant(name string) (Value, error) {
	save := p.pos
	p.skipSpace()
	switch p.peek() {
	case '(':
		c, err := p.unnamed()
		if err != nil {
			return nil, err
		}
		return Variant{Name: name, Fields: c}, nil
	case '{':
		c, err := p.named()
		if err != nil {
			return nil, err
		}
		return Variant{Name: name, Fields: c}, nil
	}
	p.pos = save
	return Variant{Name: name}, nil
}

func (p *parser) unnamed() (Composite, error) {
	p.next() // (
	c := Composite{}
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.next()
			return c, nil
		}
		v, err := p.value()
		if err != nil {
			return Composite{}, err
		}
		c.Fields = append(c.Fields, Field{Value: v})
		if err := p.separator(')'); err != nil {
			return Composite{}, err
		}
	}
}

func (p *parser) named() (Composite, error) {
	p.next() // {
	c := Composite{Named: true}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.next()
			return c, nil
		}
		start := p.pos
		var name string
		if p.peek() == '"' {
			s, err := p.quoted()
			if err != nil {
				return Composite{}, err
			}
			name = s
		} else {
			name = p.ident()
		}
		if name == "" {
			return Composite{}, p.failAt(start, "expected field name")
		}
		if err := p.expect(':'); err != nil {
			return Composite{}, err
		}
		v, err := p.value()
		if err != nil {
			return Composite{}, err
		}
		c.Fields = append(c.Fields, Field{Name: name, Value: v})
		if err := p.separator('}'); err != nil {
			return Composite{}, err
		}
	}
}

// separator consumes a comma, or leaves the closing delimiter for the caller.
func (p *parser) separator(closing rune) error {
	p.skipSpace()
	switch p.peek() {
	case ',':
		p.next()
		return nil
	case closing:
		if !p.eof() {
			return nil
		}
	}
	if p.eof() {
		return p.fail("unclosed composite, expected %q", closing)
	}
	return p.fail("expected ',' or %q", closing)
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if p.pos == start && !isIdentStart(r) || p.pos > start && !isIdentPart(r) {
			break
		}
		p.next()
	}
	return p.in[start:p.pos]
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.next() // "
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.failAt(start, "unterminated string")
		}
		r := p.next()
		switch r {
		case '"':
			return b.String(), nil
		case '\\':
			e, err := p.escape()
			if err != nil {
				return "", err
			}
			b.WriteRune(e)
		default:
			b.WriteRune(r)
		}
	}
}

func (p *parser) char() (Value, error) {
	start := p.pos
	p.next() // '
	if p.eof() {
		return nil, p.failAt(start, "unterminated char")
	}
	r := p.next()
	if r == '\\' {
		var err error
		if r, err = p.escape(); err != nil {
			return nil, err
		}
	} else if r == '\'' {
		return nil, p.failAt(start, "empty char")
	}
	if p.eof() || p.next() != '\'' {
		return nil, p.failAt(start, "char must hold exactly one character")
	}
	return Char(r), nil
}

func (p *parser) escape() (rune, error) {
	at := p.pos - 1
	if p.eof() {
		return 0, p.failAt(at, "unterminated escape")
	}
	switch r := p.next(); r {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '"', '\'':
		return r, nil
	case 'u':
		if p.peek() != '{' {
			return 0, p.failAt(at, "expected '{' after \\u")
		}
		p.next()
		end := strings.IndexByte(p.in[p.pos:], '}')
		if end < 0 {
			return 0, p.failAt(at, "unterminated unicode escape")
		}
		code, err := strconv.ParseUint(p.in[p.pos:p.pos+end], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return 0, p.failAt(at, "invalid unicode escape")
		}
		p.pos += end + 1
		return rune(code), nil
	default:
		return 0, p.failAt(at, "unknown escape \\%c", r)
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	neg := false
	if r := p.peek(); r == '-' || r == '+' {
		neg = r == '-'
		p.next()
	}
	var digits strings.Builder
	for !p.eof() {
		r := p.peek()
		if isDigit(r) {
			digits.WriteRune(r)
		} else if r != '_' {
			break
		}
		p.next()
	}
	if digits.Len() == 0 {
		return nil, p.failAt(start, "expected digits")
	}
	if !p.eof() && isIdentPart(p.peek()) {
		// Bare SS58 addresses may start with a digit.
		bad := p.pos
		for !p.eof() && isIdentPart(p.peek()) {
			p.next()
		}
		if tok := p.in[start:p.pos]; looksLikeAddress(tok) {
			return String(tok), nil
		}
		return nil, p.failAt(bad, "invalid character %q in number", p.in[bad])
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return nil, p.failAt(start, "invalid number")
	}
	if neg {
		n.Neg(n)
	}
	if n.Cmp(maxUnsigned) > 0 || n.Cmp(minSigned) < 0 {
		return nil, p.failAt(start, "number does not fit in 256 bits")
	}
	return Int{V: n}, nil
}

func (p *parser) hex() (Value, error) {
	start := p.pos
	p.pos += 2
	digitsStart := p.pos
	for !p.eof() && isHexDigit(p.peek()) {
		p.next()
	}
	digits := p.in[digitsStart:p.pos]
	if !p.eof() && isIdentPart(p.peek()) {
		return nil, p.fail("invalid hex digit %q", p.peek())
	}
	if len(digits)%2 != 0 {
		return nil, p.failAt(start, "hex string needs an even number of digits")
	}
	var c Composite
	for i := 0; i < len(digits); i += 2 {
		b, _ := strconv.ParseUint(digits[i:i+2], 16, 8)
		c.Fields = append(c.Fields, Field{Value: Int{V: new(big.Int).SetUint64(b)}})
	}
	return c, nil
}

func (p *parser) bits() (Value, error) {
	start := p.pos
	p.next() // <
	bits := Bits{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.failAt(start, "unterminated bit sequence")
		}
		switch r := p.next(); r {
		case '0':
			bits = append(bits, false)
		case '1':
			bits = append(bits, true)
		case ',':
		case '>':
			return bits, nil
		default:
			return nil, p.failAt(p.pos-utf8.RuneLen(r), "invalid bit %q", r)
		}
	}
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func looksLikeAddress(tok string) bool {
	if len(tok) < 32 || len(tok) > 64 {
		return false
	}
	for _, r := range tok {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool { return isIdentStart(r) || unicode.IsDigit(r) }
