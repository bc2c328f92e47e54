// Package callvalue parses the textual value syntax operators use to pass
// extrinsic call arguments on the command line, e.g.
//
//	(5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY, 1_000_000)
//	{ dest: Id(0x1234...), value: 10 }
//
// Values are untyped; the chain package encodes them against the runtime
// metadata.
package callvalue

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Value is one parsed value.
type Value interface {
	String() string
	value()
}

// Field is one composite field. Name is empty in unnamed composites.
type Field struct {
	Name  string
	Value Value
}

// Composite is a tuple-like `(a, b)` or struct-like `{ x: a }` value.
type Composite struct {
	Named  bool
	Fields []Field
}

// Variant is an enum value `Name(..)`, `Name { .. }` or bare `Name`.
type Variant struct {
	Name   string
	Fields Composite
}

type Bool bool

type Char rune

type String string

// Int is a signed or unsigned integer of at most 256 bits.
type Int struct {
	V *big.Int
}

// Bits is a bit sequence `<0101>`.
type Bits []bool

func (Composite) value() {}
func (Variant) value()   {}
func (Bool) value()      {}
func (Char) value()      {}
func (String) value()    {}
func (Int) value()       {}
func (Bits) value()      {}

// Values returns the field values in order.
func (c Composite) Values() []Value {
	out := make([]Value, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Value
	}
	return out
}

// Bytes reports whether every field is an integer in 0..255 and returns them.
// Hex literals parse to such composites.
func (c Composite) Bytes() ([]byte, bool) {
	out := make([]byte, len(c.Fields))
	for i, f := range c.Fields {
		n, ok := f.Value.(Int)
		if !ok || n.V.Sign() < 0 || n.V.BitLen() > 8 {
			return nil, false
		}
		out[i] = byte(n.V.Uint64())
	}
	return out, true
}

// Unnamed builds an unnamed composite from values.
func Unnamed(values ...Value) Composite {
	c := Composite{Fields: make([]Field, len(values))}
	for i, v := range values {
		c.Fields[i] = Field{Value: v}
	}
	return c
}

// Named builds a named composite.
func Named(fields ...Field) Composite {
	return Composite{Named: true, Fields: fields}
}

func NewInt(v int64) Int { return Int{V: big.NewInt(v)} }

// IntoComposite leaves composites untouched and wraps anything else into a
// single-field unnamed composite.
func IntoComposite(v Value) Composite {
	if c, ok := v.(Composite); ok {
		return c
	}
	return Unnamed(v)
}

func (c Composite) String() string {
	var b strings.Builder
	if c.Named {
		b.WriteString("{ ")
		for i, f := range c.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", f.Name, f.Value)
		}
		b.WriteString(" }")
		return b.String()
	}
	b.WriteByte('(')
	for i, f := range c.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Value.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (v Variant) String() string {
	if len(v.Fields.Fields) == 0 && !v.Fields.Named {
		return v.Name
	}
	if v.Fields.Named {
		return v.Name + " " + v.Fields.String()
	}
	return v.Name + v.Fields.String()
}

func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (c Char) String() string   { return strconv.QuoteRune(rune(c)) }
func (s String) String() string { return strconv.Quote(string(s)) }
func (n Int) String() string    { return n.V.String() }

func (b Bits) String() string {
	var sb strings.Builder
	sb.WriteByte('<')
	for _, bit := range b {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteByte('>')
	return sb.String()
}
