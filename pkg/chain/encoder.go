package chain

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"

	"github.com/luxfi/substrate-mpc/pkg/callvalue"
)

// EncodeValue SCALE-encodes v as the registry type id.
func EncodeValue(reg *Registry, id TypeID, v callvalue.Value) ([]byte, error) {
	e := newEncoder(reg)
	if err := e.encode(id, v, "value"); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// EncodeCall encodes pallet index, call index and the call arguments.
func EncodeCall(meta *Metadata, pallet, call string, args callvalue.Composite) ([]byte, error) {
	palletIndex, def, err := meta.Call(pallet, call)
	if err != nil {
		return nil, err
	}
	e := newEncoder(meta.Registry)
	if err := e.enc.PushByte(palletIndex); err != nil {
		return nil, err
	}
	if err := e.enc.PushByte(def.Index); err != nil {
		return nil, err
	}
	if err := e.fields(def.Fields, args, pallet+"."+call); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	reg *Registry
	buf *bytes.Buffer
	enc *scale.Encoder
}

func newEncoder(reg *Registry) *encoder {
	buf := &bytes.Buffer{}
	return &encoder{reg: reg, buf: buf, enc: scale.NewEncoder(buf)}
}

func encodeErr(at string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrEncode, at, fmt.Sprintf(format, args...))
}

func (e *encoder) encode(id TypeID, v callvalue.Value, at string) error {
	t, err := e.reg.Lookup(id)
	if err != nil {
		return err
	}
	// (x) is accepted wherever x is.
	if c, ok := v.(callvalue.Composite); ok && !c.Named && len(c.Fields) == 1 {
		switch t.Kind {
		case KindPrimitive, KindCompact, KindVariant, KindBitSequence:
			v = c.Fields[0].Value
		}
	}
	switch t.Kind {
	case KindComposite:
		return e.composite(t, v, at)
	case KindVariant:
		return e.variant(t, v, at)
	case KindSequence:
		return e.sequence(t, v, at)
	case KindArray:
		return e.array(t, v, at)
	case KindTuple:
		return e.tuple(t, v, at)
	case KindPrimitive:
		return e.primitive(t.Primitive, v, at)
	case KindCompact:
		return e.compact(t.Elem, v, at)
	case KindBitSequence:
		return e.bits(t, v, at)
	}
	return encodeErr(at, "unknown type kind %d", t.Kind)
}

// matches reports whether c lines up with defs field by field.
func matches(defs []FieldDef, c callvalue.Composite) bool {
	if len(defs) != len(c.Fields) {
		return false
	}
	if !c.Named {
		return true
	}
	for _, d := range defs {
		found := false
		for _, f := range c.Fields {
			if f.Name == d.Name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (e *encoder) fields(defs []FieldDef, c callvalue.Composite, at string) error {
	if !matches(defs, c) {
		if len(defs) == 1 && len(c.Fields) != 1 {
			return e.encode(defs[0].Type, c, at+"."+fieldLabel(defs[0], 0))
		}
		return encodeErr(at, "expected %d fields %s, got %s", len(defs), fieldNames(defs), c)
	}
	for i, d := range defs {
		v := c.Fields[i].Value
		if c.Named {
			for _, f := range c.Fields {
				if f.Name == d.Name {
					v = f.Value
					break
				}
			}
		}
		if err := e.encode(d.Type, v, at+"."+fieldLabel(d, i)); err != nil {
			return err
		}
	}
	return nil
}

func fieldLabel(d FieldDef, i int) string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprint(i)
}

func fieldNames(defs []FieldDef) string {
	var b bytes.Buffer
	b.WriteByte('(')
	for i, d := range defs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fieldLabel(d, i))
		if d.TypeName != "" {
			b.WriteString(": " + d.TypeName)
		}
	}
	b.WriteByte(')')
	return b.String()
}

func (e *encoder) composite(t *Type, v callvalue.Value, at string) error {
	if c, ok := v.(callvalue.Composite); ok && matches(t.Fields, c) {
		return e.fields(t.Fields, c, at)
	}
	// Newtype wrappers such as AccountId32([u8; 32]) take their inner value.
	if len(t.Fields) == 1 {
		return e.encode(t.Fields[0].Type, v, at)
	}
	return encodeErr(at, "%s expects fields %s, got %s", t.PathString(), fieldNames(t.Fields), v)
}

func (e *encoder) variant(t *Type, v callvalue.Value, at string) error {
	vv, isVariant := v.(callvalue.Variant)
	var def *VariantDef
	if isVariant {
		def, _ = t.Variant(vv.Name)
	}
	if def == nil {
		switch {
		case isPath(t, "Option") && !isVariant:
			def, _ = t.Variant("Some")
			vv = callvalue.Variant{Name: "Some", Fields: callvalue.Unnamed(v)}
		case isPath(t, "MultiAddress"):
			// Bare account ids and SS58 addresses mean MultiAddress::Id.
			def, _ = t.Variant("Id")
			vv = callvalue.Variant{Name: "Id", Fields: callvalue.Unnamed(v)}
		}
	}
	if def == nil {
		names := make([]string, len(t.Variants))
		for i, d := range t.Variants {
			names[i] = d.Name
		}
		return encodeErr(at, "%s expects one of %v, got %s", t.PathString(), names, v)
	}
	if err := e.enc.PushByte(def.Index); err != nil {
		return err
	}
	return e.fields(def.Fields, vv.Fields, at+"::"+def.Name)
}

func isPath(t *Type, last string) bool {
	return len(t.Path) > 0 && t.Path[len(t.Path)-1] == last
}

func (e *encoder) isByte(id TypeID) bool {
	t, err := e.reg.Lookup(id)
	return err == nil && t.Kind == KindPrimitive && t.Primitive == PrimU8
}

func (e *encoder) sequence(t *Type, v callvalue.Value, at string) error {
	if s, ok := v.(callvalue.String); ok && e.isByte(t.Elem) {
		if err := e.compactLen(len(s)); err != nil {
			return err
		}
		return e.enc.Write([]byte(s))
	}
	c, ok := v.(callvalue.Composite)
	if !ok {
		return encodeErr(at, "expected a sequence, got %s", v)
	}
	if err := e.compactLen(len(c.Fields)); err != nil {
		return err
	}
	for i, f := range c.Fields {
		if err := e.encode(t.Elem, f.Value, fmt.Sprintf("%s[%d]", at, i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) array(t *Type, v callvalue.Value, at string) error {
	if t.Len == 32 && e.isByte(t.Elem) {
		var addr string
		switch x := v.(type) {
		case callvalue.String:
			addr = string(x)
		case callvalue.Variant:
			if len(x.Fields.Fields) == 0 {
				addr = x.Name
			}
		}
		if addr != "" {
			pub, _, err := DecodeAddress(addr)
			if err != nil {
				return encodeErr(at, "%v", err)
			}
			return e.enc.Write(pub)
		}
	}
	c, ok := v.(callvalue.Composite)
	if !ok || len(c.Fields) != int(t.Len) {
		return encodeErr(at, "expected %d elements, got %s", t.Len, v)
	}
	for i, f := range c.Fields {
		if err := e.encode(t.Elem, f.Value, fmt.Sprintf("%s[%d]", at, i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) tuple(t *Type, v callvalue.Value, at string) error {
	c, ok := v.(callvalue.Composite)
	if ok && len(c.Fields) == len(t.Tuple) {
		for i, f := range c.Fields {
			if err := e.encode(t.Tuple[i], f.Value, fmt.Sprintf("%s.%d", at, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if len(t.Tuple) == 1 {
		return e.encode(t.Tuple[0], v, at+".0")
	}
	return encodeErr(at, "expected a %d-tuple, got %s", len(t.Tuple), v)
}

func (e *encoder) primitive(p Primitive, v callvalue.Value, at string) error {
	switch p {
	case PrimBool:
		b, ok := v.(callvalue.Bool)
		if !ok {
			return encodeErr(at, "expected bool, got %s", v)
		}
		if b {
			return e.enc.PushByte(1)
		}
		return e.enc.PushByte(0)
	case PrimChar:
		c, ok := v.(callvalue.Char)
		if !ok {
			return encodeErr(at, "expected char, got %s", v)
		}
		return e.enc.Write(littleEndian(big.NewInt(int64(c)), 4))
	case PrimStr:
		s, ok := v.(callvalue.String)
		if !ok {
			return encodeErr(at, "expected string, got %s", v)
		}
		if err := e.compactLen(len(s)); err != nil {
			return err
		}
		return e.enc.Write([]byte(s))
	}

	width, signed, ok := p.width()
	if !ok {
		return encodeErr(at, "unknown primitive %d", p)
	}
	n, ok := v.(callvalue.Int)
	if !ok {
		return encodeErr(at, "expected integer, got %s", v)
	}
	if !fits(n.V, width, signed) {
		return encodeErr(at, "%s does not fit in %d-bit %s integer", n.V, width*8, signedness(signed))
	}
	return e.enc.Write(littleEndian(n.V, width))
}

func (e *encoder) compact(elem TypeID, v callvalue.Value, at string) error {
	t, err := e.reg.Lookup(elem)
	if err != nil {
		return err
	}
	switch t.Kind {
	case KindPrimitive:
		width, signed, ok := t.Primitive.width()
		if !ok || signed {
			return encodeErr(at, "compact of non-unsigned primitive")
		}
		n, ok := v.(callvalue.Int)
		if !ok {
			return encodeErr(at, "expected integer, got %s", v)
		}
		if !fits(n.V, width, false) {
			return encodeErr(at, "%s does not fit in compact u%d", n.V, width*8)
		}
		return e.enc.EncodeUintCompact(*n.V)
	case KindComposite:
		if len(t.Fields) == 1 {
			return e.compact(t.Fields[0].Type, v, at)
		}
		if e.reg.IsUnit(elem) {
			return nil
		}
	case KindTuple:
		if e.reg.IsUnit(elem) {
			return nil
		}
	}
	return encodeErr(at, "unsupported compact inner type %s", t.PathString())
}

func (e *encoder) bits(t *Type, v callvalue.Value, at string) error {
	bits, ok := v.(callvalue.Bits)
	if !ok {
		return encodeErr(at, "expected bit sequence, got %s", v)
	}
	store, err := e.reg.Lookup(t.BitStore)
	if err != nil {
		return err
	}
	width, signed, ok := store.Primitive.width()
	if store.Kind != KindPrimitive || !ok || signed || width > 8 {
		return encodeErr(at, "unsupported bit store type")
	}
	order, err := e.reg.Lookup(t.BitOrder)
	if err != nil {
		return err
	}
	msb := isPath(order, "Msb0")

	if err := e.compactLen(len(bits)); err != nil {
		return err
	}
	wordBits := width * 8
	words := (len(bits) + wordBits - 1) / wordBits
	for w := 0; w < words; w++ {
		var word uint64
		for i := 0; i < wordBits; i++ {
			idx := w*wordBits + i
			if idx >= len(bits) || !bits[idx] {
				continue
			}
			if msb {
				word |= 1 << uint(wordBits-1-i)
			} else {
				word |= 1 << uint(i)
			}
		}
		if err := e.enc.Write(littleEndian(new(big.Int).SetUint64(word), width)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) compactLen(n int) error {
	return e.enc.EncodeUintCompact(*big.NewInt(int64(n)))
}

// EncodeCompact returns the SCALE compact encoding of n.
func EncodeCompact(n uint64) []byte {
	e := newEncoder(nil)
	_ = e.enc.EncodeUintCompact(*new(big.Int).SetUint64(n))
	return e.buf.Bytes()
}

func fits(n *big.Int, width int, signed bool) bool {
	bits := uint(width * 8)
	if !signed {
		return n.Sign() >= 0 && n.BitLen() <= int(bits)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	min := new(big.Int).Neg(limit)
	return n.Cmp(min) >= 0 && n.Cmp(limit) < 0
}

// littleEndian encodes n as a width-byte two's complement little endian
// integer. n must already fit.
func littleEndian(n *big.Int, width int) []byte {
	x := new(big.Int).Set(n)
	if x.Sign() < 0 {
		x.Add(x, new(big.Int).Lsh(big.NewInt(1), uint(width*8)))
	}
	out := x.FillBytes(make([]byte, width))
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func signedness(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}
