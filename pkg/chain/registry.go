package chain

import (
	"fmt"
	"strings"
)

// TypeID indexes a type in the runtime's portable type registry.
type TypeID uint32

type TypeKind int

const (
	KindComposite TypeKind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
)

// Primitive follows the scale-info primitive order.
type Primitive int

const (
	PrimBool Primitive = iota
	PrimChar
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
)

// width returns the encoded size in bytes and signedness of an integer
// primitive.
func (p Primitive) width() (int, bool, bool) {
	switch p {
	case PrimU8:
		return 1, false, true
	case PrimU16:
		return 2, false, true
	case PrimU32:
		return 4, false, true
	case PrimU64:
		return 8, false, true
	case PrimU128:
		return 16, false, true
	case PrimU256:
		return 32, false, true
	case PrimI8:
		return 1, true, true
	case PrimI16:
		return 2, true, true
	case PrimI32:
		return 4, true, true
	case PrimI64:
		return 8, true, true
	case PrimI128:
		return 16, true, true
	case PrimI256:
		return 32, true, true
	}
	return 0, false, false
}

type FieldDef struct {
	Name     string
	Type     TypeID
	TypeName string
}

type VariantDef struct {
	Name   string
	Index  uint8
	Fields []FieldDef
}

type TypeParam struct {
	Name    string
	Type    TypeID
	HasType bool
}

// Type is one registry entry. Which fields are meaningful depends on Kind.
type Type struct {
	ID        TypeID
	Path      []string
	Params    []TypeParam
	Kind      TypeKind
	Fields    []FieldDef   // composite
	Variants  []VariantDef // variant
	Elem      TypeID       // sequence, array, compact
	Len       uint32       // array
	Tuple     []TypeID
	Primitive Primitive
	BitStore  TypeID
	BitOrder  TypeID
}

// PathString joins the type path with "::".
func (t *Type) PathString() string { return strings.Join(t.Path, "::") }

// Variant looks up a variant by name.
func (t *Type) Variant(name string) (*VariantDef, bool) {
	for i := range t.Variants {
		if t.Variants[i].Name == name {
			return &t.Variants[i], true
		}
	}
	return nil, false
}

// Param looks up a generic parameter by name.
func (t *Type) Param(name string) (TypeID, bool) {
	for _, p := range t.Params {
		if p.Name == name && p.HasType {
			return p.Type, true
		}
	}
	return 0, false
}

// Registry is the runtime type registry.
type Registry struct {
	types map[TypeID]*Type
}

func NewRegistry(types ...*Type) *Registry {
	r := &Registry{types: make(map[TypeID]*Type, len(types))}
	for _, t := range types {
		r.Add(t)
	}
	return r
}

func (r *Registry) Add(t *Type) { r.types[t.ID] = t }

func (r *Registry) Lookup(id TypeID) (*Type, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("%w: type %d missing from registry", ErrEncode, id)
	}
	return t, nil
}

// IsUnit reports whether the type encodes to zero bytes.
func (r *Registry) IsUnit(id TypeID) bool {
	t, err := r.Lookup(id)
	if err != nil {
		return false
	}
	switch t.Kind {
	case KindComposite:
		for _, f := range t.Fields {
			if !r.IsUnit(f.Type) {
				return false
			}
		}
		return true
	case KindTuple:
		for _, e := range t.Tuple {
			if !r.IsUnit(e) {
				return false
			}
		}
		return true
	case KindArray:
		return t.Len == 0 || r.IsUnit(t.Elem)
	}
	return false
}

type PalletDef struct {
	Name     string
	Index    uint8
	HasCalls bool
	Calls    TypeID
}

type ExtensionDef struct {
	Identifier string
	Type       TypeID
	Additional TypeID
}

// Metadata is the subset of runtime metadata needed to build extrinsics.
type Metadata struct {
	Registry         *Registry
	Pallets          []PalletDef
	ExtrinsicType    TypeID
	ExtrinsicVersion uint8
	Extensions       []ExtensionDef
}

// Call resolves a pallet and call name to the pallet index and call variant.
func (m *Metadata) Call(pallet, call string) (uint8, *VariantDef, error) {
	for _, p := range m.Pallets {
		if p.Name != pallet {
			continue
		}
		if !p.HasCalls {
			return 0, nil, fmt.Errorf("%w: pallet %s has no calls", ErrUnknownCall, pallet)
		}
		t, err := m.Registry.Lookup(p.Calls)
		if err != nil {
			return 0, nil, err
		}
		v, ok := t.Variant(call)
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s.%s", ErrUnknownCall, pallet, call)
		}
		return p.Index, v, nil
	}
	return 0, nil, fmt.Errorf("%w: pallet %s", ErrUnknownCall, pallet)
}

// extrinsicParam resolves a generic parameter of the UncheckedExtrinsic
// type, such as "Address" or "Signature".
func (m *Metadata) extrinsicParam(name string) (*Type, error) {
	ext, err := m.Registry.Lookup(m.ExtrinsicType)
	if err != nil {
		return nil, err
	}
	id, ok := ext.Param(name)
	if !ok {
		return nil, fmt.Errorf("%w: extrinsic type has no %s parameter", ErrEncode, name)
	}
	return m.Registry.Lookup(id)
}
