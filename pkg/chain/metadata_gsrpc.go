package chain

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// metadataFromGSRPC converts V14 runtime metadata into the registry used by
// the encoder.
func metadataFromGSRPC(raw *types.Metadata) (*Metadata, error) {
	if raw == nil || raw.Version != 14 {
		v := 0
		if raw != nil {
			v = int(raw.Version)
		}
		return nil, fmt.Errorf("%w: unsupported metadata version %d", ErrNode, v)
	}
	m := raw.AsMetadataV14

	reg := NewRegistry()
	for _, pt := range m.Lookup.Types {
		t, err := convertType(pt)
		if err != nil {
			return nil, err
		}
		reg.Add(t)
	}

	meta := &Metadata{
		Registry:         reg,
		ExtrinsicType:    lookupID(m.Type),
		ExtrinsicVersion: uint8(m.Extrinsic.Version),
	}
	for _, p := range m.Pallets {
		meta.Pallets = append(meta.Pallets, PalletDef{
			Name:     string(p.Name),
			Index:    uint8(p.Index),
			HasCalls: p.HasCalls,
			Calls:    lookupID(p.Calls.Type),
		})
	}
	for _, e := range m.Extrinsic.SignedExtensions {
		meta.Extensions = append(meta.Extensions, ExtensionDef{
			Identifier: string(e.Identifier),
			Type:       lookupID(e.Type),
			Additional: lookupID(e.AdditionalSigned),
		})
	}
	return meta, nil
}

func lookupID(id types.Si1LookupTypeID) TypeID {
	return TypeID(id.Int64())
}

func convertFields(fields []types.Si1Field) []FieldDef {
	out := make([]FieldDef, 0, len(fields))
	for _, f := range fields {
		fd := FieldDef{Type: lookupID(f.Type)}
		if f.HasName {
			fd.Name = string(f.Name)
		}
		if f.HasTypeName {
			fd.TypeName = string(f.TypeName)
		}
		out = append(out, fd)
	}
	return out
}

func convertType(pt types.PortableTypeV14) (*Type, error) {
	t := &Type{ID: lookupID(pt.ID)}
	for _, p := range pt.Type.Path {
		t.Path = append(t.Path, string(p))
	}
	for _, p := range pt.Type.Params {
		tp := TypeParam{Name: string(p.Name), HasType: p.HasType}
		if p.HasType {
			tp.Type = lookupID(p.Type)
		}
		t.Params = append(t.Params, tp)
	}

	def := pt.Type.Def
	switch {
	case def.IsComposite:
		t.Kind = KindComposite
		t.Fields = convertFields(def.Composite.Fields)
	case def.IsVariant:
		t.Kind = KindVariant
		for _, v := range def.Variant.Variants {
			t.Variants = append(t.Variants, VariantDef{
				Name:   string(v.Name),
				Index:  uint8(v.Index),
				Fields: convertFields(v.Fields),
			})
		}
	case def.IsSequence:
		t.Kind = KindSequence
		t.Elem = lookupID(def.Sequence.Type)
	case def.IsArray:
		t.Kind = KindArray
		t.Len = uint32(def.Array.Len)
		t.Elem = lookupID(def.Array.Type)
	case def.IsTuple:
		t.Kind = KindTuple
		for _, id := range def.Tuple {
			t.Tuple = append(t.Tuple, lookupID(id))
		}
	case def.IsPrimitive:
		t.Kind = KindPrimitive
		t.Primitive = Primitive(def.Primitive.Si0TypeDefPrimitive)
		if t.Primitive > PrimI256 {
			return nil, fmt.Errorf("%w: type %d has unknown primitive %d", ErrNode, t.ID, t.Primitive)
		}
	case def.IsCompact:
		t.Kind = KindCompact
		t.Elem = lookupID(def.Compact.Type)
	case def.IsBitSequence:
		t.Kind = KindBitSequence
		t.BitStore = lookupID(def.BitSequence.BitStoreType)
		t.BitOrder = lookupID(def.BitSequence.BitOrderType)
	default:
		return nil, fmt.Errorf("%w: type %d has an unknown definition", ErrNode, t.ID)
	}
	return t, nil
}
