package chain

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// txParams carries the values signed extensions draw from.
type txParams struct {
	nonce       uint64
	specVersion uint32
	txVersion   uint32
	genesis     Hash
}

// encodeExtensions returns the extra bytes carried in the extrinsic and the
// additional bytes that are signed but not transmitted. Transactions are
// immortal, tip zero and without metadata hash check.
func encodeExtensions(meta *Metadata, p txParams) (extra, additional []byte, err error) {
	var x, a bytes.Buffer
	u32 := func(v uint32) []byte {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		return b[:]
	}
	for _, ext := range meta.Extensions {
		switch ext.Identifier {
		case "CheckNonZeroSender", "CheckWeight":
		case "CheckSpecVersion":
			a.Write(u32(p.specVersion))
		case "CheckTxVersion":
			a.Write(u32(p.txVersion))
		case "CheckGenesis":
			a.Write(p.genesis[:])
		case "CheckMortality", "CheckEra":
			x.WriteByte(0x00) // Era::Immortal
			a.Write(p.genesis[:])
		case "CheckNonce":
			x.Write(EncodeCompact(p.nonce))
		case "ChargeTransactionPayment":
			x.Write(EncodeCompact(0))
		case "ChargeAssetTxPayment":
			x.Write(EncodeCompact(0))
			x.WriteByte(0x00) // asset id: None
		case "CheckMetadataHash":
			x.WriteByte(0x00) // Mode::Disabled
			a.WriteByte(0x00) // Option<[u8; 32]>::None
		default:
			if meta.Registry.IsUnit(ext.Type) && meta.Registry.IsUnit(ext.Additional) {
				continue
			}
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext.Identifier)
		}
	}
	return x.Bytes(), a.Bytes(), nil
}
