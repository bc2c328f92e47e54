package frost

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const wireVersion = 1

// contributionMarshal is the CBOR form of a DKG round 1 contribution.
type contributionMarshal struct {
	Version     uint8
	Sender      string
	Threshold   uint16
	Recipients  []string
	Commitments [][]byte // t points, coefficient commitments a_k*G
	ProofR      []byte   // Schnorr proof of knowledge of a_0
	ProofZ      []byte
	Shares      [][]byte // age ciphertexts, one per recipient in order
}

// sppMarshal is the CBOR form of the public DKG transcript.
type sppMarshal struct {
	Version         uint8
	Threshold       uint16
	Participants    []string
	GroupKey        []byte
	VerifyingShares [][]byte // Y_i for participant index i+1
}

type shareMarshal struct {
	Version  uint8
	Index    uint16
	Secret   []byte
	GroupKey []byte
}

type noncesMarshal struct {
	Version  uint8
	Index    uint16
	GroupKey []byte
	Hiding   []byte
	Binding  []byte
	D        []byte
	E        []byte
}

type commitmentMarshal struct {
	Version  uint8
	Index    uint16
	GroupKey []byte
	D        []byte
	E        []byte
}

// packageMarshal carries everything Aggregate needs besides other packages.
type packageMarshal struct {
	Version     uint8
	Index       uint16
	Z           []byte
	Context     []byte
	Message     []byte
	Commitments [][]byte // encoded commitments sorted by signer index
	SPP         []byte
}

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 65536,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

func unmarshalWire(kind string, data []byte, v interface{ version() uint8 }) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
	}
	if v.version() != wireVersion {
		return fmt.Errorf("%w: %s: unsupported version %d", ErrMalformed, kind, v.version())
	}
	return nil
}

func (m *contributionMarshal) version() uint8 { return m.Version }
func (m *sppMarshal) version() uint8          { return m.Version }
func (m *shareMarshal) version() uint8        { return m.Version }
func (m *noncesMarshal) version() uint8       { return m.Version }
func (m *commitmentMarshal) version() uint8   { return m.Version }
func (m *packageMarshal) version() uint8      { return m.Version }

func unmarshalContribution(data []byte) (*contributionMarshal, error) {
	m := &contributionMarshal{}
	return m, unmarshalWire("contribution", data, m)
}

func unmarshalSPP(data []byte) (*sppMarshal, error) {
	m := &sppMarshal{}
	if err := unmarshalWire("spp output", data, m); err != nil {
		return nil, err
	}
	if m.Threshold < 1 || int(m.Threshold) > len(m.Participants) || len(m.VerifyingShares) != len(m.Participants) {
		return nil, fmt.Errorf("%w: spp output: inconsistent sizes", ErrMalformed)
	}
	return m, nil
}

func unmarshalShare(data []byte) (*shareMarshal, error) {
	m := &shareMarshal{}
	return m, unmarshalWire("signing share", data, m)
}

func unmarshalNonces(data []byte) (*noncesMarshal, error) {
	m := &noncesMarshal{}
	return m, unmarshalWire("signing nonces", data, m)
}

func unmarshalCommitment(data []byte) (*commitmentMarshal, error) {
	m := &commitmentMarshal{}
	return m, unmarshalWire("signing commitment", data, m)
}

func unmarshalPackage(data []byte) (*packageMarshal, error) {
	m := &packageMarshal{}
	return m, unmarshalWire("signing package", data, m)
}
