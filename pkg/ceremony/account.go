package ceremony

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/edwards/v2"
)

// ThresholdAccount describes the account controlled by the group. It is
// created once at the end of DKG round 2 and only read afterwards.
type ThresholdAccount struct {
	PublicKey    ThresholdPublicKey
	Threshold    int
	Participants []ParticipantKey
}

func (a ThresholdAccount) N() int { return len(a.Participants) }

// Validate checks the descriptor is internally consistent and that the key
// is a point on the ed25519 curve.
func (a ThresholdAccount) Validate() error {
	if a.Threshold < 1 || a.Threshold > a.N() {
		return fmt.Errorf("%w: t=%d n=%d", ErrInvalidThreshold, a.Threshold, a.N())
	}
	if _, err := edwards.ParsePubKey(a.PublicKey); err != nil {
		return fmt.Errorf("threshold public key: %w", err)
	}
	return nil
}

type accountJSON struct {
	PublicKey    string           `json:"public_key"`
	Address      string           `json:"address,omitempty"`
	Threshold    int              `json:"threshold"`
	Participants []ParticipantKey `json:"participants"`
}

// MarshalDescriptor encodes the account as the JSON descriptor shared with
// operators. address is informational and not read back.
func (a ThresholdAccount) MarshalDescriptor(address string) ([]byte, error) {
	return json.MarshalIndent(accountJSON{
		PublicKey:    a.PublicKey.Hex(),
		Address:      address,
		Threshold:    a.Threshold,
		Participants: a.Participants,
	}, "", "  ")
}

// UnmarshalDescriptor decodes and validates a descriptor.
func UnmarshalDescriptor(data []byte) (ThresholdAccount, error) {
	var raw accountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return ThresholdAccount{}, err
	}
	pk, err := hex.DecodeString(strings.TrimPrefix(raw.PublicKey, "0x"))
	if err != nil {
		return ThresholdAccount{}, fmt.Errorf("public key: %w", err)
	}
	a := ThresholdAccount{
		PublicKey:    pk,
		Threshold:    raw.Threshold,
		Participants: raw.Participants,
	}
	return a, a.Validate()
}
