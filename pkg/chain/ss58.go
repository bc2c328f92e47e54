package chain

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

var ErrInvalidAddress = errors.New("invalid ss58 address")

var ss58Prefix = []byte("SS58PRE")

func ss58Checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Prefix)
	h.Write(data)
	return h.Sum(nil)[:2]
}

// EncodeAddress renders a 32-byte public key as an SS58 address for the
// given network prefix.
func EncodeAddress(pub []byte, prefix uint16) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("%w: public key is %d bytes", ErrInvalidAddress, len(pub))
	}
	var data []byte
	switch {
	case prefix < 64:
		data = []byte{byte(prefix)}
	case prefix < 16384:
		data = []byte{
			byte((prefix&0x00fc)>>2) | 0x40,
			byte(prefix>>8) | byte((prefix&0x0003)<<6),
		}
	default:
		return "", fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}
	data = append(data, pub...)
	data = append(data, ss58Checksum(data)...)
	return base58.Encode(data), nil
}

// DecodeAddress parses an SS58 address into its public key and prefix.
func DecodeAddress(addr string) ([]byte, uint16, error) {
	data, err := base58.Decode(addr)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(data) < 1 {
		return nil, 0, ErrInvalidAddress
	}
	var prefix uint16
	prefixLen := 1
	switch {
	case data[0] < 64:
		prefix = uint16(data[0])
	case data[0] < 128:
		if len(data) < 2 {
			return nil, 0, ErrInvalidAddress
		}
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return nil, 0, fmt.Errorf("%w: reserved prefix byte %#x", ErrInvalidAddress, data[0])
	}
	if len(data) != prefixLen+32+2 {
		return nil, 0, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(data))
	}
	body := data[:prefixLen+32]
	sum := ss58Checksum(body)
	if sum[0] != data[len(data)-2] || sum[1] != data[len(data)-1] {
		return nil, 0, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return append([]byte(nil), data[prefixLen:prefixLen+32]...), prefix, nil
}
