package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// AddressType is the low nibble of the first address byte.
type AddressType byte

const (
	P2PK AddressType = 1
	P2SH AddressType = 2
	P2S  AddressType = 3
)

const checksumLen = 4

// Address errors.
var (
	ErrEmptyAddress    = errors.New("empty address")
	ErrAddressChecksum = errors.New("address checksum mismatch")
	ErrAddressNetwork  = errors.New("address belongs to a different network")
)

// Address is a base58 Ergo address. Values obtained from ParseAddress have a
// valid checksum; the zero value is the empty address.
type Address string

// DecodedAddress is the binary form of an address.
type DecodedAddress struct {
	Network Network
	Type    AddressType
	Content []byte
}

// DecodeAddress decodes and checksums a base58 address.
func DecodeAddress(s string) (*DecodedAddress, error) {
	if s == "" {
		return nil, ErrEmptyAddress
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(raw) < 1+checksumLen+1 {
		return nil, fmt.Errorf("address too short: %d bytes", len(raw))
	}
	body, sum := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]
	digest := blake2b.Sum256(body)
	if !bytes.Equal(digest[:checksumLen], sum) {
		return nil, ErrAddressChecksum
	}

	head := body[0]
	var net Network
	switch head & 0xf0 {
	case Mainnet.AddressPrefix():
		net = Mainnet
	case Testnet.AddressPrefix():
		net = Testnet
	default:
		return nil, fmt.Errorf("unknown network prefix 0x%02x", head&0xf0)
	}
	typ := AddressType(head & 0x0f)
	if typ != P2PK && typ != P2SH && typ != P2S {
		return nil, fmt.Errorf("unknown address type %d", typ)
	}
	return &DecodedAddress{
		Network: net,
		Type:    typ,
		Content: append([]byte(nil), body[1:]...),
	}, nil
}

// EncodeAddress builds the base58 address for content of the given type.
func EncodeAddress(net Network, typ AddressType, content []byte) Address {
	body := make([]byte, 0, 1+len(content)+checksumLen)
	body = append(body, net.AddressPrefix()+byte(typ))
	body = append(body, content...)
	digest := blake2b.Sum256(body)
	body = append(body, digest[:checksumLen]...)
	return Address(base58.Encode(body))
}

// ParseAddress validates s and checks that it belongs to net.
func ParseAddress(s string, net Network) (Address, error) {
	d, err := DecodeAddress(s)
	if err != nil {
		return "", err
	}
	if d.Network != net {
		return "", fmt.Errorf("%w: %s address on %s", ErrAddressNetwork, d.Network, net)
	}
	return Address(s), nil
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

func (a Address) String() string { return string(a) }
