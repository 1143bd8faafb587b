package types

import "fmt"

// Network identifies an Ergo network.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case Mainnet, Testnet:
		return Network(s), nil
	default:
		return "", fmt.Errorf("unknown network %q (want mainnet or testnet)", s)
	}
}

// AddressPrefix returns the network byte added to the address type in the
// first byte of an encoded address.
func (n Network) AddressPrefix() byte {
	if n == Testnet {
		return 0x10
	}
	return 0x00
}

func (n Network) String() string { return string(n) }
