package entities

import "regexp"

// Network represents a supported blockchain network
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkPolygon  Network = "polygon"
	NetworkBSC      Network = "bsc"
	NetworkBase     Network = "base"
)

// evmAddressPattern matches a 0x-prefixed 20-byte hex address
var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// SupportedNetworks returns all networks the wallet core supports
func SupportedNetworks() []Network {
	return []Network{NetworkEthereum, NetworkPolygon, NetworkBSC, NetworkBase}
}

// IsValid checks if the network is supported
func (n Network) IsValid() bool {
	for _, network := range SupportedNetworks() {
		if network == n {
			return true
		}
	}
	return false
}

// NativeCurrency returns the network's native currency symbol
func (n Network) NativeCurrency() string {
	switch n {
	case NetworkEthereum, NetworkBase:
		return "ETH"
	case NetworkPolygon:
		return "MATIC"
	case NetworkBSC:
		return "BNB"
	default:
		return ""
	}
}

// ValidAddress reports whether addr matches the network's address format.
// All supported networks are EVM-family.
func (n Network) ValidAddress(addr string) bool {
	return evmAddressPattern.MatchString(addr)
}

// TransferGasUnits returns the fixed unit cost of a simple native transfer
func (n Network) TransferGasUnits() int64 {
	return 21000
}
