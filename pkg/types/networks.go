package types

import "strings"

// NetworkCode represents a supported Substrate network
type NetworkCode string

const (
	// Relay chains
	NetworkPolkadot NetworkCode = "polkadot"
	NetworkKusama   NetworkCode = "kusama"
	NetworkWestend  NetworkCode = "westend"
	NetworkPaseo    NetworkCode = "paseo"

	// Parachains
	NetworkAstar NetworkCode = "astar"
	NetworkAcala NetworkCode = "acala"

	// Generic substrate, also used by local dev nodes
	NetworkSubstrate NetworkCode = "substrate"
)

// Network holds the per-network address and endpoint defaults.
type Network struct {
	Code       NetworkCode
	SS58Prefix uint16
	DefaultURL string
}

const DefaultNodeURL = "ws://127.0.0.1:9944"

// SupportedNetworks contains all supported networks
var SupportedNetworks = map[NetworkCode]Network{
	NetworkPolkadot:  {NetworkPolkadot, 0, "wss://rpc.polkadot.io"},
	NetworkKusama:    {NetworkKusama, 2, "wss://kusama-rpc.polkadot.io"},
	NetworkWestend:   {NetworkWestend, 42, "wss://westend-rpc.polkadot.io"},
	NetworkPaseo:     {NetworkPaseo, 0, "wss://paseo.rpc.amforc.com"},
	NetworkAstar:     {NetworkAstar, 5, "wss://rpc.astar.network"},
	NetworkAcala:     {NetworkAcala, 10, "wss://acala-rpc.dwellir.com"},
	NetworkSubstrate: {NetworkSubstrate, 42, DefaultNodeURL},
}

// IsNetworkSupported checks if a network code is supported
func IsNetworkSupported(network string) bool {
	_, ok := SupportedNetworks[NetworkCode(strings.ToLower(network))]
	return ok
}

// LookupNetwork returns the network preset, defaulting to generic substrate
// for an empty code.
func LookupNetwork(network string) (Network, bool) {
	if network == "" {
		return SupportedNetworks[NetworkSubstrate], true
	}
	n, ok := SupportedNetworks[NetworkCode(strings.ToLower(network))]
	return n, ok
}
