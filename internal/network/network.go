// Package network lists the public Avalanche networks an L1 can be
// registered against.
package network

import (
	"errors"
	"strings"
)

// ErrNetworkNotFound is returned when a lookup has no match.
var ErrNetworkNotFound = errors.New("network not found")

// Network describes one Avalanche primary network.
type Network struct {
	Name        string
	DisplayName string
	ChainID     int64 // C-Chain EVM chain ID
	HRP         string
	RPC         string
	Explorer    string
	FaucetURL   string
	Testnet     bool
}

// Registry holds the known networks indexed by name and chain ID.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry creates a registry with Mainnet and Fuji.
func NewRegistry() *Registry {
	r := &Registry{
		networks: allNetworks(),
		byName:   make(map[string]*Network),
		byID:     make(map[int64]*Network),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// ByName finds a network by slug ("mainnet", "fuji").
func (r *Registry) ByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// ByChainID finds a network by its C-Chain ID.
func (r *Registry) ByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// ExplorerTxURL returns the explorer page for a P-Chain or C-Chain tx.
func (n *Network) ExplorerTxURL(txID string) string {
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + txID
}

func allNetworks() []Network {
	return []Network{
		{
			Name: "mainnet", DisplayName: "Avalanche Mainnet", ChainID: 43114, HRP: "avax",
			RPC:      "https://api.avax.network/ext/bc/C/rpc",
			Explorer: "https://subnets.avax.network/c-chain",
		},
		{
			Name: "fuji", DisplayName: "Avalanche Fuji", ChainID: 43113, HRP: "fuji",
			RPC:       "https://api.avax-test.network/ext/bc/C/rpc",
			Explorer:  "https://subnets-test.avax.network/c-chain",
			FaucetURL: "https://core.app/tools/testnet-faucet",
			Testnet:   true,
		},
	}
}
