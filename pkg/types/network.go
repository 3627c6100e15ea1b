// Package types defines the primitive types shared by the wallet packages.
package types

import (
	"fmt"
	"strings"
)

// NetworkType identifies the chain a wallet is bound to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// Network holds the encoding parameters that discriminate one network
// from another. Addresses encoded with one Network never decode under another.
type Network struct {
	Type NetworkType

	// CoinType is the SLIP-44 coin type used in both key trees.
	CoinType uint32

	// UnifiedHRP is the bech32m HRP of unified addresses.
	UnifiedHRP string

	// SaplingHRP is the bech32 HRP of shielded sapling addresses.
	SaplingHRP string

	// ViewingKeyHRP is the bech32m HRP of unified full viewing keys.
	ViewingKeyHRP string

	// P2PKHPrefix is the two-byte base58check version of transparent
	// pay-to-pubkey-hash addresses.
	P2PKHPrefix [2]byte
}

var (
	MainnetParams = Network{
		Type:          Mainnet,
		CoinType:      133,
		UnifiedHRP:    "u",
		SaplingHRP:    "zs",
		ViewingKeyHRP: "uview",
		P2PKHPrefix:   [2]byte{0x1c, 0xb8},
	}

	TestnetParams = Network{
		Type:          Testnet,
		CoinType:      1,
		UnifiedHRP:    "utest",
		SaplingHRP:    "ztestsapling",
		ViewingKeyHRP: "uviewtest",
		P2PKHPrefix:   [2]byte{0x1d, 0x25},
	}

	RegtestParams = Network{
		Type:          Regtest,
		CoinType:      1,
		UnifiedHRP:    "uregtest",
		SaplingHRP:    "zregtestsapling",
		ViewingKeyHRP: "uviewregtest",
		P2PKHPrefix:   [2]byte{0x1d, 0x25},
	}
)

// ParseNetwork returns the parameters for a network name.
func ParseNetwork(name string) (*Network, error) {
	switch NetworkType(strings.ToLower(strings.TrimSpace(name))) {
	case Mainnet, "main", "":
		return &MainnetParams, nil
	case Testnet, "test":
		return &TestnetParams, nil
	case Regtest:
		return &RegtestParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

func (n *Network) String() string {
	return string(n.Type)
}
