package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
	"github.com/Klingon-tech/zwalletd/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

var (
	// ErrInvalidIndex is returned for account or address indices outside the
	// non-hardened range.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrWatchOnly is returned by a watch-only engine for an account it
	// holds no viewing key for.
	ErrWatchOnly = errors.New("no viewing key for account")
)

// MaxIndex is the largest account or address index accepted.
const MaxIndex = bip32.FirstHardenedChild - 1

// Engine derives account and address keys, either from a master seed or,
// watch-only, from the full viewing keys of a fixed set of accounts. It is
// safe for concurrent use.
type Engine struct {
	net         *types.Network
	transparent *HDKey
	shielded    *ShieldedKey

	// viewing holds the accounts of a watch-only engine by index.
	viewing     []*AccountKeys
	fingerprint string
}

// NewEngine creates an engine for net from a 64-byte seed.
// The caller may zero seed once NewEngine returns.
func NewEngine(seed []byte, net *types.Network) (*Engine, error) {
	if net == nil {
		return nil, fmt.Errorf("network is required")
	}
	transparent, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	shielded, err := NewShieldedMaster(seed)
	if err != nil {
		return nil, err
	}
	e := &Engine{net: net, transparent: transparent, shielded: shielded}
	first, err := e.DeriveAccount(0)
	if err != nil {
		return nil, err
	}
	e.fingerprint = fingerprint(first)
	return e, nil
}

// NewViewingEngine creates a watch-only engine for net. keys[i] is the full
// viewing key of account i; accounts past the last key cannot be derived.
func NewViewingEngine(net *types.Network, keys []*types.FullViewingKey) (*Engine, error) {
	if net == nil {
		return nil, fmt.Errorf("network is required")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one viewing key is required")
	}
	e := &Engine{net: net, viewing: make([]*AccountKeys, len(keys))}
	for i, fvk := range keys {
		acct, err := AccountKeysFromViewingKey(uint32(i), fvk)
		if err != nil {
			return nil, err
		}
		e.viewing[i] = acct
	}
	e.fingerprint = fingerprint(e.viewing[0])
	return e, nil
}

// fingerprint hashes the full viewing key of account 0.
func fingerprint(first *AccountKeys) string {
	fvk := first.FullViewingKey()
	h := crypto.Hash(append(fvk.Transparent, fvk.Sapling...))
	return hex.EncodeToString(h[:8])
}

// Network returns the network the engine derives for.
func (e *Engine) Network() *types.Network {
	return e.net
}

// Fingerprint identifies the key tree without revealing it. A seed engine
// and a watch-only engine built from its viewing keys agree.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// WatchOnly reports whether the engine was built from viewing keys.
func (e *Engine) WatchOnly() bool {
	return e.shielded == nil
}

func checkIndex(kind string, index uint32) error {
	if index > MaxIndex {
		return fmt.Errorf("%w: %s index %d exceeds %d", ErrInvalidIndex, kind, index, uint32(MaxIndex))
	}
	return nil
}

// DeriveAccount derives the key material of account.
func (e *Engine) DeriveAccount(account uint32) (*AccountKeys, error) {
	if err := checkIndex("account", account); err != nil {
		return nil, err
	}
	if e.WatchOnly() {
		if int(account) >= len(e.viewing) {
			return nil, fmt.Errorf("%w: account %d", ErrWatchOnly, account)
		}
		return e.viewing[account], nil
	}

	acct, err := e.transparent.DeriveAccount(e.net.CoinType, account)
	if err != nil {
		return nil, fmt.Errorf("derive transparent account %d: %w", account, err)
	}
	sk, err := e.shielded.DeriveAccount(e.net.CoinType, account)
	if err != nil {
		return nil, fmt.Errorf("derive shielded account %d: %w", account, err)
	}
	vk, err := sk.ViewingKey()
	if err != nil {
		return nil, fmt.Errorf("derive shielded account %d: %w", account, err)
	}
	return newAccountKeys(account, acct.Neuter(), vk)
}

// DeriveAddressKeys derives the public key material of address index in
// family. The result depends only on the account keys, index and family.
func (e *Engine) DeriveAddressKeys(acct *AccountKeys, index uint32, family types.Family) (*types.AddressKeys, error) {
	if acct == nil {
		return nil, fmt.Errorf("account keys are required")
	}
	if err := checkIndex("address", index); err != nil {
		return nil, err
	}
	if !family.Valid() {
		return nil, fmt.Errorf("unsupported address family %s", family)
	}
	return acct.addressKeys(index, family)
}

// DeriveAddress is DeriveAccount followed by DeriveAddressKeys.
func (e *Engine) DeriveAddress(account, index uint32, family types.Family) (*types.AddressKeys, error) {
	acct, err := e.DeriveAccount(account)
	if err != nil {
		return nil, err
	}
	return e.DeriveAddressKeys(acct, index, family)
}
