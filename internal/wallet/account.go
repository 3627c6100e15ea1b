package wallet

import (
	"fmt"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// AccountKeys is the public key material of one account: the transparent
// account key and the shielded viewing key. It is immutable once derived.
type AccountKeys struct {
	Index uint32

	transparent *HDKey
	external    *HDKey
	viewing     *ViewingKey
}

func newAccountKeys(index uint32, transparent *HDKey, vk *ViewingKey) (*AccountKeys, error) {
	external, err := transparent.DeriveChild(ChangeExternal)
	if err != nil {
		return nil, fmt.Errorf("derive transparent account %d: %w", index, err)
	}
	return &AccountKeys{Index: index, transparent: transparent, external: external, viewing: vk}, nil
}

// AccountKeysFromViewingKey rebuilds the keys of account index from its
// full viewing key. Both the transparent and the sapling item are required.
func AccountKeysFromViewingKey(index uint32, fvk *types.FullViewingKey) (*AccountKeys, error) {
	if fvk == nil {
		return nil, fmt.Errorf("viewing key is required")
	}
	if len(fvk.Transparent) != types.TransparentFVKLen {
		return nil, fmt.Errorf("account %d: viewing key has no transparent item", index)
	}
	transparent, err := NewPublicKey(fvk.Transparent[:types.ChainCodeLen], fvk.Transparent[types.ChainCodeLen:])
	if err != nil {
		return nil, fmt.Errorf("account %d transparent key: %w", index, err)
	}
	vk, err := ParseViewingKey(fvk.Sapling)
	if err != nil {
		return nil, fmt.Errorf("account %d sapling key: %w", index, err)
	}
	return newAccountKeys(index, transparent, vk)
}

// ViewingKey returns the account's shielded viewing key.
func (a *AccountKeys) ViewingKey() *ViewingKey {
	return a.viewing
}

// FullViewingKey returns the items of the account's unified full viewing key.
func (a *AccountKeys) FullViewingKey() *types.FullViewingKey {
	return &types.FullViewingKey{
		Transparent: append(a.transparent.ChainCode(), a.transparent.PublicKeyBytes()...),
		Sapling:     a.viewing.Bytes(),
	}
}

// TransparentPubKey returns the compressed public key of the external
// transparent child at index.
func (a *AccountKeys) TransparentPubKey(index uint32) ([]byte, error) {
	child, err := a.external.DeriveChild(index)
	if err != nil {
		return nil, err
	}
	return child.PublicKeyBytes(), nil
}

func (a *AccountKeys) addressKeys(index uint32, family types.Family) (*types.AddressKeys, error) {
	d, j, pkd, err := a.viewing.PaymentAddress(index)
	if err != nil {
		return nil, fmt.Errorf("account %d address %d: %w", a.Index, index, err)
	}
	keys := &types.AddressKeys{
		Account:          a.Index,
		Index:            index,
		Family:           family,
		DiversifierIndex: j,
		Diversifier:      d,
		Pkd:              pkd,
	}
	if family == types.FamilyUnified {
		keys.TransparentPubKey, err = a.TransparentPubKey(index)
		if err != nil {
			return nil, fmt.Errorf("account %d address %d: %w", a.Index, index, err)
		}
	}
	return keys, nil
}
