package address

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// EncodeViewingKey returns the unified full viewing key string of fvk.
func (e *Encoder) EncodeViewingKey(fvk *types.FullViewingKey) (string, error) {
	if fvk == nil {
		return "", fmt.Errorf("%w: nil viewing key", ErrEncoding)
	}
	if err := checkViewingKey(fvk); err != nil {
		return "", err
	}
	var items []item
	if fvk.Transparent != nil {
		items = append(items, item{typecodeP2PKH, fvk.Transparent})
	}
	items = append(items, item{typecodeSapling, fvk.Sapling})
	return encodeContainer(e.net.ViewingKeyHRP, items)
}

// DecodeViewingKey parses a unified full viewing key of the encoder's
// network. Items of unknown types are skipped.
func (e *Encoder) DecodeViewingKey(s string) (*types.FullViewingKey, error) {
	items, err := decodeContainer(e.net.ViewingKeyHRP, strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	var fvk types.FullViewingKey
	for _, it := range items {
		switch it.typecode {
		case typecodeP2PKH:
			fvk.Transparent = it.value
		case typecodeP2SH:
			return nil, fmt.Errorf("%w: p2sh viewing key item", ErrEncoding)
		case typecodeSapling:
			fvk.Sapling = it.value
		}
	}
	if err := checkViewingKey(&fvk); err != nil {
		return nil, err
	}
	return &fvk, nil
}

func checkViewingKey(fvk *types.FullViewingKey) error {
	if fvk.Sapling == nil {
		return fmt.Errorf("%w: no sapling viewing key", ErrEncoding)
	}
	if len(fvk.Sapling) != types.SaplingFVKLen {
		return fmt.Errorf("%w: sapling viewing key is %d bytes, want %d", ErrEncoding, len(fvk.Sapling), types.SaplingFVKLen)
	}
	for i, name := range []string{"ak", "nk"} {
		p, err := crypto.ParsePoint(fvk.Sapling[32*i : 32*(i+1)])
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrEncoding, name, err)
		}
		if !p.IsPrimeOrder() {
			return fmt.Errorf("%w: %s is not in the prime-order subgroup", ErrEncoding, name)
		}
	}
	if fvk.Transparent == nil {
		return nil
	}
	if len(fvk.Transparent) != types.TransparentFVKLen {
		return fmt.Errorf("%w: transparent viewing key is %d bytes, want %d", ErrEncoding, len(fvk.Transparent), types.TransparentFVKLen)
	}
	if _, err := crypto.ParsePubKey(fvk.Transparent[types.ChainCodeLen:]); err != nil {
		return fmt.Errorf("%w: transparent viewing key: %v", ErrEncoding, err)
	}
	return nil
}
