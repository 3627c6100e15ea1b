// Package address encodes derived key material as network-specific address
// strings and decodes them back into receivers.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// ErrEncoding is returned when key material or an address string is
// malformed, belongs to another network, or fails its checksum.
var ErrEncoding = errors.New("address encoding error")

// Kind is the concrete format of an address string.
type Kind string

const (
	KindUnified     Kind = "unified"
	KindSapling     Kind = "sapling"
	KindTransparent Kind = "transparent"
)

// Decoded is a parsed address.
type Decoded struct {
	Kind      Kind
	Receivers types.Receivers
}

// Family returns the address family the decoded string belongs to.
// Transparent addresses are receivers of the unified family.
func (d *Decoded) Family() types.Family {
	if d.Kind == KindSapling {
		return types.FamilySapling
	}
	return types.FamilyUnified
}

// Encoder encodes and decodes addresses for a single network.
// It holds no mutable state and is safe for concurrent use.
type Encoder struct {
	net *types.Network
}

// NewEncoder returns an encoder for net.
func NewEncoder(net *types.Network) *Encoder {
	return &Encoder{net: net}
}

// Network returns the encoder's network.
func (e *Encoder) Network() *types.Network {
	return e.net
}

// Receivers computes the receivers carried by an address built from keys.
func (e *Encoder) Receivers(keys *types.AddressKeys) (*types.Receivers, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: nil key material", ErrEncoding)
	}

	sapling := make([]byte, 0, types.SaplingReceiverLen)
	sapling = append(sapling, keys.Diversifier[:]...)
	sapling = append(sapling, keys.Pkd[:]...)
	if err := checkSaplingReceiver(sapling); err != nil {
		return nil, err
	}

	switch keys.Family {
	case types.FamilySapling:
		return &types.Receivers{Sapling: sapling}, nil
	case types.FamilyUnified:
		if len(keys.TransparentPubKey) != types.CompressedPubKeyLen {
			return nil, fmt.Errorf("%w: transparent key is %d bytes, want %d",
				ErrEncoding, len(keys.TransparentPubKey), types.CompressedPubKeyLen)
		}
		if _, err := crypto.ParsePubKey(keys.TransparentPubKey); err != nil {
			return nil, fmt.Errorf("%w: transparent key: %v", ErrEncoding, err)
		}
		return &types.Receivers{
			P2PKH:   crypto.Hash160(keys.TransparentPubKey),
			Sapling: sapling,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported family %s", ErrEncoding, keys.Family)
	}
}

// Encode returns the address string of keys in their family.
func (e *Encoder) Encode(keys *types.AddressKeys) (string, error) {
	r, err := e.Receivers(keys)
	if err != nil {
		return "", err
	}
	return e.EncodeReceivers(keys.Family, r)
}

// EncodeReceivers encodes receivers in family.
func (e *Encoder) EncodeReceivers(family types.Family, r *types.Receivers) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: nil receivers", ErrEncoding)
	}
	switch family {
	case types.FamilyUnified:
		return e.encodeUnified(r)
	case types.FamilySapling:
		if r.P2PKH != nil {
			return "", fmt.Errorf("%w: sapling address cannot carry a transparent receiver", ErrEncoding)
		}
		return e.encodeSapling(r.Sapling)
	default:
		return "", fmt.Errorf("%w: unsupported family %s", ErrEncoding, family)
	}
}

// Decode parses s as a unified, sapling or transparent address of the
// encoder's network. Unified full viewing keys are not addresses and fail.
func (e *Encoder) Decode(s string) (*Decoded, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty address", ErrEncoding)
	}

	if sep := strings.LastIndexByte(strings.ToLower(s), '1'); sep > 0 {
		switch strings.ToLower(s[:sep]) {
		case e.net.UnifiedHRP:
			r, err := e.decodeUnified(s)
			if err != nil {
				return nil, err
			}
			return &Decoded{Kind: KindUnified, Receivers: *r}, nil
		case e.net.SaplingHRP:
			sapling, err := e.decodeSapling(s)
			if err != nil {
				return nil, err
			}
			return &Decoded{Kind: KindSapling, Receivers: types.Receivers{Sapling: sapling}}, nil
		}
	}

	p2pkh, err := e.decodeTransparent(s)
	if err != nil {
		return nil, err
	}
	return &Decoded{Kind: KindTransparent, Receivers: types.Receivers{P2PKH: p2pkh}}, nil
}

// Validate reports whether s is a well-formed address of the encoder's network.
func (e *Encoder) Validate(s string) error {
	_, err := e.Decode(s)
	return err
}

// checkSaplingReceiver verifies that a diversifier || pk_d pair describes a
// usable payment address.
func checkSaplingReceiver(r []byte) error {
	if len(r) != types.SaplingReceiverLen {
		return fmt.Errorf("%w: sapling receiver is %d bytes, want %d", ErrEncoding, len(r), types.SaplingReceiverLen)
	}
	if _, err := crypto.DiversifyHash(r[:types.DiversifierSize]); err != nil {
		return fmt.Errorf("%w: diversifier: %v", ErrEncoding, err)
	}
	pkd, err := crypto.ParsePoint(r[types.DiversifierSize:])
	if err != nil {
		return fmt.Errorf("%w: pk_d: %v", ErrEncoding, err)
	}
	if !pkd.IsPrimeOrder() {
		return fmt.Errorf("%w: pk_d is not in the prime-order subgroup", ErrEncoding)
	}
	return nil
}
