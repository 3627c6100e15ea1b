package types

import "bytes"

// Key material sizes.
const (
	DiversifierSize     = 11
	PkdSize             = 32
	SaplingReceiverLen  = DiversifierSize + PkdSize
	P2PKHReceiverLen    = 20
	CompressedPubKeyLen = 33
	ChainCodeLen        = 32

	// TransparentFVKLen is chain code || compressed public key of a
	// transparent account key.
	TransparentFVKLen = ChainCodeLen + CompressedPubKeyLen

	// SaplingFVKLen is ak || nk || ovk || dk.
	SaplingFVKLen = 4 * 32
)

// Diversifier selects one of the many shielded addresses of a single
// incoming viewing key.
type Diversifier [DiversifierSize]byte

// AddressKeys is the public key material behind one address.
// It carries no secrets and is what the address encoder consumes.
type AddressKeys struct {
	Account uint32
	Index   uint32
	Family  Family

	// TransparentPubKey is the compressed secp256k1 key of the transparent
	// receiver. Set for the unified family only.
	TransparentPubKey []byte

	// DiversifierIndex is the position in the diversifier space that
	// produced Diversifier.
	DiversifierIndex uint64
	Diversifier      Diversifier

	// Pkd is the encoded diversified transmission key.
	Pkd [PkdSize]byte
}

// Receivers is the decoded payload of an encoded address.
type Receivers struct {
	// P2PKH is the hash160 of the transparent public key, nil when absent.
	P2PKH []byte

	// Sapling is diversifier || pk_d, nil when absent.
	Sapling []byte
}

// Equal reports whether r and o carry identical receivers.
func (r *Receivers) Equal(o *Receivers) bool {
	if r == nil || o == nil {
		return r == o
	}
	return bytes.Equal(r.P2PKH, o.P2PKH) && bytes.Equal(r.Sapling, o.Sapling)
}

// FullViewingKey is the payload of a unified full viewing key: the public
// keys of one account, able to derive every address of it but not to spend.
type FullViewingKey struct {
	// Transparent is chain code || public key of the transparent account
	// key, nil when absent.
	Transparent []byte

	// Sapling is ak || nk || ovk || dk, nil when absent.
	Sapling []byte
}
