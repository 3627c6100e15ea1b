package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ParsePubKey parses a compressed secp256k1 public key.
func ParsePubKey(b []byte) (*secp256k1.PublicKey, error) {
	if len(b) != 33 {
		return nil, fmt.Errorf("%w: public key must be 33 bytes, got %d", ErrInvalidPoint, len(b))
	}
	p, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return p, nil
}
