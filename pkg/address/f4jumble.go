package address

import (
	"fmt"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
)

// F4Jumble length bounds and the BLAKE2b output size that caps the left half.
const (
	f4MinLen  = 48
	f4MaxLen  = 4194368
	f4HashLen = 64
)

// f4H sets x ^= H_i(y), a BLAKE2b hash truncated to len(x) bytes.
func f4H(i byte, x, y []byte) {
	mask := crypto.Blake2b("UA_F4Jumble_H"+string([]byte{i, 0, 0}), len(x), y)
	xor(x, mask)
}

// f4G sets x ^= G_i(y), the concatenation of BLAKE2b-512 blocks over y
// truncated to len(x) bytes.
func f4G(i byte, x, y []byte) {
	for j := 0; j*f4HashLen < len(x); j++ {
		person := "UA_F4Jumble_G" + string([]byte{i}) + string(crypto.LE16(uint16(j)))
		xor(x[j*f4HashLen:], crypto.Blake2b(person, f4HashLen, y))
	}
}

// xor sets dst ^= mask over the shorter of the two.
func xor(dst, mask []byte) {
	for k := 0; k < len(dst) && k < len(mask); k++ {
		dst[k] ^= mask[k]
	}
}

func f4Halves(m []byte) ([]byte, []byte, error) {
	if len(m) < f4MinLen || len(m) > f4MaxLen {
		return nil, nil, fmt.Errorf("%w: f4jumble input length %d", ErrEncoding, len(m))
	}
	l := min(len(m)/2, f4HashLen)
	return m[:l], m[l:], nil
}

// f4Jumble is the unkeyed 4-round Feistel permutation that makes every
// character of a unified encoding depend on every byte of its payload.
func f4Jumble(m []byte) ([]byte, error) {
	out := append([]byte(nil), m...)
	a, b, err := f4Halves(out)
	if err != nil {
		return nil, err
	}
	f4G(0, b, a) // x
	f4H(0, a, b) // y
	f4G(1, b, a) // d
	f4H(1, a, b) // c
	return out, nil
}

// f4JumbleInv inverts f4Jumble.
func f4JumbleInv(m []byte) ([]byte, error) {
	out := append([]byte(nil), m...)
	c, d, err := f4Halves(out)
	if err != nil {
		return nil, err
	}
	f4H(1, c, d) // y
	f4G(1, d, c) // x
	f4H(0, c, d) // a
	f4G(0, d, c) // b
	return out, nil
}
