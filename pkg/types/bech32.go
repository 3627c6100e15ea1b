package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Encoding selects the bech32 checksum variant.
type Encoding int

const (
	// Bech32 is the original BIP-173 checksum (sapling addresses).
	Bech32 Encoding = iota
	// Bech32m is the BIP-350 checksum (unified addresses).
	Bech32m
)

func (e Encoding) String() string {
	if e == Bech32m {
		return "bech32m"
	}
	return "bech32"
}

// Bech32Encode encodes a human-readable part and data bytes into a bech32 string.
func Bech32Encode(hrp string, data []byte) (string, error) {
	return EncodeBech32(Bech32, hrp, data)
}

// Bech32mEncode encodes a human-readable part and data bytes into a bech32m string.
func Bech32mEncode(hrp string, data []byte) (string, error) {
	return EncodeBech32(Bech32m, hrp, data)
}

// EncodeBech32 encodes hrp and data with the given checksum variant.
// There is no 90 character limit: unified addresses are routinely longer.
func EncodeBech32(enc Encoding, hrp string, data []byte) (string, error) {
	if err := checkHRP(hrp); err != nil {
		return "", err
	}
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}
	return encode5(enc, hrp, conv)
}

func encode5(enc Encoding, hrp string, data5 []byte) (string, error) {
	if enc == Bech32m {
		return bech32.EncodeM(hrp, data5)
	}
	return bech32.Encode(hrp, data5)
}

func checkHRP(hrp string) error {
	if len(hrp) == 0 {
		return fmt.Errorf("bech32: empty HRP")
	}
	for _, c := range hrp {
		if c < 33 || c > 126 {
			return fmt.Errorf("bech32: invalid HRP character %q", c)
		}
		if c >= 'A' && c <= 'Z' {
			return fmt.Errorf("bech32: HRP must be lowercase")
		}
	}
	return nil
}

// Bech32Decode decodes a bech32 string into the human-readable part and data bytes.
// Strings carrying a bech32m checksum are rejected.
func Bech32Decode(s string) (string, []byte, error) {
	return DecodeBech32(Bech32, s)
}

// Bech32mDecode decodes a bech32m string into the human-readable part and data bytes.
func Bech32mDecode(s string) (string, []byte, error) {
	return DecodeBech32(Bech32m, s)
}

// DecodeBech32 decodes s, requiring the checksum variant enc.
func DecodeBech32(enc Encoding, s string) (string, []byte, error) {
	hrp, data5, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return "", nil, fmt.Errorf("bech32: %w", err)
	}

	// DecodeNoLimit accepts either checksum; the variant is pinned by
	// re-encoding under enc.
	again, err := encode5(enc, hrp, data5)
	if err != nil || again != strings.ToLower(s) {
		return "", nil, fmt.Errorf("bech32: invalid %s checksum", enc)
	}

	data8, err := bech32.ConvertBits(data5, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("bech32: convert bits: %w", err)
	}
	return hrp, data8, nil
}
