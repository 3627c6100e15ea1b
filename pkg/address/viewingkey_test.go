package address

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
	"github.com/Klingon-tech/zwalletd/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// testViewingKey builds a well-formed full viewing key from a seed byte.
func testViewingKey(seed byte) *types.FullViewingKey {
	ask := crypto.ScalarFromWide(crypto.Blake2b("test ask", 64, []byte{seed}))
	nsk := crypto.ScalarFromWide(crypto.Blake2b("test nsk", 64, []byte{seed}))
	ak := crypto.SpendAuthBase().Mul(ask).Bytes()
	nk := crypto.ProofGenBase().Mul(nsk).Bytes()

	sapling := append(append([]byte(nil), ak[:]...), nk[:]...)
	sapling = append(sapling, crypto.Blake2b("test ovk dk", 64, []byte{seed})...)

	priv := secp256k1.PrivKeyFromBytes(crypto.Blake2b("test transparent", 32, []byte{seed}))
	transparent := append(crypto.Blake2b("test chain code", 32, []byte{seed}), priv.PubKey().SerializeCompressed()...)
	return &types.FullViewingKey{Transparent: transparent, Sapling: sapling}
}

func TestViewingKey_Roundtrip(t *testing.T) {
	for _, net := range networks {
		t.Run(net.String(), func(t *testing.T) {
			enc := NewEncoder(net)
			fvk := testViewingKey(1)
			s, err := enc.EncodeViewingKey(fvk)
			if err != nil {
				t.Fatalf("EncodeViewingKey() error: %v", err)
			}
			if !strings.HasPrefix(s, net.ViewingKeyHRP+"1") {
				t.Errorf("viewing key %q lacks prefix %q", s, net.ViewingKeyHRP+"1")
			}
			got, err := enc.DecodeViewingKey(s)
			if err != nil {
				t.Fatalf("DecodeViewingKey() error: %v", err)
			}
			if !bytes.Equal(got.Transparent, fvk.Transparent) || !bytes.Equal(got.Sapling, fvk.Sapling) {
				t.Error("decoded viewing key differs")
			}
			if _, err := enc.DecodeViewingKey(strings.ToUpper(s)); err != nil {
				t.Errorf("DecodeViewingKey(upper) error: %v", err)
			}
			// A viewing key is not an address.
			if err := enc.Validate(s); !errors.Is(err, ErrEncoding) {
				t.Errorf("Validate(viewing key) error = %v, want ErrEncoding", err)
			}
		})
	}
}

func TestViewingKey_SaplingOnly(t *testing.T) {
	enc := NewEncoder(&types.RegtestParams)
	fvk := testViewingKey(2)
	fvk.Transparent = nil
	s, err := enc.EncodeViewingKey(fvk)
	if err != nil {
		t.Fatalf("EncodeViewingKey() error: %v", err)
	}
	got, err := enc.DecodeViewingKey(s)
	if err != nil {
		t.Fatalf("DecodeViewingKey() error: %v", err)
	}
	if got.Transparent != nil {
		t.Error("sapling-only viewing key decoded with a transparent item")
	}
}

func TestViewingKey_Errors(t *testing.T) {
	enc := NewEncoder(&types.RegtestParams)

	identityAK := testViewingKey(3)
	copy(identityAK.Sapling[:32], make([]byte, 32))
	identityAK.Sapling[0] = 1

	shortSapling := testViewingKey(3)
	shortSapling.Sapling = shortSapling.Sapling[:100]

	badTransparent := testViewingKey(3)
	badTransparent.Transparent[types.ChainCodeLen] = 0x07

	noSapling := testViewingKey(3)
	noSapling.Sapling = nil

	tests := []struct {
		name string
		fvk  *types.FullViewingKey
	}{
		{"nil", nil},
		{"identity ak", identityAK},
		{"short sapling item", shortSapling},
		{"bad transparent key", badTransparent},
		{"no sapling item", noSapling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.EncodeViewingKey(tt.fvk); !errors.Is(err, ErrEncoding) {
				t.Errorf("EncodeViewingKey() error = %v, want ErrEncoding", err)
			}
		})
	}

	good, err := enc.EncodeViewingKey(testViewingKey(4))
	if err != nil {
		t.Fatal(err)
	}
	mainnet, err := NewEncoder(&types.MainnetParams).EncodeViewingKey(testViewingKey(4))
	if err != nil {
		t.Fatal(err)
	}
	ua, err := enc.Encode(testKeys(t, 4, types.FamilyUnified))
	if err != nil {
		t.Fatal(err)
	}
	last := byte('q')
	if good[len(good)-1] == 'q' {
		last = 'p'
	}
	decodeTests := []struct {
		name string
		in   string
	}{
		{"other network", mainnet},
		{"address", ua},
		{"bad checksum", good[:len(good)-1] + string(last)},
		{"empty", ""},
		{"truncated", good[:40]},
	}
	for _, tt := range decodeTests {
		t.Run("decode "+tt.name, func(t *testing.T) {
			if _, err := enc.DecodeViewingKey(tt.in); !errors.Is(err, ErrEncoding) {
				t.Errorf("DecodeViewingKey() error = %v, want ErrEncoding", err)
			}
		})
	}
}
