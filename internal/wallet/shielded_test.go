package wallet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
	"github.com/Klingon-tech/zwalletd/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

func TestNewShieldedMaster(t *testing.T) {
	seed := testSeed(t)
	m1, err := NewShieldedMaster(seed)
	if err != nil {
		t.Fatalf("NewShieldedMaster() error: %v", err)
	}
	m2, err := NewShieldedMaster(seed)
	if err != nil {
		t.Fatalf("NewShieldedMaster() error: %v", err)
	}
	if m1.ask.Cmp(m2.ask) != 0 || m1.nsk.Cmp(m2.nsk) != 0 || m1.chain != m2.chain || m1.dk != m2.dk {
		t.Error("master derivation is not deterministic")
	}
	if m1.ask.Cmp(m1.nsk) == 0 || m1.ovk == m1.dk {
		t.Error("expanded key parts should differ")
	}
	if m1.ask.Cmp(crypto.Order()) >= 0 || m1.nsk.Cmp(crypto.Order()) >= 0 {
		t.Error("scalars not reduced")
	}
	if _, err := NewShieldedMaster(make([]byte, 16)); err == nil {
		t.Error("short seed should fail")
	}
}

func TestShieldedKey_DeriveHardened(t *testing.T) {
	master, err := NewShieldedMaster(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := master.DeriveHardened(5); err == nil {
		t.Error("non-hardened child should be rejected")
	}
	a, err := master.DeriveHardened(bip32.FirstHardenedChild)
	if err != nil {
		t.Fatal(err)
	}
	b, err := master.DeriveHardened(bip32.FirstHardenedChild + 1)
	if err != nil {
		t.Fatal(err)
	}
	if a.ask.Cmp(b.ask) == 0 || a.chain == b.chain || a.dk == b.dk {
		t.Error("sibling keys should differ")
	}

	acct, err := master.DeriveAccount(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	manual := master
	for _, idx := range []uint32{PurposeShielded, bip32.FirstHardenedChild + 1, bip32.FirstHardenedChild} {
		if manual, err = manual.DeriveHardened(idx); err != nil {
			t.Fatal(err)
		}
	}
	if acct.ask.Cmp(manual.ask) != 0 || acct.chain != manual.chain {
		t.Error("DeriveAccount differs from the explicit path")
	}
}

func TestShieldedKey_ViewingKey(t *testing.T) {
	master, err := NewShieldedMaster(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	vk, err := master.ViewingKey()
	if err != nil {
		t.Fatalf("ViewingKey() error: %v", err)
	}
	if !vk.AK.Equal(crypto.SpendAuthBase().Mul(master.ask)) {
		t.Error("ak is not ask times the spend authorization base")
	}
	if !vk.AK.IsPrimeOrder() || !vk.NK.IsPrimeOrder() {
		t.Error("ak and nk must have prime order")
	}
	if vk.ivk.BitLen() > 251 {
		t.Errorf("ivk has %d bits, want at most 251", vk.ivk.BitLen())
	}

	parsed, err := ParseViewingKey(vk.Bytes())
	if err != nil {
		t.Fatalf("ParseViewingKey() error: %v", err)
	}
	if !bytes.Equal(parsed.Bytes(), vk.Bytes()) || parsed.ivk.Cmp(vk.ivk) != 0 {
		t.Error("parsed viewing key differs")
	}
}

func TestParseViewingKey_Errors(t *testing.T) {
	master, err := NewShieldedMaster(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	vk, err := master.ViewingKey()
	if err != nil {
		t.Fatal(err)
	}
	good := vk.Bytes()

	identity := append([]byte(nil), good...)
	copy(identity[32:64], make([]byte, 32))
	identity[32] = 1

	outOfRange := append([]byte(nil), good...)
	copy(outOfRange[:32], bytes.Repeat([]byte{0xff}, 32))

	tests := []struct {
		name string
		in   []byte
	}{
		{"short", good[:100]},
		{"identity nk", identity},
		{"ak out of range", outOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseViewingKey(tt.in); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestViewingKey_PaymentAddress(t *testing.T) {
	master, err := NewShieldedMaster(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	acct, err := master.DeriveAccount(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	vk, err := acct.ViewingKey()
	if err != nil {
		t.Fatalf("ViewingKey() error: %v", err)
	}

	seen := make(map[[32]byte]uint32)
	for i := uint32(0); i < 8; i++ {
		d, j, pkd, err := vk.PaymentAddress(i)
		if err != nil {
			t.Fatalf("PaymentAddress(%d) error: %v", i, err)
		}
		if j>>32 != uint64(i) {
			t.Errorf("index %d: diversifier position %d outside its range", i, j)
		}
		gd, err := crypto.DiversifyHash(d[:])
		if err != nil {
			t.Fatalf("index %d: selected diversifier has no base point: %v", i, err)
		}
		p, err := crypto.ParsePoint(pkd[:])
		if err != nil {
			t.Fatalf("index %d: pk_d is not a curve point: %v", i, err)
		}
		if !p.Equal(gd.Mul(vk.ivk)) || !p.IsPrimeOrder() {
			t.Errorf("index %d: pk_d is not ivk times g_d", i)
		}
		if prev, ok := seen[pkd]; ok {
			t.Errorf("index %d: pk_d collides with index %d", i, prev)
		}
		seen[pkd] = i

		d2, j2, pkd2, err := vk.PaymentAddress(i)
		if err != nil || d2 != d || j2 != j || pkd2 != pkd {
			t.Errorf("index %d: re-derivation differs", i)
		}
	}
}

func TestViewingKey_DiversifierSkipsInvalid(t *testing.T) {
	master, err := NewShieldedMaster(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	vk, err := master.ViewingKey()
	if err != nil {
		t.Fatal(err)
	}
	c, err := vk.diversifierCipher()
	if err != nil {
		t.Fatal(err)
	}

	// Walk positions until one is skipped, then check the search lands past it.
	for j := uint64(0); j < 64; j++ {
		d, err := diversifierAt(c, j)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := crypto.DiversifyHash(d[:]); !errors.Is(err, crypto.ErrInvalidPoint) {
			continue
		}
		_, got, _, err := vk.Diversifier(j)
		if err != nil {
			t.Fatalf("Diversifier(%d) error: %v", j, err)
		}
		if got <= j {
			t.Errorf("Diversifier(%d) = %d, want a later position", j, got)
		}
		return
	}
	t.Fatal("no invalid diversifier found in 64 positions")
}

func TestDiversifierAt_Permutation(t *testing.T) {
	master, err := NewShieldedMaster(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}
	c, err := (&ViewingKey{DK: master.dk}).diversifierCipher()
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[types.Diversifier]uint64)
	for _, j := range []uint64{0, 1, 2, 1 << 32, 1<<32 + 1, 1<<63 - 1} {
		d, err := diversifierAt(c, j)
		if err != nil {
			t.Fatalf("diversifierAt(%d) error: %v", j, err)
		}
		if prev, ok := seen[d]; ok {
			t.Errorf("diversifier of %d equals that of %d", j, prev)
		}
		seen[d] = j

		again, _ := diversifierAt(c, j)
		if again != d {
			t.Errorf("diversifierAt(%d) is not deterministic", j)
		}
	}
}
