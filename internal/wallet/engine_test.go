package wallet

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

func testEngine(t *testing.T, net *types.Network) *Engine {
	t.Helper()
	e, err := NewEngine(testSeed(t), net)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func TestNewEngine_Errors(t *testing.T) {
	if _, err := NewEngine(make([]byte, 32), &types.RegtestParams); err == nil {
		t.Error("short seed should fail")
	}
	if _, err := NewEngine(testSeed(t), nil); err == nil {
		t.Error("nil network should fail")
	}
}

func TestEngine_Deterministic(t *testing.T) {
	e1 := testEngine(t, &types.RegtestParams)
	e2 := testEngine(t, &types.RegtestParams)

	for _, family := range []types.Family{types.FamilyUnified, types.FamilySapling} {
		for _, idx := range []uint32{0, 1, 7, MaxIndex} {
			k1, err := e1.DeriveAddress(3, idx, family)
			if err != nil {
				t.Fatalf("DeriveAddress(3, %d, %s) error: %v", idx, family, err)
			}
			k2, err := e2.DeriveAddress(3, idx, family)
			if err != nil {
				t.Fatalf("DeriveAddress(3, %d, %s) error: %v", idx, family, err)
			}
			if k1.Diversifier != k2.Diversifier || k1.Pkd != k2.Pkd ||
				k1.DiversifierIndex != k2.DiversifierIndex ||
				!bytes.Equal(k1.TransparentPubKey, k2.TransparentPubKey) {
				t.Errorf("%s index %d: derivation is not deterministic", family, idx)
			}
		}
	}
}

func TestEngine_FamilyMaterial(t *testing.T) {
	e := testEngine(t, &types.RegtestParams)
	acct, err := e.DeriveAccount(0)
	if err != nil {
		t.Fatal(err)
	}

	u, err := e.DeriveAddressKeys(acct, 1, types.FamilyUnified)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.TransparentPubKey) != types.CompressedPubKeyLen {
		t.Errorf("unified transparent key length = %d", len(u.TransparentPubKey))
	}

	s, err := e.DeriveAddressKeys(acct, 1, types.FamilySapling)
	if err != nil {
		t.Fatal(err)
	}
	if s.TransparentPubKey != nil {
		t.Error("sapling keys should carry no transparent key")
	}
	// Both families share the shielded component of an index.
	if s.Pkd != u.Pkd || s.Diversifier != u.Diversifier {
		t.Error("sapling and unified shielded material differ at the same index")
	}
	if s.Account != 0 || s.Index != 1 || s.Family != types.FamilySapling {
		t.Errorf("unexpected metadata: %+v", s)
	}
}

func TestEngine_DistinctAccountsAndIndices(t *testing.T) {
	e := testEngine(t, &types.RegtestParams)
	seen := make(map[[types.PkdSize]byte]string)
	for acct := uint32(0); acct < 3; acct++ {
		for idx := uint32(0); idx < 5; idx++ {
			k, err := e.DeriveAddress(acct, idx, types.FamilyUnified)
			if err != nil {
				t.Fatal(err)
			}
			if prev, ok := seen[k.Pkd]; ok {
				t.Errorf("(%d,%d) collides with %s", acct, idx, prev)
			}
			seen[k.Pkd] = string(rune('0'+acct)) + "/" + string(rune('0'+idx))
		}
	}
}

func TestEngine_NetworkCoinType(t *testing.T) {
	main := testEngine(t, &types.MainnetParams)
	test := testEngine(t, &types.TestnetParams)
	reg := testEngine(t, &types.RegtestParams)

	km, _ := main.DeriveAddress(0, 1, types.FamilyUnified)
	kt, _ := test.DeriveAddress(0, 1, types.FamilyUnified)
	kr, _ := reg.DeriveAddress(0, 1, types.FamilyUnified)

	if km.Pkd == kt.Pkd {
		t.Error("mainnet and testnet should use different coin types")
	}
	// Testnet and regtest share coin type 1.
	if kt.Pkd != kr.Pkd {
		t.Error("testnet and regtest should derive the same keys")
	}
}

func TestEngine_InvalidIndex(t *testing.T) {
	e := testEngine(t, &types.RegtestParams)

	if _, err := e.DeriveAccount(MaxIndex + 1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("DeriveAccount(2^31) error = %v, want ErrInvalidIndex", err)
	}
	if _, err := e.DeriveAccount(^uint32(0)); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("DeriveAccount(max) error = %v, want ErrInvalidIndex", err)
	}

	acct, err := e.DeriveAccount(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.DeriveAddressKeys(acct, MaxIndex+1, types.FamilyUnified); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("DeriveAddressKeys(2^31) error = %v, want ErrInvalidIndex", err)
	}
	if _, err := e.DeriveAddressKeys(acct, 1, types.Family(9)); err == nil {
		t.Error("unknown family should fail")
	}
	if _, err := e.DeriveAddressKeys(nil, 1, types.FamilyUnified); err == nil {
		t.Error("nil account should fail")
	}
}

func TestEngine_Concurrent(t *testing.T) {
	e := testEngine(t, &types.RegtestParams)
	want, err := e.DeriveAddress(1, 4, types.FamilySapling)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.DeriveAddress(1, 4, types.FamilySapling)
			if err != nil {
				errs <- err
				return
			}
			if got.Pkd != want.Pkd {
				errs <- errors.New("concurrent derivation differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func viewingKeys(t *testing.T, e *Engine, n int) []*types.FullViewingKey {
	t.Helper()
	keys := make([]*types.FullViewingKey, n)
	for i := range keys {
		acct, err := e.DeriveAccount(uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		keys[i] = acct.FullViewingKey()
	}
	return keys
}

func TestViewingEngine_MatchesSeedEngine(t *testing.T) {
	full := testEngine(t, &types.RegtestParams)
	watch, err := NewViewingEngine(&types.RegtestParams, viewingKeys(t, full, 2))
	if err != nil {
		t.Fatalf("NewViewingEngine() error: %v", err)
	}
	if !watch.WatchOnly() || full.WatchOnly() {
		t.Error("WatchOnly() reports the wrong mode")
	}
	if watch.Fingerprint() != full.Fingerprint() {
		t.Errorf("Fingerprint() = %s, want %s", watch.Fingerprint(), full.Fingerprint())
	}

	for _, family := range []types.Family{types.FamilyUnified, types.FamilySapling} {
		for acct := uint32(0); acct < 2; acct++ {
			for _, idx := range []uint32{0, 1, 5} {
				want, err := full.DeriveAddress(acct, idx, family)
				if err != nil {
					t.Fatal(err)
				}
				got, err := watch.DeriveAddress(acct, idx, family)
				if err != nil {
					t.Fatalf("watch-only DeriveAddress(%d, %d, %s) error: %v", acct, idx, family, err)
				}
				if got.Pkd != want.Pkd || got.Diversifier != want.Diversifier ||
					got.DiversifierIndex != want.DiversifierIndex ||
					!bytes.Equal(got.TransparentPubKey, want.TransparentPubKey) {
					t.Errorf("%s %d/%d: watch-only derivation differs", family, acct, idx)
				}
			}
		}
	}

	if _, err := watch.DeriveAccount(2); !errors.Is(err, ErrWatchOnly) {
		t.Errorf("DeriveAccount(2) error = %v, want ErrWatchOnly", err)
	}
	if _, err := watch.DeriveAccount(MaxIndex + 1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("DeriveAccount(2^31) error = %v, want ErrInvalidIndex", err)
	}
}

func TestViewingEngine_Errors(t *testing.T) {
	full := testEngine(t, &types.RegtestParams)
	keys := viewingKeys(t, full, 1)

	if _, err := NewViewingEngine(nil, keys); err == nil {
		t.Error("nil network should fail")
	}
	if _, err := NewViewingEngine(&types.RegtestParams, nil); err == nil {
		t.Error("no keys should fail")
	}
	saplingOnly := &types.FullViewingKey{Sapling: keys[0].Sapling}
	if _, err := NewViewingEngine(&types.RegtestParams, []*types.FullViewingKey{saplingOnly}); err == nil {
		t.Error("viewing key without a transparent item should fail")
	}
	corrupt := &types.FullViewingKey{Transparent: keys[0].Transparent, Sapling: make([]byte, types.SaplingFVKLen)}
	if _, err := NewViewingEngine(&types.RegtestParams, []*types.FullViewingKey{corrupt}); err == nil {
		t.Error("zero sapling item should fail")
	}
}

func TestEngine_Fingerprint(t *testing.T) {
	e := testEngine(t, &types.RegtestParams)
	if len(e.Fingerprint()) != 16 {
		t.Errorf("Fingerprint() = %q, want 16 hex characters", e.Fingerprint())
	}
	if e.Fingerprint() != testEngine(t, &types.RegtestParams).Fingerprint() {
		t.Error("fingerprint is not deterministic")
	}
	if e.Fingerprint() == testEngine(t, &types.MainnetParams).Fingerprint() {
		t.Error("coin types 1 and 133 share a fingerprint")
	}

	seed, err := SeedFromMnemonic("legal winner thank year wave sausage worth useful legal winner thank yellow", "")
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewEngine(seed, &types.RegtestParams)
	if err != nil {
		t.Fatal(err)
	}
	if other.Fingerprint() == e.Fingerprint() {
		t.Error("different seeds share a fingerprint")
	}
}
