package main

import (
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/zwalletd/internal/wallet"
	"github.com/Klingon-tech/zwalletd/pkg/address"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var fastParams = wallet.EncryptionParams{Memory: 1024, Iterations: 1, Parallelism: 1}

func testKeystore(t *testing.T) (*wallet.Keystore, *wallet.Engine) {
	t.Helper()
	seed, err := wallet.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	engine, err := wallet.NewEngine(seed, &types.RegtestParams)
	if err != nil {
		t.Fatal(err)
	}
	ks, err := wallet.NewKeystore(filepath.Join(t.TempDir(), "wallet.keys"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ks.Create(seed, []byte("pw"), &types.RegtestParams, fastParams); err != nil {
		t.Fatalf("create keystore: %v", err)
	}
	return ks, engine
}

func TestExportViewingKeys(t *testing.T) {
	ks, full := testKeystore(t)

	keys, err := exportViewingKeys(ks, []byte("pw"), &types.RegtestParams, 2)
	if err != nil {
		t.Fatalf("exportViewingKeys() error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}

	enc := address.NewEncoder(&types.RegtestParams)
	fvks := make([]*types.FullViewingKey, len(keys))
	for i, k := range keys {
		if fvks[i], err = enc.DecodeViewingKey(k); err != nil {
			t.Fatalf("key %d does not decode: %v", i, err)
		}
	}
	watch, err := wallet.NewViewingEngine(&types.RegtestParams, fvks)
	if err != nil {
		t.Fatal(err)
	}
	if watch.Fingerprint() != full.Fingerprint() {
		t.Error("exported keys belong to another wallet")
	}
	for acct := uint32(0); acct < 2; acct++ {
		want, _ := full.DeriveAddress(acct, 3, types.FamilyUnified)
		got, err := watch.DeriveAddress(acct, 3, types.FamilyUnified)
		if err != nil {
			t.Fatal(err)
		}
		if got.Pkd != want.Pkd {
			t.Errorf("account %d: exported key derives another address", acct)
		}
	}
}

func TestExportViewingKeys_Errors(t *testing.T) {
	ks, _ := testKeystore(t)

	tests := []struct {
		name     string
		password string
		params   *types.Network
		n        int
	}{
		{"no accounts", "pw", &types.RegtestParams, 0},
		{"wrong password", "nope", &types.RegtestParams, 1},
		{"other network", "pw", &types.MainnetParams, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := exportViewingKeys(ks, []byte(tt.password), tt.params, tt.n); err == nil {
				t.Error("expected error")
			}
		})
	}
}
