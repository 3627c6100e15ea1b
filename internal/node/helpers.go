package node

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/zwalletd/config"
	"github.com/Klingon-tech/zwalletd/internal/wallet"
	"github.com/Klingon-tech/zwalletd/pkg/address"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// ErrNoPassword is returned when neither a password file nor the password
// environment variable is configured.
var ErrNoPassword = errors.New("no keystore password: set wallet.password_file or " + config.PasswordEnv)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// readPassword returns the keystore password from the configured file,
// falling back to the environment.
func readPassword(cfg *config.Config) ([]byte, error) {
	if cfg.Wallet.PasswordFile != "" {
		data, err := os.ReadFile(expandHome(cfg.Wallet.PasswordFile))
		if err != nil {
			return nil, fmt.Errorf("read password file: %w", err)
		}
		pw := bytes.TrimRight(data, "\r\n")
		if len(pw) == 0 {
			return nil, fmt.Errorf("password file %s is empty", cfg.Wallet.PasswordFile)
		}
		return pw, nil
	}
	if pw := os.Getenv(config.PasswordEnv); pw != "" {
		return []byte(pw), nil
	}
	return nil, ErrNoPassword
}

// loadEngine builds the derivation engine, watch-only from the configured
// viewing keys or else from the decrypted keystore. The decrypted seed never
// outlives this call.
func loadEngine(cfg *config.Config, params *types.Network) (*wallet.Engine, error) {
	if cfg.Wallet.WatchOnly() {
		return loadViewingEngine(cfg.Wallet.ViewingKeys, params)
	}

	ks, err := wallet.NewKeystore(cfg.KeystorePath())
	if err != nil {
		return nil, err
	}
	if !ks.Exists() {
		return nil, fmt.Errorf("no wallet at %s (run zwallet-cli init)", ks.Path())
	}
	info, err := ks.Info()
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	if info.Network != params.String() {
		return nil, fmt.Errorf("wallet %s belongs to %s, daemon runs %s", ks.Path(), info.Network, params)
	}

	password, err := readPassword(cfg)
	if err != nil {
		return nil, err
	}
	defer wallet.Zero(password)

	seed, err := ks.Load(password)
	if err != nil {
		return nil, err
	}
	defer wallet.Zero(seed)

	return wallet.NewEngine(seed, params)
}

// loadViewingEngine decodes one unified full viewing key per account.
func loadViewingEngine(encoded []string, params *types.Network) (*wallet.Engine, error) {
	enc := address.NewEncoder(params)
	keys := make([]*types.FullViewingKey, len(encoded))
	for i, s := range encoded {
		fvk, err := enc.DecodeViewingKey(s)
		if err != nil {
			return nil, fmt.Errorf("wallet.viewing_key %d: %w", i, err)
		}
		keys[i] = fvk
	}
	return wallet.NewViewingEngine(params, keys)
}
