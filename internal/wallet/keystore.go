package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// ErrKeystoreExists is returned by Create when the wallet file is present.
var ErrKeystoreExists = errors.New("wallet file already exists")

const keystoreVersion = 1

// keystoreFile is the on-disk JSON format for an encrypted seed.
type keystoreFile struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	Network       string    `json:"network"`
	Fingerprint   string    `json:"fingerprint"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
}

// KeystoreInfo is the public metadata of a wallet file.
type KeystoreInfo struct {
	CreatedAt   time.Time
	Network     string
	Fingerprint string
}

// Keystore manages one encrypted seed file on disk.
type Keystore struct {
	path string
}

// NewKeystore returns a keystore backed by the file at path.
// The parent directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Path returns the wallet file path.
func (ks *Keystore) Path() string {
	return ks.path
}

// Exists reports whether the wallet file is present.
func (ks *Keystore) Exists() bool {
	_, err := os.Stat(ks.path)
	return err == nil
}

// Create seals seed with password and writes a new wallet file for net.
func (ks *Keystore) Create(seed, password []byte, net *types.Network, params EncryptionParams) error {
	if ks.Exists() {
		return fmt.Errorf("%w: %s", ErrKeystoreExists, ks.path)
	}
	engine, err := NewEngine(seed, net)
	if err != nil {
		return err
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	kf := keystoreFile{
		Version:       keystoreVersion,
		CreatedAt:     time.Now().UTC(),
		Network:       net.String(),
		Fingerprint:   engine.Fingerprint(),
		EncryptedSeed: encrypted,
	}
	return ks.writeFile(&kf)
}

// Load decrypts the wallet file and returns the seed bytes.
func (ks *Keystore) Load(password []byte) ([]byte, error) {
	kf, err := ks.readFile()
	if err != nil {
		return nil, err
	}

	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}
	if len(seed) != SeedSize {
		Zero(seed)
		return nil, fmt.Errorf("decrypt wallet: seed is %d bytes, want %d", len(seed), SeedSize)
	}
	return seed, nil
}

// Info returns the wallet file metadata without decrypting it.
func (ks *Keystore) Info() (*KeystoreInfo, error) {
	kf, err := ks.readFile()
	if err != nil {
		return nil, err
	}
	return &KeystoreInfo{
		CreatedAt:   kf.CreatedAt,
		Network:     kf.Network,
		Fingerprint: kf.Fingerprint,
	}, nil
}

// writeFile writes through a temp file and rename so a crash never leaves a
// truncated wallet behind.
func (ks *Keystore) writeFile(kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := ks.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	if err := os.Rename(tmp, ks.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile() (*keystoreFile, error) {
	data, err := os.ReadFile(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
