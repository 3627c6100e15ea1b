package wallet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Klingon-tech/zwalletd/pkg/crypto"
	"github.com/Klingon-tech/zwalletd/pkg/types"
	"github.com/capitalone/fpe/ff1"
	"github.com/tyler-smith/go-bip32"
)

// Shielded derivation path: m/32'/coin'/account'. Every level is hardened.
const PurposeShielded = bip32.FirstHardenedChild + 32

const shieldedMasterPerson = "ZcashIP32Sapling"

// Expansion domain tags of the master key and of child derivation.
const (
	tagAsk      = 0x00
	tagNsk      = 0x01
	tagOvk      = 0x02
	tagDk       = 0x10
	tagChild    = 0x11
	tagChildAsk = 0x13
	tagChildNsk = 0x14
	tagChildOvk = 0x15
	tagChildDk  = 0x16
)

// ViewingKeySize is the encoded size of a ViewingKey: ak || nk || ovk || dk.
const ViewingKeySize = 4 * 32

// maxDiversifierTries bounds the diversifier search inside the range of one
// address index. Each candidate succeeds with probability about 1/2.
const maxDiversifierTries = 1 << 16

var errNoDiversifier = errors.New("no valid diversifier in range")

// ShieldedKey is an extended spending key of the shielded tree: the
// expanded spending key (ask, nsk, ovk) with the diversifier key and chain
// code.
type ShieldedKey struct {
	ask   *big.Int
	nsk   *big.Int
	ovk   [32]byte
	dk    [32]byte
	chain [32]byte
}

// NewShieldedMaster derives the shielded master key from a 64-byte seed.
func NewShieldedMaster(seed []byte) (*ShieldedKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	out := crypto.Blake2b(shieldedMasterPerson, 64, seed)
	defer Zero(out)
	sk := out[:32]

	k := &ShieldedKey{
		ask: crypto.ScalarFromWide(crypto.PRFExpand(sk, []byte{tagAsk})),
		nsk: crypto.ScalarFromWide(crypto.PRFExpand(sk, []byte{tagNsk})),
	}
	copy(k.ovk[:], crypto.PRFExpand(sk, []byte{tagOvk}))
	copy(k.dk[:], crypto.PRFExpand(sk, []byte{tagDk}))
	copy(k.chain[:], out[32:])
	return k, nil
}

// DeriveHardened derives the hardened child at index (the hardened bit is
// expected to be set by the caller, as with HDKey.DeriveChild).
func (k *ShieldedKey) DeriveHardened(index uint32) (*ShieldedKey, error) {
	if index < bip32.FirstHardenedChild {
		return nil, fmt.Errorf("shielded child %d must be hardened", index)
	}
	ask := crypto.ScalarBytes(k.ask)
	nsk := crypto.ScalarBytes(k.nsk)
	out := crypto.PRFExpand(k.chain[:], []byte{tagChild}, ask[:], nsk[:], k.ovk[:], k.dk[:], crypto.LE32(index))
	defer Zero(out)
	Zero(ask[:])
	Zero(nsk[:])
	il := out[:32]

	child := &ShieldedKey{
		ask: crypto.AddScalars(crypto.ScalarFromWide(crypto.PRFExpand(il, []byte{tagChildAsk})), k.ask),
		nsk: crypto.AddScalars(crypto.ScalarFromWide(crypto.PRFExpand(il, []byte{tagChildNsk})), k.nsk),
	}
	copy(child.ovk[:], crypto.PRFExpand(il, []byte{tagChildOvk}, k.ovk[:]))
	copy(child.dk[:], crypto.PRFExpand(il, []byte{tagChildDk}, k.dk[:]))
	copy(child.chain[:], out[32:])
	return child, nil
}

// DeriveAccount derives the account key at m/32'/coin'/account'.
func (k *ShieldedKey) DeriveAccount(coinType, account uint32) (*ShieldedKey, error) {
	current := k
	for _, idx := range []uint32{
		PurposeShielded,
		bip32.FirstHardenedChild + coinType,
		bip32.FirstHardenedChild + account,
	} {
		child, err := current.DeriveHardened(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// ViewingKey returns the full viewing key and diversifier key of k.
func (k *ShieldedKey) ViewingKey() (*ViewingKey, error) {
	if k.ask.Sign() == 0 || k.nsk.Sign() == 0 {
		return nil, crypto.ErrZeroScalar
	}
	vk := &ViewingKey{
		AK:  crypto.SpendAuthBase().Mul(k.ask),
		NK:  crypto.ProofGenBase().Mul(k.nsk),
		OVK: k.ovk,
		DK:  k.dk,
	}
	if err := vk.init(); err != nil {
		return nil, err
	}
	return vk, nil
}

// ViewingKey holds the public half of an account's shielded keys plus the
// diversifier key. It can derive payment addresses but not spend.
type ViewingKey struct {
	AK  *crypto.Point
	NK  *crypto.Point
	OVK [32]byte
	DK  [32]byte

	ivk *big.Int
}

// ParseViewingKey decodes ak || nk || ovk || dk.
func ParseViewingKey(b []byte) (*ViewingKey, error) {
	if len(b) != ViewingKeySize {
		return nil, fmt.Errorf("viewing key must be %d bytes, got %d", ViewingKeySize, len(b))
	}
	ak, err := crypto.ParsePoint(b[:32])
	if err != nil {
		return nil, fmt.Errorf("ak: %w", err)
	}
	nk, err := crypto.ParsePoint(b[32:64])
	if err != nil {
		return nil, fmt.Errorf("nk: %w", err)
	}
	if !ak.IsPrimeOrder() || !nk.IsPrimeOrder() {
		return nil, fmt.Errorf("%w: ak and nk must have prime order", crypto.ErrInvalidPoint)
	}
	vk := &ViewingKey{AK: ak, NK: nk}
	copy(vk.OVK[:], b[64:96])
	copy(vk.DK[:], b[96:])
	if err := vk.init(); err != nil {
		return nil, err
	}
	return vk, nil
}

func (vk *ViewingKey) init() error {
	ak := vk.AK.Bytes()
	nk := vk.NK.Bytes()
	ivk, err := crypto.IncomingViewingKey(ak[:], nk[:])
	if err != nil {
		return fmt.Errorf("derive ivk: %w", err)
	}
	vk.ivk = ivk
	return nil
}

// Bytes encodes vk as ak || nk || ovk || dk.
func (vk *ViewingKey) Bytes() []byte {
	ak := vk.AK.Bytes()
	nk := vk.NK.Bytes()
	out := make([]byte, 0, ViewingKeySize)
	out = append(out, ak[:]...)
	out = append(out, nk[:]...)
	out = append(out, vk.OVK[:]...)
	return append(out, vk.DK[:]...)
}

// diversifierCipher encrypts diversifier indices under dk. A cipher is not
// safe for concurrent use.
func (vk *ViewingKey) diversifierCipher() (ff1.Cipher, error) {
	return ff1.NewCipher(2, 0, vk.DK[:], nil)
}

// diversifierAt encrypts the 88-bit little-endian index j. Bits are fed to
// the cipher least significant first.
func diversifierAt(c ff1.Cipher, j uint64) (types.Diversifier, error) {
	var d types.Diversifier
	bits := make([]byte, 8*types.DiversifierSize)
	for i := range bits {
		bits[i] = '0'
		if i < 64 && j>>i&1 == 1 {
			bits[i] = '1'
		}
	}
	out, err := c.Encrypt(string(bits))
	if err != nil {
		return d, fmt.Errorf("encrypt diversifier index %d: %w", j, err)
	}
	for i := 0; i < len(out); i++ {
		if out[i] == '1' {
			d[i/8] |= 1 << (i % 8)
		}
	}
	return d, nil
}

// Diversifier returns the first valid diversifier at or after position start,
// with its position and base point.
func (vk *ViewingKey) Diversifier(start uint64) (types.Diversifier, uint64, *crypto.Point, error) {
	var d types.Diversifier
	c, err := vk.diversifierCipher()
	if err != nil {
		return d, 0, nil, fmt.Errorf("diversifier cipher: %w", err)
	}
	for j := start; j < start+maxDiversifierTries; j++ {
		d, err = diversifierAt(c, j)
		if err != nil {
			return d, 0, nil, err
		}
		gd, err := crypto.DiversifyHash(d[:])
		if errors.Is(err, crypto.ErrInvalidPoint) {
			continue
		}
		if err != nil {
			return d, 0, nil, err
		}
		return d, j, gd, nil
	}
	return d, 0, nil, fmt.Errorf("%w: start %d", errNoDiversifier, start)
}

// PaymentAddress derives the diversified payment address of address index.
// The search starts at index<<32 so every index owns a disjoint range of the
// diversifier space and re-derivation always lands on the same diversifier.
func (vk *ViewingKey) PaymentAddress(index uint32) (types.Diversifier, uint64, [types.PkdSize]byte, error) {
	var pkd [types.PkdSize]byte
	d, j, gd, err := vk.Diversifier(uint64(index) << 32)
	if err != nil {
		return d, 0, pkd, err
	}
	pkd = gd.Mul(vk.ivk).Bytes()
	return d, j, pkd, nil
}
