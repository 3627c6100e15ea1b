package crypto

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

// ErrInvalidPoint is returned when bytes do not describe a usable curve point.
var ErrInvalidPoint = errors.New("invalid curve point")

// ErrZeroScalar is returned when a derived scalar is zero.
var ErrZeroScalar = errors.New("scalar is zero")

// PointSize is the size of an encoded Jubjub point.
const PointSize = 32

// ScalarSize is the size of an encoded Jubjub scalar.
const ScalarSize = 32

// groupHashURS is the uniform random string prefixed to every group hash input.
const groupHashURS = "096b36a5804bfacef1691e173c366a47ff5ba84a44f26ddd7e8d9f79d5b42df0"

// Group hash personalizations.
const (
	personSpendAuth   = "Zcash_G_"
	personProofGen    = "Zcash_H_"
	personDiversifier = "Zcash_gd"
	personIVK         = "Zcashivk"
)

var (
	curveOnce sync.Once
	curve     twistededwards.CurveParams
	cofactor  = big.NewInt(8)

	basesOnce                   sync.Once
	spendAuthBase, proofGenBase *Point
)

func jubjub() *twistededwards.CurveParams {
	curveOnce.Do(func() { curve = twistededwards.GetEdwardsCurve() })
	return &curve
}

// Order returns r_J, the order of the prime-order Jubjub subgroup.
func Order() *big.Int {
	return new(big.Int).Set(&jubjub().Order)
}

// Point is an affine point of the Jubjub curve. Points are immutable.
type Point struct {
	p twistededwards.PointAffine
}

// ParsePoint decodes the 32-byte compressed encoding of a Jubjub point:
// the little-endian v coordinate with the parity of u in the top bit.
// Non-canonical encodings are rejected.
func ParsePoint(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, fmt.Errorf("%w: point must be %d bytes, got %d", ErrInvalidPoint, PointSize, len(b))
	}
	var buf [PointSize]byte
	copy(buf[:], b)
	sign := uint(buf[31] >> 7)
	buf[31] &= 0x7f

	v := leInt(buf[:])
	if v.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("%w: v coordinate out of range", ErrInvalidPoint)
	}

	// u^2 = (v^2 - 1) / (d*v^2 - a)
	var y, y2, num, den, x fr.Element
	y.SetBigInt(v)
	y2.Square(&y)
	var one fr.Element
	one.SetOne()
	num.Sub(&y2, &one)
	den.Mul(&jubjub().D, &y2)
	den.Sub(&den, &jubjub().A)
	den.Inverse(&den)
	num.Mul(&num, &den)
	if x.Sqrt(&num) == nil {
		return nil, fmt.Errorf("%w: not on the curve", ErrInvalidPoint)
	}

	var u big.Int
	x.BigInt(&u)
	if u.Bit(0) != sign {
		if x.IsZero() {
			return nil, fmt.Errorf("%w: non-canonical sign", ErrInvalidPoint)
		}
		x.Neg(&x)
	}

	out := &Point{}
	out.p.X = x
	out.p.Y = y
	if !out.IsOnCurve() {
		return nil, fmt.Errorf("%w: not on the curve", ErrInvalidPoint)
	}
	return out, nil
}

// Bytes returns the compressed encoding of p.
func (p *Point) Bytes() [PointSize]byte {
	var u, v big.Int
	p.p.X.BigInt(&u)
	p.p.Y.BigInt(&v)
	out := leBytes(&v)
	out[31] |= byte(u.Bit(0)) << 7
	return out
}

// Mul returns k*p.
func (p *Point) Mul(k *big.Int) *Point {
	out := &Point{}
	out.p.ScalarMultiplication(&p.p, k)
	return out
}

// IsIdentity reports whether p is the neutral element (0, 1).
func (p *Point) IsIdentity() bool {
	var one fr.Element
	one.SetOne()
	return p.p.X.IsZero() && p.p.Y.Equal(&one)
}

// IsPrimeOrder reports whether p is a non-identity point of the prime-order
// subgroup.
func (p *Point) IsPrimeOrder() bool {
	return !p.IsIdentity() && p.Mul(&jubjub().Order).IsIdentity()
}

// Equal reports whether p and o are the same point.
func (p *Point) Equal(o *Point) bool {
	return p.p.Equal(&o.p)
}

// IsOnCurve reports whether p satisfies the curve equation.
func (p *Point) IsOnCurve() bool {
	return p.p.IsOnCurve()
}

// GroupHash maps (person, msg) to a point of the prime-order subgroup.
// About half of all inputs have no point and fail with ErrInvalidPoint.
func GroupHash(person string, msg []byte) (*Point, error) {
	h := Blake2s(person, []byte(groupHashURS), msg)
	p, err := ParsePoint(h[:])
	if err != nil {
		return nil, err
	}
	q := p.Mul(cofactor)
	if q.IsIdentity() {
		return nil, fmt.Errorf("%w: small order", ErrInvalidPoint)
	}
	return q, nil
}

// FindGroupHash returns GroupHash(person, msg || i) for the first byte i
// that yields a point.
func FindGroupHash(person string, msg []byte) (*Point, error) {
	buf := append(append([]byte(nil), msg...), 0)
	for i := 0; i < 256; i++ {
		buf[len(buf)-1] = byte(i)
		p, err := GroupHash(person, buf)
		if errors.Is(err, ErrInvalidPoint) {
			continue
		}
		return p, err
	}
	return nil, fmt.Errorf("%w: no group hash for %q", ErrInvalidPoint, person)
}

func initBases() {
	var err error
	if spendAuthBase, err = FindGroupHash(personSpendAuth, nil); err != nil {
		panic(err)
	}
	if proofGenBase, err = FindGroupHash(personProofGen, nil); err != nil {
		panic(err)
	}
}

// SpendAuthBase returns the generator that maps ask to ak.
func SpendAuthBase() *Point {
	basesOnce.Do(initBases)
	return spendAuthBase
}

// ProofGenBase returns the generator that maps nsk to nk.
func ProofGenBase() *Point {
	basesOnce.Do(initBases)
	return proofGenBase
}

// DiversifyHash maps an 11-byte diversifier to its base point g_d.
// Roughly half of all diversifiers have none and fail with ErrInvalidPoint.
func DiversifyHash(d []byte) (*Point, error) {
	return GroupHash(personDiversifier, d)
}

// IncomingViewingKey derives ivk from the encodings of ak and nk. The hash
// is truncated to 251 bits so ivk is always below r_J.
func IncomingViewingKey(ak, nk []byte) (*big.Int, error) {
	h := Blake2s(personIVK, ak, nk)
	h[31] &= 0x07
	ivk := leInt(h[:])
	if ivk.Sign() == 0 {
		return nil, ErrZeroScalar
	}
	return ivk, nil
}

// ScalarFromWide reduces a little-endian byte string modulo r_J.
func ScalarFromWide(b []byte) *big.Int {
	s := leInt(b)
	return s.Mod(s, &jubjub().Order)
}

// AddScalars returns (a + b) mod r_J.
func AddScalars(a, b *big.Int) *big.Int {
	s := new(big.Int).Add(a, b)
	return s.Mod(s, &jubjub().Order)
}

// ScalarBytes returns the 32-byte little-endian encoding of a scalar.
func ScalarBytes(k *big.Int) [ScalarSize]byte {
	return leBytes(k)
}

func leInt(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return new(big.Int).SetBytes(be)
}

func leBytes(x *big.Int) [32]byte {
	var be, out [32]byte
	x.FillBytes(be[:])
	for i, c := range be {
		out[31-i] = c
	}
	return out
}
