// Package crypto provides the hash and curve primitives used by key derivation.
package crypto

import (
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dchest/blake2b"
	"github.com/dchest/blake2s"
	"github.com/zeebo/blake3"
)

// HashSize is the size of a BLAKE3-256 digest.
const HashSize = 32

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) [HashSize]byte {
	return blake3.Sum256(data)
}

// Hash160 computes RIPEMD160(SHA256(data)), the transparent receiver hash.
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}

// Blake2b returns the size-byte personalized BLAKE2b hash of the
// concatenated inputs. person is at most 16 bytes and size at most 64.
func Blake2b(person string, size int, inputs ...[]byte) []byte {
	h, err := blake2b.New(&blake2b.Config{Size: uint8(size), Person: []byte(person)})
	if err != nil {
		panic(fmt.Sprintf("blake2b %q/%d: %v", person, size, err))
	}
	return sum(h, inputs)
}

// Blake2s returns the 32-byte personalized BLAKE2s hash of the concatenated
// inputs. person is at most 8 bytes.
func Blake2s(person string, inputs ...[]byte) [32]byte {
	h, err := blake2s.New(&blake2s.Config{Size: 32, Person: []byte(person)})
	if err != nil {
		panic(fmt.Sprintf("blake2s %q: %v", person, err))
	}
	var out [32]byte
	copy(out[:], sum(h, inputs))
	return out
}

func sum(h hash.Hash, inputs [][]byte) []byte {
	for _, in := range inputs {
		_, _ = h.Write(in)
	}
	return h.Sum(nil)
}

// PRFExpand is the Sapling key expansion PRF: BLAKE2b-512 personalized with
// "Zcash_ExpandSeed" over key || inputs.
func PRFExpand(key []byte, inputs ...[]byte) []byte {
	return Blake2b("Zcash_ExpandSeed", 64, append([][]byte{key}, inputs...)...)
}

// LE16 returns the little-endian encoding of v.
func LE16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

// LE32 returns the little-endian encoding of v.
func LE32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}
