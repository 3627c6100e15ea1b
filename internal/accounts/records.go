package accounts

import (
	"encoding/binary"
	"time"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// Key prefixes within the store namespace.
var (
	nextAccountKey = []byte("m/next_account")
	fingerprintKey = []byte("m/fingerprint")
	accountPrefix  = []byte("a/")
	counterPrefix  = []byte("c/")
	addressPrefix  = []byte("d/")
	reversePrefix  = []byte("r/")
)

// Account is the durable record of one account.
type Account struct {
	Index     uint32    `json:"account_index"`
	Label     string    `json:"label"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountInfo is an account with its issuance counter.
type AccountInfo struct {
	Account
	// LastIndex is the last issued address index; 0 when only the primary
	// address exists.
	LastIndex uint32 `json:"last_address_index"`
}

// Address is the durable record of one issued address.
type Address struct {
	Account uint32       `json:"account_index"`
	Index   uint32       `json:"address_index"`
	Family  types.Family `json:"family"`
	Address string       `json:"address"`

	// Receiver strings encoded on their own, for reverse lookup.
	Transparent string `json:"transparent,omitempty"`
	Sapling     string `json:"sapling,omitempty"`

	DiversifierIndex uint64    `json:"diversifier_index"`
	Label            string    `json:"label,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func be32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func join(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func accountKey(account uint32) []byte {
	return join(accountPrefix, be32(account))
}

func counterKey(account uint32) []byte {
	return join(counterPrefix, be32(account))
}

func addressKey(account, index uint32) []byte {
	return join(addressPrefix, be32(account), be32(index))
}

func reverseKey(addr string) []byte {
	return join(reversePrefix, []byte(addr))
}

// location packs (account, index) for the reverse index.
func location(account, index uint32) []byte {
	return join(be32(account), be32(index))
}

func parseLocation(b []byte) (uint32, uint32, bool) {
	if len(b) != 8 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(b[:4]), binary.BigEndian.Uint32(b[4:]), true
}

func parseU32(b []byte) (uint32, bool) {
	if len(b) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}
