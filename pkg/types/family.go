package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Family is the address scheme an address is encoded with. Both families
// derive from the same account key hierarchy and share one index space.
type Family uint8

const (
	// FamilyUnified is a unified address carrying a transparent and a
	// sapling receiver.
	FamilyUnified Family = iota
	// FamilySapling is a single-receiver shielded sapling address.
	FamilySapling
)

// String returns the wire name of the family.
func (f Family) String() string {
	switch f {
	case FamilyUnified:
		return "unified"
	case FamilySapling:
		return "sapling"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return f == FamilyUnified || f == FamilySapling
}

// ParseFamily accepts the wire name, or the long form used in the API docs.
// An empty string selects the unified family.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unified", "transparent_unified":
		return FamilyUnified, nil
	case "sapling", "shielded_sapling":
		return FamilySapling, nil
	default:
		return 0, fmt.Errorf("unknown address family %q", s)
	}
}

// MarshalJSON encodes the family as its wire name.
func (f Family) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid address family %d", uint8(f))
	}
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a family from its wire name.
func (f *Family) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFamily(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
