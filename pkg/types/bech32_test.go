package types

import (
	"bytes"
	"strings"
	"testing"
)

func TestBech32_Roundtrip(t *testing.T) {
	data := []byte{0x8f, 0x3a, 0x44, 0xb8, 0x05, 0x6c, 0xaf, 0xec, 0x36, 0x8d,
		0xea, 0x0c, 0xbe, 0x0a, 0xd1, 0xd9, 0xbc, 0x3f, 0x43, 0x05}

	encoded, err := Bech32Encode("zs", data)
	if err != nil {
		t.Fatalf("Bech32Encode: %v", err)
	}

	hrp, decoded, err := Bech32Decode(encoded)
	if err != nil {
		t.Fatalf("Bech32Decode: %v", err)
	}

	if hrp != "zs" {
		t.Errorf("HRP = %q, want %q", hrp, "zs")
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("decoded = %x, want %x", decoded, data)
	}
}

func TestBech32_KnownVectors(t *testing.T) {
	// BIP-173 and BIP-350 valid checksum vectors with empty data.
	tests := []struct {
		enc Encoding
		in  string
		hrp string
	}{
		{Bech32, "a12uel5l", "a"},
		{Bech32m, "a1lqfn3a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.enc.String(), func(t *testing.T) {
			hrp, data, err := DecodeBech32(tt.enc, tt.in)
			if err != nil {
				t.Fatalf("DecodeBech32(%q): %v", tt.in, err)
			}
			if hrp != tt.hrp {
				t.Errorf("hrp = %q, want %q", hrp, tt.hrp)
			}
			if len(data) != 0 {
				t.Errorf("data = %x, want empty", data)
			}
			out, err := EncodeBech32(tt.enc, hrp, nil)
			if err != nil {
				t.Fatalf("EncodeBech32: %v", err)
			}
			if out != tt.in {
				t.Errorf("EncodeBech32 = %q, want %q", out, tt.in)
			}
		})
	}
}

func TestBech32m_Roundtrip_Long(t *testing.T) {
	// Unified addresses exceed the BIP-173 90 character limit.
	data := make([]byte, 150)
	for i := range data {
		data[i] = byte(i * 7)
	}
	encoded, err := Bech32mEncode("uregtest", data)
	if err != nil {
		t.Fatalf("Bech32mEncode: %v", err)
	}
	if len(encoded) <= 90 {
		t.Fatalf("expected long encoding, got %d chars", len(encoded))
	}
	hrp, decoded, err := Bech32mDecode(encoded)
	if err != nil {
		t.Fatalf("Bech32mDecode: %v", err)
	}
	if hrp != "uregtest" || !bytes.Equal(decoded, data) {
		t.Errorf("roundtrip mismatch: hrp=%q", hrp)
	}
}

func TestBech32_VariantMismatch(t *testing.T) {
	data := make([]byte, 20)
	b32, err := Bech32Encode("zs", data)
	if err != nil {
		t.Fatalf("Bech32Encode: %v", err)
	}
	b32m, err := Bech32mEncode("zs", data)
	if err != nil {
		t.Fatalf("Bech32mEncode: %v", err)
	}
	if b32 == b32m {
		t.Fatal("bech32 and bech32m encodings should differ")
	}
	if _, _, err := Bech32mDecode(b32); err == nil {
		t.Error("bech32 string accepted as bech32m")
	}
	if _, _, err := Bech32Decode(b32m); err == nil {
		t.Error("bech32m string accepted as bech32")
	}
}

func TestBech32Decode_InvalidChecksum(t *testing.T) {
	data := make([]byte, 20)
	encoded, err := Bech32Encode("zs", data)
	if err != nil {
		t.Fatalf("Bech32Encode: %v", err)
	}

	// Corrupt last character.
	corrupted := encoded[:len(encoded)-1] + "q"
	if corrupted == encoded {
		corrupted = encoded[:len(encoded)-1] + "p"
	}

	if _, _, err := Bech32Decode(corrupted); err == nil {
		t.Error("expected error for invalid checksum")
	}
}

func TestBech32Decode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"invalid chars", "zs1b!!invalid"},
		{"no separator", "qpzry9x8gf2tvdw0"},
		{"too short", "zs1qpz"},
		{"mixed case", "zs1QPZRY9x8gf2tvdw0s3jn54khce6mua7l"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Bech32Decode(tt.in); err == nil {
				t.Errorf("Bech32Decode(%q) should fail", tt.in)
			}
		})
	}
}

func TestBech32Encode_BadHRP(t *testing.T) {
	for _, hrp := range []string{"", "Zs", "z s"} {
		if _, err := Bech32Encode(hrp, []byte{0x01}); err == nil {
			t.Errorf("Bech32Encode(%q) should fail", hrp)
		}
	}
}

func TestBech32_DifferentHRPs(t *testing.T) {
	data := []byte{0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0x00, 0x11}

	enc1, err := Bech32Encode("zs", data)
	if err != nil {
		t.Fatalf("Bech32Encode zs: %v", err)
	}
	enc2, err := Bech32Encode("zregtestsapling", data)
	if err != nil {
		t.Fatalf("Bech32Encode zregtestsapling: %v", err)
	}
	if enc1 == enc2 {
		t.Error("different HRPs should produce different encodings")
	}
	if !strings.HasPrefix(enc2, "zregtestsapling1") {
		t.Errorf("unexpected prefix: %s", enc2)
	}
}
