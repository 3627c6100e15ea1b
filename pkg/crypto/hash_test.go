package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			if hex.EncodeToString(got[:]) != tt.want {
				t.Errorf("Hash(%q) = %x, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestHash160(t *testing.T) {
	// Compressed generator point.
	g, _ := hex.DecodeString("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	got := Hash160(g)
	want := "751e76e8199196d454941c45d1b3a323f1433bd6"
	if hex.EncodeToString(got) != want {
		t.Errorf("Hash160(G) = %x, want %s", got, want)
	}
}

func TestBlake2_Unpersonalized(t *testing.T) {
	b := Blake2b("", 64, []byte("abc"))
	wantB := "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d1" +
		"7d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923"
	if hex.EncodeToString(b) != wantB {
		t.Errorf("Blake2b(abc) = %x, want %s", b, wantB)
	}
	s := Blake2s("", []byte("abc"))
	wantS := "508c5e8c327c14e2e1a72ba34eeb452f37458b209ed63a294d999b4c86675982"
	if hex.EncodeToString(s[:]) != wantS {
		t.Errorf("Blake2s(abc) = %x, want %s", s, wantS)
	}
}

func TestBlake2_Personalization(t *testing.T) {
	msg := []byte("message")
	if bytes.Equal(Blake2b("person a", 32, msg), Blake2b("person b", 32, msg)) {
		t.Error("blake2b personalizations collide")
	}
	if Blake2s("Zcash_G_", msg) == Blake2s("Zcash_H_", msg) {
		t.Error("blake2s personalizations collide")
	}
	// Inputs are concatenated.
	if !bytes.Equal(Blake2b("p", 48, []byte("mess"), []byte("age")), Blake2b("p", 48, msg)) {
		t.Error("Blake2b should hash the concatenation of inputs")
	}
	if got := len(Blake2b("p", 11, msg)); got != 11 {
		t.Errorf("len = %d, want 11", got)
	}
}

func TestBlake2_BadConfigPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("oversized personalization should panic")
		}
	}()
	Blake2s("longer than eight", nil)
}

func TestPRFExpand(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	a := PRFExpand(key, []byte{0x00})
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	if !bytes.Equal(a, Blake2b("Zcash_ExpandSeed", 64, key, []byte{0x00})) {
		t.Error("PRFExpand should be BLAKE2b-512 over key || t")
	}
	if bytes.Equal(a, PRFExpand(key, []byte{0x01})) {
		t.Error("different domain tags produced the same output")
	}
}

func TestLittleEndian(t *testing.T) {
	if got := LE16(0x0102); !bytes.Equal(got, []byte{2, 1}) {
		t.Errorf("LE16 = %x", got)
	}
	if got := LE32(0x01020304); !bytes.Equal(got, []byte{4, 3, 2, 1}) {
		t.Errorf("LE32 = %x", got)
	}
}
