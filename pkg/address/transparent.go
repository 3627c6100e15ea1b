package address

import (
	"fmt"

	"github.com/Klingon-tech/zwalletd/pkg/types"
	"github.com/btcsuite/btcd/btcutil/base58"
)

// EncodeTransparent returns the base58check P2PKH address of a 20-byte
// public key hash. The network's two-byte prefix is split into the base58
// version byte and the first payload byte.
func (e *Encoder) EncodeTransparent(p2pkh []byte) (string, error) {
	if len(p2pkh) != types.P2PKHReceiverLen {
		return "", fmt.Errorf("%w: p2pkh receiver is %d bytes, want %d", ErrEncoding, len(p2pkh), types.P2PKHReceiverLen)
	}
	payload := make([]byte, 0, 1+len(p2pkh))
	payload = append(payload, e.net.P2PKHPrefix[1])
	payload = append(payload, p2pkh...)
	return base58.CheckEncode(payload, e.net.P2PKHPrefix[0]), nil
}

func (e *Encoder) decodeTransparent(s string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if len(payload) != 1+types.P2PKHReceiverLen {
		return nil, fmt.Errorf("%w: transparent payload is %d bytes", ErrEncoding, len(payload))
	}
	if version != e.net.P2PKHPrefix[0] || payload[0] != e.net.P2PKHPrefix[1] {
		return nil, fmt.Errorf("%w: prefix %02x%02x is not %x", ErrEncoding, version, payload[0], e.net.P2PKHPrefix)
	}
	return payload[1:], nil
}
