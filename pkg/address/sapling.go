package address

import (
	"fmt"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

func (e *Encoder) encodeSapling(receiver []byte) (string, error) {
	if err := checkSaplingReceiver(receiver); err != nil {
		return "", err
	}
	s, err := types.Bech32Encode(e.net.SaplingHRP, receiver)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return s, nil
}

func (e *Encoder) decodeSapling(s string) ([]byte, error) {
	hrp, data, err := types.Bech32Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if hrp != e.net.SaplingHRP {
		return nil, fmt.Errorf("%w: hrp %q is not %q", ErrEncoding, hrp, e.net.SaplingHRP)
	}
	if err := checkSaplingReceiver(data); err != nil {
		return nil, err
	}
	return data, nil
}
