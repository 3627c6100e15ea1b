package address

import (
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// Item typecodes of unified addresses and viewing keys, encoded in
// ascending order.
const (
	typecodeP2PKH   = 0x00
	typecodeP2SH    = 0x01
	typecodeSapling = 0x02
)

// hrpPadLen is the length of the HRP padding appended before jumbling.
const hrpPadLen = 16

func hrpPadding(hrp string) []byte {
	pad := make([]byte, hrpPadLen)
	copy(pad, hrp)
	return pad
}

func appendCompactSize(b []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(b, byte(v))
	case v <= 0xffff:
		b = append(b, 0xfd)
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case v <= 0xffffffff:
		b = append(b, 0xfe)
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	default:
		b = append(b, 0xff)
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

// readCompactSize reads a canonically encoded compact size.
func readCompactSize(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: truncated compact size", ErrEncoding)
	}
	var v uint64
	var n int
	switch b[0] {
	case 0xfd:
		n = 3
		if len(b) >= n {
			v = uint64(binary.LittleEndian.Uint16(b[1:]))
		}
	case 0xfe:
		n = 5
		if len(b) >= n {
			v = uint64(binary.LittleEndian.Uint32(b[1:]))
		}
	case 0xff:
		n = 9
		if len(b) >= n {
			v = binary.LittleEndian.Uint64(b[1:])
		}
	default:
		return uint64(b[0]), 1, nil
	}
	if len(b) < n {
		return 0, 0, fmt.Errorf("%w: truncated compact size", ErrEncoding)
	}
	minimal := [...]uint64{3: 0xfd, 5: 0x10000, 9: 0x100000000}
	if v < minimal[n] {
		return 0, 0, fmt.Errorf("%w: non-canonical compact size", ErrEncoding)
	}
	return v, n, nil
}

// item is one typed entry of a unified container.
type item struct {
	typecode uint64
	value    []byte
}

// encodeContainer serializes items in ascending typecode order, appends the
// HRP padding, jumbles and bech32m-encodes the result.
func encodeContainer(hrp string, items []item) (string, error) {
	var raw []byte
	for _, it := range items {
		raw = appendCompactSize(raw, it.typecode)
		raw = appendCompactSize(raw, uint64(len(it.value)))
		raw = append(raw, it.value...)
	}
	raw = append(raw, hrpPadding(hrp)...)

	jumbled, err := f4Jumble(raw)
	if err != nil {
		return "", err
	}
	s, err := types.Bech32mEncode(hrp, jumbled)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return s, nil
}

// decodeContainer reverses encodeContainer. Items are returned in encoded
// order, which is checked to be strictly ascending.
func decodeContainer(wantHRP, s string) ([]item, error) {
	hrp, data, err := types.Bech32mDecode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if hrp != wantHRP {
		return nil, fmt.Errorf("%w: hrp %q is not %q", ErrEncoding, hrp, wantHRP)
	}
	raw, err := f4JumbleInv(data)
	if err != nil {
		return nil, err
	}

	body := raw[:len(raw)-hrpPadLen]
	pad := raw[len(raw)-hrpPadLen:]
	if string(pad) != string(hrpPadding(hrp)) {
		return nil, fmt.Errorf("%w: invalid padding", ErrEncoding)
	}

	var items []item
	for len(body) > 0 {
		tc, n, err := readCompactSize(body)
		if err != nil {
			return nil, err
		}
		body = body[n:]
		length, n, err := readCompactSize(body)
		if err != nil {
			return nil, err
		}
		body = body[n:]
		if uint64(len(body)) < length {
			return nil, fmt.Errorf("%w: item %d truncated", ErrEncoding, tc)
		}
		if len(items) > 0 && tc <= items[len(items)-1].typecode {
			return nil, fmt.Errorf("%w: items out of order", ErrEncoding)
		}
		items = append(items, item{typecode: tc, value: append([]byte(nil), body[:length]...)})
		body = body[length:]
	}
	return items, nil
}

func (e *Encoder) encodeUnified(r *types.Receivers) (string, error) {
	if err := checkSaplingReceiver(r.Sapling); err != nil {
		return "", err
	}

	var items []item
	if r.P2PKH != nil {
		if len(r.P2PKH) != types.P2PKHReceiverLen {
			return "", fmt.Errorf("%w: p2pkh receiver is %d bytes, want %d", ErrEncoding, len(r.P2PKH), types.P2PKHReceiverLen)
		}
		items = append(items, item{typecodeP2PKH, r.P2PKH})
	}
	items = append(items, item{typecodeSapling, r.Sapling})
	return encodeContainer(e.net.UnifiedHRP, items)
}

func (e *Encoder) decodeUnified(s string) (*types.Receivers, error) {
	items, err := decodeContainer(e.net.UnifiedHRP, s)
	if err != nil {
		return nil, err
	}

	var r types.Receivers
	var p2sh bool
	for _, it := range items {
		switch it.typecode {
		case typecodeP2PKH:
			if len(it.value) != types.P2PKHReceiverLen {
				return nil, fmt.Errorf("%w: p2pkh receiver is %d bytes", ErrEncoding, len(it.value))
			}
			r.P2PKH = it.value
		case typecodeP2SH:
			p2sh = true
		case typecodeSapling:
			if err := checkSaplingReceiver(it.value); err != nil {
				return nil, err
			}
			r.Sapling = it.value
		}
		// Other typecodes belong to receivers this wallet does not use.
	}

	if p2sh && r.P2PKH != nil {
		return nil, fmt.Errorf("%w: both p2pkh and p2sh receivers", ErrEncoding)
	}
	if r.Sapling == nil {
		return nil, fmt.Errorf("%w: no sapling receiver", ErrEncoding)
	}
	return &r, nil
}
