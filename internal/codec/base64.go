// Package codec implements the reversible binary-to-text transform used for
// binary-safe file transfer across the gateway boundary. It is standard
// base64 (RFC 4648 alphabet, "=" padding), implemented locally so the wire
// format is fixed by this package rather than by library defaults: decoding
// tolerates interior whitespace, requires padded 4-character groups, and
// rejects everything else.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// ErrInvalidInput is returned when decoding input that is not validly
// padded base64 over the fixed alphabet.
var ErrInvalidInput = errors.New("invalid base64 input")

// Encode transforms raw bytes into base64 text. Empty input yields "".
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow((len(data) + 2) / 3 * 4)

	for i := 0; i < len(data); i += 3 {
		chunk := data[i:min(i+3, len(data))]

		triple := uint32(chunk[0]) << 16
		if len(chunk) > 1 {
			triple |= uint32(chunk[1]) << 8
		}
		if len(chunk) > 2 {
			triple |= uint32(chunk[2])
		}

		b.WriteByte(alphabet[triple>>18&0x3F])
		b.WriteByte(alphabet[triple>>12&0x3F])
		if len(chunk) > 1 {
			b.WriteByte(alphabet[triple>>6&0x3F])
		} else {
			b.WriteByte('=')
		}
		if len(chunk) > 2 {
			b.WriteByte(alphabet[triple&0x3F])
		} else {
			b.WriteByte('=')
		}
	}

	return b.String()
}

// Decode transforms base64 text back into raw bytes. Whitespace anywhere in
// the input is ignored; after stripping it, the length must be a multiple
// of four and every character must be in the alphabet or trailing padding.
func Decode(input string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)

	if len(cleaned)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidInput, len(cleaned))
	}

	out := make([]byte, 0, len(cleaned)/4*3)

	for i := 0; i < len(cleaned); i += 4 {
		var buf [4]uint32
		padding := 0

		for j := 0; j < 4; j++ {
			ch := cleaned[i+j]
			if ch == '=' {
				padding++
				continue
			}
			v, ok := decodeChar(ch)
			if !ok {
				return nil, fmt.Errorf("%w: character %q", ErrInvalidInput, ch)
			}
			buf[j] = v
		}

		triple := buf[0]<<18 | buf[1]<<12 | buf[2]<<6 | buf[3]
		out = append(out, byte(triple>>16))
		if padding < 2 {
			out = append(out, byte(triple>>8))
		}
		if padding < 1 {
			out = append(out, byte(triple))
		}
	}

	return out, nil
}

func decodeChar(ch byte) (uint32, bool) {
	switch {
	case ch >= 'A' && ch <= 'Z':
		return uint32(ch - 'A'), true
	case ch >= 'a' && ch <= 'z':
		return uint32(ch-'a') + 26, true
	case ch >= '0' && ch <= '9':
		return uint32(ch-'0') + 52, true
	case ch == '+':
		return 62, true
	case ch == '/':
		return 63, true
	default:
		return 0, false
	}
}
