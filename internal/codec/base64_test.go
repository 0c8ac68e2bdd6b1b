package codec

import (
	"bytes"
	"errors"
	"testing"
)

// RFC 4648 test vectors.
var vectors = []struct {
	raw     string
	encoded string
}{
	{"", ""},
	{"f", "Zg=="},
	{"fo", "Zm8="},
	{"foo", "Zm9v"},
	{"foob", "Zm9vYg=="},
	{"fooba", "Zm9vYmE="},
	{"foobar", "Zm9vYmFy"},
}

func TestEncodeVectors(t *testing.T) {
	for _, v := range vectors {
		if got := Encode([]byte(v.raw)); got != v.encoded {
			t.Errorf("Encode(%q) = %q, want %q", v.raw, got, v.encoded)
		}
	}
}

func TestDecodeVectors(t *testing.T) {
	for _, v := range vectors {
		got, err := Decode(v.encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", v.encoded, err)
		}
		if string(got) != v.raw {
			t.Errorf("Decode(%q) = %q, want %q", v.encoded, got, v.raw)
		}
	}
}

func TestDecodeToleratesWhitespace(t *testing.T) {
	tests := []string{
		"Zm9v\nYmFy",
		" Zm9vYmFy ",
		"Zm9v\tYmFy\r\n",
	}
	for _, input := range tests {
		got, err := Decode(input)
		if err != nil {
			t.Fatalf("Decode(%q): %v", input, err)
		}
		if string(got) != "foobar" {
			t.Errorf("Decode(%q) = %q, want %q", input, got, "foobar")
		}
	}
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"length not multiple of four", "Zm9"},
		{"character outside alphabet", "Zm9*"},
		{"url-safe alphabet not accepted", "a-b_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.input); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidInput", tt.input, err)
			}
		})
	}
}

func TestRoundTripBinary(t *testing.T) {
	// Every length 0..257 over bytes that exercise the full range,
	// including NUL and high bytes no text encoding would survive.
	for size := 0; size <= 257; size++ {
		raw := make([]byte, size)
		for i := range raw {
			raw[i] = byte(i * 7)
		}
		decoded, err := Decode(Encode(raw))
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if !bytes.Equal(decoded, raw) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestEncodedLengthPadded(t *testing.T) {
	for size := 1; size <= 16; size++ {
		encoded := Encode(make([]byte, size))
		if len(encoded)%4 != 0 {
			t.Errorf("size %d: encoded length %d not a multiple of 4", size, len(encoded))
		}
	}
}
