package varint

import (
	"bytes"
	"testing"
)

func TestEncodeKnownValues(t *testing.T) {
	cases := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{25565, []byte{0xDD, 0xC7, 0x01}},
		{2097151, []byte{0xFF, 0xFF, 0x7F}},
		{2147483647, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x07}},
		{-1, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
		{-2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x08}},
	}
	for _, c := range cases {
		if got := Encode(c.v); !bytes.Equal(got, c.want) {
			t.Errorf("encode(%d) = % X, want % X", c.v, got, c.want)
		}
	}
}

func TestEncodeLength(t *testing.T) {
	for v := int32(0); v <= 127; v++ {
		if n := len(Encode(v)); n != 1 {
			t.Errorf("encode(%d) has length %d, want 1", v, n)
		}
	}
	for _, v := range []int32{-1, -2, -1000, -2147483648} {
		if n := len(Encode(v)); n != 5 {
			t.Errorf("encode(%d) has length %d, want 5", v, n)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 127, 128, 255, 25565, -25565, 2147483647, -2147483648, 300000000, -300000000}
	for _, v := range values {
		got, err := Decode(Encode(v))
		if err != nil {
			t.Errorf("decode(encode(%d)): %v", v, err)
			continue
		}
		if got != v {
			t.Errorf("decode(encode(%d)) = %d", v, got)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Decode([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}); err == nil {
		t.Error("expected error for 6-byte input")
	}
	if _, err := Decode([]byte{0x80}); err == nil {
		t.Error("expected error for unterminated varint")
	}
}

func TestReadFrom(t *testing.T) {
	b := bytes.NewReader([]byte{0xDD, 0xC7, 0x01, 0xFF})
	n, v, err := ReadFrom(b)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if n != 3 {
		t.Errorf("consumed %d bytes, want 3", n)
	}
	if v != 25565 {
		t.Errorf("decoded %d, want 25565", v)
	}
	if b.Len() != 1 {
		t.Errorf("expected 1 byte left unread, got %d", b.Len())
	}
}
