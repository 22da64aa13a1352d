package wire

import (
	"reflect"
	"testing"
)

func TestReadAdvancesIndex(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03})
	if _, err := c.ReadBytes(2); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if c.Index() != 2 {
		t.Errorf("index = %d, want 2", c.Index())
	}
}

func TestReadNonConsuming(t *testing.T) {
	c := NewCursor([]byte{0xAB, 0xCD})
	b, err := c.Read(false)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if b != 0xAB {
		t.Errorf("Read(false) = %#x, want 0xAB", b)
	}
	if c.Index() != 0 {
		t.Errorf("index = %d, want 0 after non-consuming read", c.Index())
	}
}

func TestSeekBackPastStartErrors(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03})
	if _, err := c.ReadBytes(1); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if err := c.SeekBack(2); err == nil {
		t.Error("expected error seeking back past start")
	}
	if err := c.SeekBack(1); err != nil {
		t.Errorf("SeekBack(1): %v", err)
	}
	if c.Index() != 0 {
		t.Errorf("index = %d, want 0", c.Index())
	}
}

func TestReadPastEndErrors(t *testing.T) {
	c := NewCursor([]byte{0x01})
	if _, err := c.Read(true); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := c.Read(true); err == nil {
		t.Error("expected error reading past end of datagram")
	}
}

func TestReadPort(t *testing.T) {
	c := NewCursor([]byte{0x63, 0xDD})
	port, err := c.ReadPort()
	if err != nil {
		t.Fatalf("ReadPort: %v", err)
	}
	if port != 25565 {
		t.Errorf("ReadPort() = %d, want 25565", port)
	}
}

func TestReadNullTerminatedString(t *testing.T) {
	c := NewCursor([]byte("hello\x00world"))
	s, err := c.ReadNullTerminatedString()
	if err != nil {
		t.Fatalf("ReadNullTerminatedString: %v", err)
	}
	if s != "hello" {
		t.Errorf("ReadNullTerminatedString() = %q, want %q", s, "hello")
	}
	rest, err := c.ReadNullTerminatedString()
	if err == nil {
		t.Errorf("expected error on unterminated tail, got %q", rest)
	}
}

func TestReadNullTerminatedStringCompatRepair(t *testing.T) {
	// A stray 0x80-0xBF byte not preceded by 0xC2 must be repaired by
	// prepending 0xC2, producing a valid two-byte UTF-8 sequence.
	c := NewCursor([]byte{'a', 0xA7, 0x00})
	s, err := c.ReadNullTerminatedString()
	if err != nil {
		t.Fatalf("ReadNullTerminatedString: %v", err)
	}
	want := string([]byte{'a', 0xC2, 0xA7})
	if s != want {
		t.Errorf("ReadNullTerminatedString() = % X, want % X", []byte(s), []byte(want))
	}
}

func TestReadNullTerminatedStringGroup(t *testing.T) {
	// "foo\x00bar\x00\x00" - double NUL terminates the group.
	c := NewCursor([]byte("foo\x00bar\x00\x00"))
	got, err := c.ReadNullTerminatedStringGroup()
	if err != nil {
		t.Fatalf("ReadNullTerminatedStringGroup: %v", err)
	}
	want := []string{"foo", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadNullTerminatedStringGroup() = %v, want %v", got, want)
	}
}

func TestReadNullTerminatedStringGroupNextByteStartsNextString(t *testing.T) {
	// After the first NUL, the byte 'b' is not the group terminator, so it
	// must begin the next string rather than being dropped: ["a", "b"].
	c := NewCursor([]byte{'a', 0x00, 'b', 0x00, 0x00})
	got, err := c.ReadNullTerminatedStringGroup()
	if err != nil {
		t.Fatalf("ReadNullTerminatedStringGroup: %v", err)
	}
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadNullTerminatedStringGroup() = %v, want %v", got, want)
	}
}

func TestReadNullTerminatedKV(t *testing.T) {
	c := NewCursor([]byte("hostname\x00my server\x00"))
	k, v, err := c.ReadNullTerminatedKV()
	if err != nil {
		t.Fatalf("ReadNullTerminatedKV: %v", err)
	}
	if k != "hostname" || v != "my server" {
		t.Errorf("ReadNullTerminatedKV() = (%q, %q), want (%q, %q)", k, v, "hostname", "my server")
	}
}

func TestSkip(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04})
	c.Skip(2)
	b, err := c.Read(true)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if b != 0x03 {
		t.Errorf("Read() after Skip(2) = %#x, want 0x03", b)
	}
}
