package legacyping

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

// encodeLegacyResponse builds the 0xFF-prefixed UTF-16BE kick packet a 1.4+
// server sends in reply to a ping.
func encodeLegacyResponse(t *testing.T, s string) []byte {
	t.Helper()
	units := utf16.Encode([]rune(s))
	out := []byte{0xFF}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(units)))
	out = append(out, lenBuf[:]...)
	for _, u := range units {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], u)
		out = append(out, b[:]...)
	}
	return out
}

func serveOnce(t *testing.T, respond func(reqLen int) []byte) (host string, port uint16, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	done = make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer ln.Close()
		buf := make([]byte, 4096)
		n, _ := conn.Read(buf)
		conn.Write(respond(n))
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", uint16(addr.Port), done
}

func TestLegacyDecodesFiveFields(t *testing.T) {
	resp := encodeLegacyResponse(t, "§1\x0047\x001.4.7\x00A Minecraft Server\x003\x0020")
	host, port, done := serveOnce(t, func(int) []byte { return resp })
	defer func() { <-done }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server, err := Legacy(ctx, host, port, time.Second, time.Second, noopLogger())
	if err != nil {
		t.Fatalf("Legacy: %v", err)
	}
	if server.ProtocolVersion != 47 {
		t.Errorf("ProtocolVersion = %d, want 47", server.ProtocolVersion)
	}
	if server.ServerVersion != "1.4.7" {
		t.Errorf("ServerVersion = %q, want %q", server.ServerVersion, "1.4.7")
	}
	if server.Motd != "A Minecraft Server" {
		t.Errorf("Motd = %q", server.Motd)
	}
	if server.OnlinePlayers != 3 || server.MaxPlayers != 20 {
		t.Errorf("players = %d/%d, want 3/20", server.OnlinePlayers, server.MaxPlayers)
	}
}

func TestBetaDecodesThreeFields(t *testing.T) {
	resp := encodeLegacyResponse(t, "A Minecraft Server§3§20")
	host, port, done := serveOnce(t, func(int) []byte { return resp })
	defer func() { <-done }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server, err := Beta(ctx, host, port, time.Second, time.Second, noopLogger())
	if err != nil {
		t.Fatalf("Beta: %v", err)
	}
	if server.Motd != "A Minecraft Server" {
		t.Errorf("Motd = %q", server.Motd)
	}
	if server.OnlinePlayers != 3 || server.MaxPlayers != 20 {
		t.Errorf("players = %d/%d, want 3/20", server.OnlinePlayers, server.MaxPlayers)
	}
}

func TestNettySendsFullPingHostPayload(t *testing.T) {
	var gotLen int
	resp := encodeLegacyResponse(t, "§1\x0074\x001.6.4\x00A Minecraft Server\x005\x0020")
	host, port, done := serveOnce(t, func(n int) []byte {
		gotLen = n
		return resp
	})
	defer func() { <-done }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server, err := Netty(ctx, host, port, time.Second, time.Second, noopLogger())
	if err != nil {
		t.Fatalf("Netty: %v", err)
	}
	if server.ServerVersion != "1.6.4" {
		t.Errorf("ServerVersion = %q", server.ServerVersion)
	}
	// 0xFE 0x01 0xFA + 2 + 22 ("MC|PingHost") + 2 + rest(1+2+2*len(host)+4)
	wantLen := 3 + 2 + 22 + 2 + (1 + 2 + 2*len(host) + 4)
	if gotLen != wantLen {
		t.Errorf("sent %d bytes, want %d (full MC|PingHost payload, not just 0xFE 0x01)", gotLen, wantLen)
	}
}
