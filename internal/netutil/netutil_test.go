package netutil

import (
	"net"
	"testing"
	"time"
)

func TestDialUDPRoundTrip(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer server.Close()

	go func() {
		buf := make([]byte, 64)
		n, addr, err := server.ReadFromUDP(buf)
		if err != nil {
			return
		}
		server.WriteToUDP(buf[:n], addr)
	}()

	serverAddr := server.LocalAddr().(*net.UDPAddr)
	conn, err := DialUDP("127.0.0.1", uint16(serverAddr.Port), net.IPv4zero, 0, 2*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Errorf("Read() = %q, want %q", buf[:n], "ping")
	}
}

func TestDialUDPTimeout(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer server.Close()
	serverAddr := server.LocalAddr().(*net.UDPAddr)

	conn, err := DialUDP("127.0.0.1", uint16(serverAddr.Port), net.IPv4zero, 0, 50*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 64)
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected read timeout error, got nil")
	}
}

func TestListenUDPReusable(t *testing.T) {
	conn, err := ListenUDPReusable(&net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		t.Fatalf("ListenUDPReusable: %v", err)
	}
	defer conn.Close()
	if conn.LocalAddr() == nil {
		t.Error("expected a bound local address")
	}
}
