package lanscan

import (
	"net"
	"testing"
	"time"

	"github.com/zRains/msp/internal/mresult"
)

func udpAddr(ip string, port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}

func TestParseDatagram(t *testing.T) {
	buf := make([]byte, datagramBufSize)
	copy(buf, "[MOTD]A Minecraft Server[/MOTD][AD]25565[/AD]")
	server, err := parseDatagram(buf, udpAddr("192.168.1.50", 54321))
	if err != nil {
		t.Fatalf("parseDatagram: %v", err)
	}
	if server.Motd != "A Minecraft Server" {
		t.Errorf("Motd = %q", server.Motd)
	}
	if server.Port != 25565 {
		t.Errorf("Port = %d, want 25565", server.Port)
	}
}

func TestParseDatagramMissingMarkersSkipped(t *testing.T) {
	buf := make([]byte, datagramBufSize)
	copy(buf, "not a lan broadcast at all")
	_, err := parseDatagram(buf, udpAddr("192.168.1.50", 54321))
	if err != errNoMarkers {
		t.Errorf("err = %v, want errNoMarkers", err)
	}
}

func TestParseDatagramRejectsIPv6(t *testing.T) {
	buf := make([]byte, datagramBufSize)
	copy(buf, "[MOTD]A Minecraft Server[/MOTD][AD]25565[/AD]")
	_, err := parseDatagram(buf, udpAddr("fe80::1", 54321))
	if err == nil {
		t.Fatal("expected NoImpl error for IPv6 source address")
	}
}

func TestCollectorEvictsStaleEntries(t *testing.T) {
	c := NewCollector()
	c.OfflineAfter = 50 * time.Millisecond

	base := time.Now()
	c.Ingest(serverAt("192.168.1.10"), base)
	c.Ingest(serverAt("192.168.1.11"), base)

	if got := len(c.Snapshot()); got != 2 {
		t.Fatalf("snapshot len = %d, want 2", got)
	}

	c.Evict(base.Add(100 * time.Millisecond))
	if got := len(c.Snapshot()); got != 0 {
		t.Errorf("snapshot len after evict = %d, want 0", got)
	}
}

func TestCollectorCapacityRejectsNewEntries(t *testing.T) {
	c := NewCollector()
	c.Capacity = 2

	base := time.Now()
	if !c.Ingest(serverAt("192.168.1.10"), base) {
		t.Fatal("first entry should be accepted")
	}
	if !c.Ingest(serverAt("192.168.1.11"), base.Add(time.Millisecond)) {
		t.Fatal("second entry should be accepted")
	}
	if c.Ingest(serverAt("192.168.1.12"), base.Add(2*time.Millisecond)) {
		t.Error("third entry should be rejected once at capacity")
	}

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}
	found10 := false
	for _, s := range snap {
		if s.Addr.IP.String() == "192.168.1.10" {
			found10 = true
		}
	}
	if !found10 {
		t.Error("the original oldest entry should not have been evicted to make room")
	}
}

func TestCollectorIngestRefreshesExistingKeyEvenWhenFull(t *testing.T) {
	c := NewCollector()
	c.Capacity = 1

	base := time.Now()
	c.Ingest(serverAt("192.168.1.10"), base)
	updated := serverAt("192.168.1.10")
	updated.Motd = "updated"
	if !c.Ingest(updated, base.Add(time.Millisecond)) {
		t.Error("refreshing an already-tracked key should be accepted even at capacity")
	}
	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Motd != "updated" {
		t.Errorf("snapshot = %+v, want single refreshed entry", snap)
	}
}

func serverAt(ip string) mresult.LanServer {
	return mresult.LanServer{Addr: *udpAddr(ip, 54321), Motd: "test", Port: 25565}
}
