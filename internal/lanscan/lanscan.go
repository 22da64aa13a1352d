// Package lanscan implements the LAN server discovery broadcast channel:
// Minecraft servers with LAN discovery enabled periodically multicast a
// MOTD/port announcement to 224.0.2.60:4445, which any client on the same
// network segment can listen for.
package lanscan

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"

	"github.com/zRains/msp/internal/mresult"
	"github.com/zRains/msp/internal/msperr"
	"github.com/zRains/msp/internal/netutil"
)

// MulticastGroup and MulticastPort are the well-known LAN discovery
// broadcast address, fixed by the protocol regardless of any configured
// reply port.
var (
	MulticastGroup = net.IPv4(224, 0, 2, 60)
	MulticastPort  = 4445
)

const (
	datagramBufSize = 256
	motdOpen        = "[MOTD]"
	motdClose       = "[/MOTD]"
	adOpen          = "[AD]"
	adClose         = "[/AD]"
)

// Observation is one event from the LAN discovery listener: either a parsed
// server (Server != nil), a keep-alive tick with no data (both nil), or a
// terminal error that ends the scan (Err != nil).
type Observation struct {
	Server *mresult.LanServer
	Err    error
}

// Listen joins the LAN discovery multicast group and returns a channel of
// Observations plus a cancel function. The listener binds to localIP:4445 -
// the multicast port is always 4445 regardless of any configured reply
// port, matching the reference implementation - and joins the group on the
// interface identified by ifaceIP (the unspecified address selects the
// default interface).
func Listen(ctx context.Context, localIP net.IP, ifaceIP net.IP, readTimeout time.Duration, log zerolog.Logger) (<-chan Observation, context.CancelFunc, error) {
	conn, err := netutil.ListenUDPReusable(&net.UDPAddr{IP: localIP, Port: MulticastPort})
	if err != nil {
		return nil, nil, msperr.FromIOError(err)
	}

	pconn := ipv4.NewPacketConn(conn)
	iface, err := interfaceForIP(ifaceIP)
	if err != nil {
		conn.Close()
		return nil, nil, msperr.FromIOError(err)
	}
	if err := pconn.JoinGroup(iface, &net.UDPAddr{IP: MulticastGroup}); err != nil {
		conn.Close()
		return nil, nil, msperr.FromIOError(err)
	}

	if readTimeout <= 0 {
		readTimeout = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Observation)

	go func() {
		defer close(out)
		defer pconn.LeaveGroup(iface, &net.UDPAddr{IP: MulticastGroup})
		defer conn.Close()

		// buf is reused across iterations without re-slicing to the
		// previous read's length, matching the reference implementation's
		// literal "decode the 256-byte buffer in full" behavior: a short
		// datagram following a long one can leave stale trailing bytes.
		buf := make([]byte, datagramBufSize)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, srcAddr, err := conn.ReadFromUDP(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					select {
					case out <- Observation{}:
					case <-ctx.Done():
						return
					}
					continue
				}
				select {
				case out <- Observation{Err: msperr.FromIOError(err)}:
				case <-ctx.Done():
				}
				return
			}

			server, err := parseDatagram(buf, srcAddr)
			if err == errNoMarkers {
				continue
			}
			if err != nil {
				select {
				case out <- Observation{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if server == nil {
				continue
			}
			select {
			case out <- Observation{Server: server}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

var errNoMarkers = msperr.New(msperr.DataErr, "datagram missing motd/ad markers")

// parseDatagram extracts the MOTD and advertised port from a raw LAN
// broadcast datagram. It returns (nil, errNoMarkers) if any of the four
// delimiter markers are missing, which the caller treats as "skip this
// datagram" rather than a failure. An IPv6 source address is rejected as
// NotImplemented, matching the reference implementation's terminal
// behavior on IPv6 traffic.
func parseDatagram(buf []byte, src *net.UDPAddr) (*mresult.LanServer, error) {
	text := string(buf)
	motdStart := strings.Index(text, motdOpen)
	motdEnd := strings.Index(text, motdClose)
	adStart := strings.Index(text, adOpen)
	adEnd := strings.Index(text, adClose)
	if motdStart < 0 || motdEnd < 0 || adStart < 0 || adEnd < 0 {
		return nil, errNoMarkers
	}

	motd := text[motdStart+len(motdOpen) : motdEnd]
	portStr := text[adStart+len(adOpen) : adEnd]
	port, err := strconv.ParseUint(strings.TrimSpace(portStr), 10, 16)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}

	if src.IP.To4() == nil {
		return nil, msperr.New(msperr.NoImplErr, "LAN discovery over IPv6 is not implemented")
	}

	return &mresult.LanServer{
		Addr: *src,
		Motd: motd,
		Port: uint16(port),
	}, nil
}

func interfaceForIP(ip net.IP) (*net.Interface, error) {
	if ip == nil || ip.IsUnspecified() {
		return nil, nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && ipNet.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, nil
}
