// Package netutil provides the socket plumbing shared by every protocol
// package: TCP/UDP dialing with read/write deadlines, and a SO_REUSEADDR
// listener for the LAN multicast port where more than one process may want
// to bind concurrently.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DialTCP opens a TCP connection to host:port and applies readTimeout and
// writeTimeout as deadlines on the returned connection. A zero timeout
// leaves the corresponding deadline unset.
func DialTCP(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration) (*net.TCPConn, error) {
	var d net.Dialer
	if dl, ok := ctx.Deadline(); ok {
		d.Deadline = dl
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, err
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("netutil: dial %s:%d did not return a TCP connection", host, port)
	}
	if err := applyDeadlines(tcpConn, readTimeout, writeTimeout); err != nil {
		tcpConn.Close()
		return nil, err
	}
	return tcpConn, nil
}

// DialUDP opens a connected UDP socket to host:port from the given local
// address (an unspecified IP/zero port lets the kernel choose), applying
// readTimeout and writeTimeout as deadlines.
func DialUDP(host string, port uint16, localIP net.IP, localPort uint16, readTimeout, writeTimeout time.Duration) (*net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, err
	}
	laddr := &net.UDPAddr{IP: localIP, Port: int(localPort)}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, err
	}
	if err := applyDeadlines(conn, readTimeout, writeTimeout); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ListenUDPReusable binds a UDP socket to laddr with SO_REUSEADDR set before
// bind, so that the LAN discovery listener can share a well-known port
// (224.0.2.60:4445) with other processes on the host, matching how a
// Minecraft client itself binds the LAN broadcast port.
func ListenUDPReusable(laddr *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", laddr.String())
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("netutil: listen %s did not return a UDP connection", laddr)
	}
	return conn, nil
}

type deadlineConn interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

func applyDeadlines(conn deadlineConn, readTimeout, writeTimeout time.Duration) error {
	if readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
	}
	if writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
	}
	return nil
}
