// Package javaping implements the modern (1.7+) Java Edition Server List
// Ping protocol: a handshake over TCP followed by a status request and an
// optional timed ping, per wiki.vg's "Server List Ping" page.
package javaping

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/zRains/msp/internal/mresult"
	"github.com/zRains/msp/internal/msperr"
	"github.com/zRains/msp/internal/mspmetrics"
	"github.com/zRains/msp/internal/netutil"
	"github.com/zRains/msp/internal/varint"
)

const (
	handshakeNextStateStatus = int32(1)
	// protocolVersionIgnored is sent during the handshake; the status
	// response doesn't depend on it, so any value the server is willing to
	// parse a VarInt from works.
	protocolVersionIgnored = int32(-1)
)

// Status performs a handshake and status request against host:port and
// decodes the JSON response into a Server. Unlike the reference
// implementation, which hardcodes 25565 into the handshake's port field
// regardless of the address actually dialed, Status sends the real
// configured port, since that field is part of what some proxies
// (BungeeCord, Velocity) use to route the connection.
func Status(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.Server, err error) {
	recorder := mspmetrics.ForProtocol("java")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	conn, err := netutil.DialTCP(ctx, host, port, readTimeout, writeTimeout)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Msg("javaping: dial failed")
		return nil, msperr.FromIOError(err)
	}
	defer conn.Close()

	if err := handshake(conn, host, port); err != nil {
		return nil, err
	}
	if err := writePacket(conn, 0x00, nil); err != nil {
		return nil, err
	}
	id, data, err := readPacket(conn)
	if err != nil {
		return nil, err
	}
	if id != 0x00 {
		return nil, msperr.New(msperr.DataErr, "unexpected status response packet id")
	}
	n, strLen, err := varintFromSlice(data)
	if err != nil {
		return nil, msperr.Wrap(msperr.DataErr, "malformed status string length", err)
	}
	payload := data[n:]
	if int32(len(payload)) < strLen {
		return nil, msperr.New(msperr.DataErr, "status payload shorter than declared length")
	}
	recorder.BytesReceived(len(payload[:strLen]))
	var server mresult.Server
	if err := json.Unmarshal(payload[:strLen], &server); err != nil {
		log.Debug().Err(err).Msg("javaping: status json decode failed")
		return nil, msperr.Wrap(msperr.DataErr, "status response is not valid JSON", err)
	}
	return &server, nil
}

// Ping performs a handshake followed by the timed ping exchange (packet id
// 0x01) and returns the measured round-trip latency. The server is required
// to echo back the exact 8-byte timestamp it was sent; a mismatch (a server
// answering with garbage, or replaying a stale value) is a DataErr rather
// than a successful ping, matching the reference implementation's
// get_server_ping, which rejects the reply unless the echoed timestamp
// equals the one it sent.
func Ping(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (latency time.Duration, err error) {
	recorder := mspmetrics.ForProtocol("java")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		} else {
			recorder.Latency(float64(latency.Milliseconds()))
		}
	}()

	conn, err := netutil.DialTCP(ctx, host, port, readTimeout, writeTimeout)
	if err != nil {
		return 0, msperr.FromIOError(err)
	}
	defer conn.Close()

	if err := handshake(conn, host, port); err != nil {
		return 0, err
	}

	sent := time.Now()
	body := make([]byte, 8)
	putBigEndianMillis(body, sent.UnixMilli())
	if err := writePacket(conn, 0x01, body); err != nil {
		return 0, err
	}

	id, data, err := readPacket(conn)
	if err != nil {
		return 0, err
	}
	measured := time.Since(sent)
	if id != 0x01 {
		return 0, msperr.New(msperr.DataErr, "unexpected pong response packet id")
	}
	if len(data) < 8 {
		return 0, msperr.New(msperr.DataErr, "pong payload shorter than 8 bytes")
	}
	if echoed := bigEndianMillis(data[:8]); echoed != sent.UnixMilli() {
		log.Debug().Int64("sent", sent.UnixMilli()).Int64("echoed", echoed).Msg("javaping: pong did not echo sent timestamp")
		return 0, msperr.New(msperr.DataErr, "pong payload does not echo the sent timestamp")
	}
	return measured, nil
}

func handshake(conn net.Conn, host string, port uint16) error {
	var body []byte
	body = append(body, varint.Encode(protocolVersionIgnored)...)
	body = appendString(body, host)
	body = putUint16(body, port)
	body = append(body, varint.Encode(handshakeNextStateStatus)...)
	return writePacket(conn, 0x00, body)
}

func putBigEndianMillis(buf []byte, v int64) {
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

func bigEndianMillis(buf []byte) int64 {
	var v int64
	for i := 0; i < 8; i++ {
		v = v<<8 | int64(buf[i])
	}
	return v
}
