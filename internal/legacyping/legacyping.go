// Package legacyping implements the three pre-1.7 Java Edition ping
// protocols: Beta/Legacy (beta 1.8 - 1.3), Legacy (1.4 - 1.5), and the
// Netty-era ping (1.6), which all share a UTF-16BE response format but
// differ in what they send and how many fields come back.
package legacyping

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"

	"github.com/zRains/msp/internal/mresult"
	"github.com/zRains/msp/internal/msperr"
	"github.com/zRains/msp/internal/mspmetrics"
	"github.com/zRains/msp/internal/netutil"
)

// Beta performs a beta 1.8-1.3 ping: send 0xFE, read to EOF, and split the
// UTF-16BE reply on section-sign-prefixed `§` into three fields.
func Beta(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.LegacyBetaServer, err error) {
	recorder := mspmetrics.ForProtocol("beta")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	raw, err := roundTrip(ctx, host, port, readTimeout, writeTimeout, []byte{0xFE})
	if err != nil {
		return nil, err
	}
	fields, err := decodeLegacyFields(raw, false)
	if err != nil {
		log.Debug().Err(err).Msg("legacyping: beta decode failed")
		return nil, err
	}
	if len(fields) < 3 {
		return nil, msperr.New(msperr.DataErr, "beta ping response has fewer than 3 fields")
	}
	online, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	max, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	return &mresult.LegacyBetaServer{
		Motd:          fields[0],
		OnlinePlayers: online,
		MaxPlayers:    max,
	}, nil
}

// Legacy performs a 1.4-1.5 ping: send 0xFE 0x01, read to EOF, validate the
// leading 0xFF, skip the 2-byte UTF-16 length field, decode the remainder as
// UTF-16BE, and split on NUL into 5 fields.
func Legacy(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.LegacyServer, err error) {
	recorder := mspmetrics.ForProtocol("legacy")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	raw, err := roundTrip(ctx, host, port, readTimeout, writeTimeout, []byte{0xFE, 0x01})
	if err != nil {
		return nil, err
	}
	return decodeLegacyServer(raw, log)
}

// Netty performs a 1.6 ping. It builds the full MC|PingHost payload (magic,
// the plugin channel name, protocol version, host, and port) the way the
// reference implementation constructs it, but - unlike that implementation,
// which builds the payload and then sends only 0xFE 0x01 - actually sends
// the constructed payload, since some 1.6 servers use the embedded host to
// route virtual-host responses.
func Netty(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.NettyServer, err error) {
	recorder := mspmetrics.ForProtocol("netty")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	payload := buildPingHostPayload(host, port)
	recorder.BytesSent(len(payload))
	raw, err := roundTrip(ctx, host, port, readTimeout, writeTimeout, payload)
	if err != nil {
		return nil, err
	}
	return decodeLegacyServer(raw, log)
}

func decodeLegacyServer(raw []byte, log zerolog.Logger) (*mresult.LegacyServer, error) {
	fields, err := decodeLegacyFields(raw, true)
	if err != nil {
		log.Debug().Err(err).Msg("legacyping: decode failed")
		return nil, err
	}
	if len(fields) != 5 {
		return nil, msperr.New(msperr.DataErr, "ping response does not have exactly 5 fields")
	}
	protocolVersion, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	online, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	max, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	return &mresult.LegacyServer{
		ProtocolVersion: protocolVersion,
		ServerVersion:   fields[1],
		Motd:            fields[2],
		OnlinePlayers:   online,
		MaxPlayers:      max,
	}, nil
}

// buildPingHostPayload constructs the 1.6 MC|PingHost plugin message:
// 0xFE 0x01 0xFA, the UTF-16BE plugin channel name length and name, a
// big-endian u16 byte length for what follows, a protocol version byte, the
// UTF-16BE host length (in code units) and host, and the big-endian u32
// port.
func buildPingHostPayload(host string, port uint16) []byte {
	const channel = "MC|PingHost"
	hostUnits := utf16.Encode([]rune(host))
	channelUnits := utf16.Encode([]rune(channel))

	var rest bytes.Buffer
	rest.WriteByte(0x50) // protocol version field, fixed at 0x50 for MC|PingHost
	appendUint16(&rest, uint16(len(hostUnits)))
	appendUTF16BE(&rest, hostUnits)
	appendUint32(&rest, uint32(port))

	var out bytes.Buffer
	out.Write([]byte{0xFE, 0x01, 0xFA})
	appendUint16(&out, uint16(len(channelUnits)))
	appendUTF16BE(&out, channelUnits)
	appendUint16(&out, uint16(rest.Len()))
	out.Write(rest.Bytes())
	return out.Bytes()
}

func appendUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func appendUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func appendUTF16BE(buf *bytes.Buffer, units []uint16) {
	for _, u := range units {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], u)
		buf.Write(b[:])
	}
}

// roundTrip dials host:port over TCP, writes request, and reads the entire
// response until EOF.
func roundTrip(ctx context.Context, host string, port uint16, readTimeout, writeTimeout time.Duration, request []byte) ([]byte, error) {
	conn, err := netutil.DialTCP(ctx, host, port, readTimeout, writeTimeout)
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	defer conn.Close()
	if _, err := conn.Write(request); err != nil {
		return nil, msperr.FromIOError(err)
	}
	raw, err := io.ReadAll(conn)
	if err != nil && err != io.EOF {
		return nil, msperr.FromIOError(err)
	}
	return raw, nil
}

// decodeLegacyFields validates the 0xFF kick-packet prefix, decodes the
// remainder as UTF-16BE, and splits it on NUL. When requireSectionSign is
// true it also requires the decoded string to start with the `§1` marker
// the 1.4+ responses carry (the beta protocol has no such marker), dropping
// everything up to and including the first NUL.
func decodeLegacyFields(raw []byte, requireSectionSign bool) ([]string, error) {
	if len(raw) < 3 || raw[0] != 0xFF {
		return nil, msperr.New(msperr.DataErr, "response does not start with 0xFF kick packet id")
	}
	body := raw[3:]
	if len(body)%2 != 0 {
		return nil, msperr.New(msperr.DataErr, "UTF-16BE body has odd byte length")
	}
	decoded := decodeUTF16BE(body)
	if requireSectionSign {
		if !strings.HasPrefix(decoded, "§1") {
			return nil, msperr.New(msperr.DataErr, "response missing leading §1 marker")
		}
		parts := strings.Split(decoded, "\x00")
		if len(parts) < 2 {
			return nil, msperr.New(msperr.DataErr, "response has no NUL-separated fields")
		}
		return parts[1:], nil
	}
	return strings.Split(decoded, "§"), nil
}

func decodeUTF16BE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}
