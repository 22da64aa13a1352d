// Package bedrockping implements the Bedrock Edition RakNet unconnected
// ping used to query a Bedrock server's MOTD, player counts, and version.
package bedrockping

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zRains/msp/internal/mresult"
	"github.com/zRains/msp/internal/msperr"
	"github.com/zRains/msp/internal/mspmetrics"
	"github.com/zRains/msp/internal/netutil"
	"github.com/zRains/msp/internal/wire"
)

// offlineMessageDataID is the 16-byte RakNet magic sequence every
// unconnected ping/pong carries.
var offlineMessageDataID = []byte{
	0x00, 0xff, 0xff, 0x00, 0xfe, 0xfe, 0xfe, 0xfe,
	0xfd, 0xfd, 0xfd, 0xfd, 0x12, 0x34, 0x56, 0x78,
}

const (
	idUnconnectedPing = 0x01
	idUnconnectedPong = 0x1c
	minPongFields     = 10
)

// Status sends an unconnected ping to host:port and parses the pong's
// semicolon-delimited info string into a BedrockServer.
func Status(host string, port uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.BedrockServer, err error) {
	recorder := mspmetrics.ForProtocol("bedrock")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	conn, err := netutil.DialUDP(host, port, net.IPv4zero, 0, readTimeout, writeTimeout)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Msg("bedrockping: dial failed")
		return nil, msperr.FromIOError(err)
	}
	defer conn.Close()

	ping := buildPing()
	if _, err := conn.Write(ping); err != nil {
		return nil, msperr.FromIOError(err)
	}
	recorder.BytesSent(len(ping))

	c, err := wire.ReadDatagram(conn)
	if err != nil {
		return nil, msperr.FromIOError(err)
	}

	id, err := c.Read(true)
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	if id != idUnconnectedPong {
		return nil, msperr.New(msperr.DataErr, "unconnected pong has wrong packet id")
	}
	c.Skip(8)  // server time
	c.Skip(8)  // server GUID, not validated
	c.Skip(16) // magic, not validated

	length, err := c.ReadPort() // a u16 length field, big-endian like a port
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	infoBytes, err := c.ReadBytes(int(length))
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	recorder.BytesReceived(len(infoBytes))

	return parseInfoString(string(infoBytes), port)
}

// buildPing constructs the 25-byte unconnected ping: packet id, an 8-byte
// zero timestamp, and the offline message magic.
func buildPing() []byte {
	buf := make([]byte, 0, 1+8+16)
	buf = append(buf, idUnconnectedPing)
	buf = append(buf, make([]byte, 8)...)
	buf = append(buf, offlineMessageDataID...)
	return buf
}

// parseInfoString splits the semicolon-delimited MOTD string into a
// BedrockServer. dialedPort is used as the fallback for port_ipv4 when the
// server omits it, matching what was actually dialed rather than a
// hardcoded default.
func parseInfoString(info string, dialedPort uint16) (*mresult.BedrockServer, error) {
	fields := strings.Split(info, ";")
	if len(fields) < minPongFields {
		return nil, msperr.New(msperr.DataErr, "unconnected pong info string has fewer than 10 fields")
	}

	protocolVersion, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	onlinePlayers, err := strconv.ParseInt(fields[4], 10, 32)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	maxPlayers, err := strconv.ParseInt(fields[5], 10, 32)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	gameModeID, err := strconv.ParseUint(fields[9], 10, 8)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}

	portIPv4 := dialedPort
	if len(fields) > 10 {
		if v, err := strconv.ParseUint(fields[10], 10, 16); err == nil {
			portIPv4 = uint16(v)
		}
	}
	var portIPv6 uint16
	if len(fields) > 11 {
		if v, err := strconv.ParseUint(fields[11], 10, 16); err == nil {
			portIPv6 = uint16(v)
		}
	}

	return &mresult.BedrockServer{
		Edition:         fields[0],
		MotdLine1:       fields[1],
		ProtocolVersion: int32(protocolVersion),
		VersionName:     fields[3],
		OnlinePlayers:   int32(onlinePlayers),
		MaxPlayers:      int32(maxPlayers),
		ServerID:        fields[6],
		MotdLine2:       fields[7],
		GameMode:        fields[8],
		GameModeID:      uint8(gameModeID),
		PortIPv4:        portIPv4,
		PortIPv6:        portIPv6,
	}, nil
}
