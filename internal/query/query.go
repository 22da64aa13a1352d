// Package query implements the GameSpy4-style UDP Query protocol
// (challenge/response handshake, basic stat, and full stat), per wiki.vg's
// "Query" page.
package query

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

var handshakeRequest = []byte{0xFE, 0xFD, 0x09, 0x00, 0x00, 0x00, 0x01}

const (
	statTypeChallenge = 0x09
	statTypeStat      = 0x00
	sessionIDMask     = 0x0F0F0F0F
	sessionID         = 1
	paddingBytes      = 11
)

// Basic performs the challenge handshake followed by a basic stat request.
func Basic(host string, port uint16, localIP net.IP, localPort uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.QueryBasic, err error) {
	recorder := mspmetrics.ForProtocol("query")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	conn, token, err := handshake(host, port, localIP, localPort, readTimeout, writeTimeout, log)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := sendStatRequest(conn, token, false); err != nil {
		return nil, err
	}
	c, err := wire.ReadDatagram(conn)
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	if _, err := validateStatHeader(c); err != nil {
		return nil, err
	}

	motd, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	gameType, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	mapName, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	numPlayersStr, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	maxPlayersStr, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	numPlayers, err := strconv.Atoi(numPlayersStr)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	maxPlayers, err := strconv.Atoi(maxPlayersStr)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	hostPort, err := c.ReadPort()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	hostIP, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}

	return &mresult.QueryBasic{
		Motd:       motd,
		GameType:   gameType,
		Map:        mapName,
		NumPlayers: numPlayers,
		MaxPlayers: maxPlayers,
		HostPort:   hostPort,
		HostIP:     hostIP,
	}, nil
}

// fullKeys lists the key/value pairs a full stat response carries. Full
// reads that many pairs and files each value under the key the server sent.
var fullKeys = []string{"hostname", "gametype", "game_id", "version", "plugins", "map", "numplayers", "maxplayers", "hostport", "hostip"}

// Full performs the challenge handshake followed by a full stat request.
func Full(host string, port uint16, localIP net.IP, localPort uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (result *mresult.QueryFull, err error) {
	recorder := mspmetrics.ForProtocol("query")
	recorder.Call()
	defer func() {
		if err != nil {
			recorder.Error()
		}
	}()

	conn, token, err := handshake(host, port, localIP, localPort, readTimeout, writeTimeout, log)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := sendStatRequest(conn, token, true); err != nil {
		return nil, err
	}
	c, err := wire.ReadDatagram(conn)
	if err != nil {
		return nil, msperr.FromIOError(err)
	}
	if _, err := validateStatHeader(c); err != nil {
		return nil, err
	}
	c.Skip(paddingBytes)

	values := make(map[string]string, len(fullKeys))
	for range fullKeys {
		k, v, err := c.ReadNullTerminatedKV()
		if err != nil {
			return nil, msperr.FromIOError(err)
		}
		values[k] = v
	}
	// One NUL of the terminating double-NUL was already consumed by the
	// last ReadNullTerminatedKV call; skip the remaining padding before the
	// player list.
	c.Skip(paddingBytes)

	players, err := c.ReadNullTerminatedStringGroup()
	if err != nil {
		return nil, msperr.FromIOError(err)
	}

	numPlayers, err := strconv.Atoi(values["numplayers"])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	maxPlayers, err := strconv.Atoi(values["maxplayers"])
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	hostPort, err := strconv.ParseUint(values["hostport"], 10, 16)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}

	return &mresult.QueryFull{
		Hostname:   values["hostname"],
		GameType:   values["gametype"],
		GameID:     values["game_id"],
		Version:    values["version"],
		Plugins:    parsePlugins(values["plugins"]),
		Map:        values["map"],
		NumPlayers: numPlayers,
		MaxPlayers: maxPlayers,
		HostPort:   uint16(hostPort),
		HostIP:     values["hostip"],
		Players:    players,
	}, nil
}

// handshake dials a UDP socket to host:port and performs the challenge
// token exchange, returning the connected socket and the obtained token for
// the caller's subsequent stat request.
func handshake(host string, port uint16, localIP net.IP, localPort uint16, readTimeout, writeTimeout time.Duration, log zerolog.Logger) (*net.UDPConn, int32, error) {
	conn, err := netutil.DialUDP(host, port, localIP, localPort, readTimeout, writeTimeout)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Msg("query: dial failed")
		return nil, 0, msperr.FromIOError(err)
	}
	if _, err := conn.Write(handshakeRequest); err != nil {
		conn.Close()
		return nil, 0, msperr.FromIOError(err)
	}

	buf := make([]byte, 17)
	n, err := conn.Read(buf)
	if err != nil {
		conn.Close()
		return nil, 0, msperr.FromIOError(err)
	}
	buf = buf[:n]
	for len(buf) > 0 && buf[len(buf)-1] == 0x00 {
		buf = buf[:len(buf)-1]
	}
	if len(buf) <= 5 || len(buf) > 17 {
		conn.Close()
		return nil, 0, msperr.New(msperr.DataErr, "challenge response has an invalid length")
	}
	if buf[0] != statTypeChallenge {
		conn.Close()
		return nil, 0, msperr.New(msperr.DataErr, "challenge response has wrong type byte")
	}
	if sid := beInt32(buf[1:5]) & sessionIDMask; sid != sessionID {
		conn.Close()
		return nil, 0, msperr.New(msperr.DataErr, "challenge response session id mismatch")
	}
	token, err := strconv.ParseInt(string(buf[5:]), 10, 32)
	if err != nil {
		conn.Close()
		return nil, 0, msperr.Wrap(msperr.DataErr, "challenge token is not a valid integer", err)
	}
	return conn, int32(token), nil
}

// sendStatRequest sends the stat request with the obtained token. full
// requests carry 4 extra zero padding bytes that basic requests don't.
func sendStatRequest(conn *net.UDPConn, token int32, full bool) error {
	req := []byte{0xFE, 0xFD, statTypeStat, 0x00, 0x00, 0x00, 0x01}
	req = append(req, beUint32(uint32(token))...)
	if full {
		req = append(req, 0x00, 0x00, 0x00, 0x00)
	}
	if _, err := conn.Write(req); err != nil {
		return msperr.FromIOError(err)
	}
	return nil
}

// validateStatHeader reads and validates the 5-byte stat response header
// (type byte + masked session id), leaving the cursor positioned right
// after it.
func validateStatHeader(c *wire.Cursor) (int32, error) {
	header, err := c.ReadBytes(5)
	if err != nil {
		return 0, msperr.FromIOError(err)
	}
	if header[0] != statTypeStat {
		return 0, msperr.New(msperr.DataErr, "stat response has wrong type byte")
	}
	if sid := beInt32(header[1:5]) & sessionIDMask; sid != sessionID {
		return 0, msperr.New(msperr.DataErr, "stat response session id mismatch")
	}
	return 0, nil
}

// parsePlugins parses a full-query "plugins" value of the form
// "ServerMod[: PluginA; PluginB; ...]" into a single ModPlugin entry. An
// empty value yields no entries.
func parsePlugins(value string) []mresult.ModPlugin {
	if value == "" {
		return nil
	}
	modName := value
	var plugins []string
	if idx := strings.Index(value, ":"); idx >= 0 {
		modName = strings.TrimSpace(value[:idx])
		for _, p := range strings.Split(value[idx+1:], ";") {
			if p = strings.TrimSpace(p); p != "" {
				plugins = append(plugins, p)
			}
		}
	}
	return []mresult.ModPlugin{{ModName: modName, Plugins: plugins}}
}

func beInt32(b []byte) int32 {
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func beUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
