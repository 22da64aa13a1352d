// Package mresult holds the result record types shared by every protocol
// package and re-exported by the root msp package. They live here, rather
// than in msp itself, so protocol packages can depend on them without
// creating an import cycle with msp (which depends on the protocol
// packages).
package mresult

import (
	"encoding/json"
	"net"
	"strconv"
	"time"
)

// Chat is a Minecraft chat component. The wire format lets a description be
// either a bare JSON string or an object with text/extra/color fields; Chat
// normalizes both into the same shape.
type Chat struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
	Bold  bool   `json:"bold,omitempty"`
	Extra []Chat `json:"extra,omitempty"`
}

// UnmarshalJSON accepts either a bare string or a full chat-component
// object, matching the two forms servers actually send for "description".
func (c *Chat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	type alias Chat
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Chat(a)
	return nil
}

// String flattens a Chat tree into plain text, concatenating Text with all
// Extra components in order.
func (c Chat) String() string {
	s := c.Text
	for _, e := range c.Extra {
		s += e.String()
	}
	return s
}

// PlayerSample is one entry in a Server's player sample list.
type PlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Players describes a Server's player count and optional sample.
type Players struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []PlayerSample `json:"sample,omitempty"`
}

// VersionInfo describes a Server's reported version name and protocol
// number.
type VersionInfo struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// Server is the result of a modern (1.7+) Java Server List Ping.
type Server struct {
	Version     VersionInfo   `json:"version"`
	Players     Players       `json:"players"`
	Description Chat          `json:"description"`
	Favicon     string        `json:"favicon,omitempty"`
	Latency     time.Duration `json:"-"`
}

// LegacyServer is the result of a Legacy (1.4-1.5) or Netty-era (1.6) ping;
// both protocols decode to the same shape.
type LegacyServer struct {
	ProtocolVersion int
	ServerVersion   string
	Motd            string
	OnlinePlayers   int
	MaxPlayers      int
}

// NettyServer is the Netty-era (1.6) ping result. It is the same shape as
// LegacyServer; the two protocols differ only in the request they send.
type NettyServer = LegacyServer

// LegacyBetaServer is the result of a Beta/Legacy (beta 1.8-1.3) ping,
// which carries no protocol version field.
type LegacyBetaServer struct {
	Motd          string
	OnlinePlayers int
	MaxPlayers    int
}

// QueryBasic is the result of a UDP query basic stat request.
type QueryBasic struct {
	Motd       string
	GameType   string
	Map        string
	NumPlayers int
	MaxPlayers int
	HostPort   uint16
	HostIP     string
}

// ModPlugin is one parsed entry of a full-query "plugins" field, of the
// form "ServerMod[: PluginA; PluginB]".
type ModPlugin struct {
	ModName string
	Plugins []string
}

// QueryFull is the result of a UDP query full stat request.
type QueryFull struct {
	Hostname   string
	GameType   string
	GameID     string
	Version    string
	Plugins    []ModPlugin
	Map        string
	NumPlayers int
	MaxPlayers int
	HostPort   uint16
	HostIP     string
	Players    []string
}

// BedrockServer is the result of a Bedrock Edition unconnected ping.
type BedrockServer struct {
	Edition         string
	MotdLine1       string
	ProtocolVersion int32
	VersionName     string
	OnlinePlayers   int32
	MaxPlayers      int32
	ServerID        string
	MotdLine2       string
	GameMode        string
	GameModeID      uint8
	PortIPv4        uint16
	PortIPv6        uint16
}

// LanServer is one server observed on the LAN broadcast channel. Equality
// and identity are by Addr alone (IP and port together), matching the
// reference implementation's Hash impl for LanServer, which hashes the full
// SocketAddrV4 it was observed from.
type LanServer struct {
	Addr net.UDPAddr
	Motd string
	Port uint16
}

// Key returns the map key a consumer should use to track this server by
// address, since Go has no operator-overloadable equality: IP and source
// port together, the fields the reference implementation hashes on.
func (s LanServer) Key() string {
	return net.JoinHostPort(s.Addr.IP.String(), strconv.Itoa(s.Addr.Port))
}
