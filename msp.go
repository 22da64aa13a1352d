// Package msp is a client library for the handful of protocols Minecraft
// servers use to answer "is anyone home" questions: modern (1.7+) and
// legacy Java Edition Server List Ping, the GameSpy4-style UDP Query
// protocol, Bedrock Edition's RakNet unconnected ping, and the LAN
// discovery multicast broadcast.
//
// Conf holds everything a probe needs - target host/port and socket
// behavior - and exposes one method per protocol. Every operation is
// stateless and safe to call concurrently from multiple goroutines sharing
// the same Conf.
package msp

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zRains/msp/internal/bedrockping"
	"github.com/zRains/msp/internal/javaping"
	"github.com/zRains/msp/internal/lanscan"
	"github.com/zRains/msp/internal/legacyping"
	"github.com/zRains/msp/internal/mresult"
	"github.com/zRains/msp/internal/msperr"
	"github.com/zRains/msp/internal/query"
)

// Err is MSP's error type: every failure this library returns is either an
// *Err or wraps one, and can be inspected with errors.As.
type Err = msperr.Err

// Kind classifies an Err.
type Kind = msperr.Kind

// The four error kinds every MSP operation can fail with.
const (
	DataErr     = msperr.DataErr
	InternalErr = msperr.InternalErr
	NoImplErr   = msperr.NoImplErr
	IoErr       = msperr.IoErr
)

// Result types, one per protocol.
type (
	Chat             = mresult.Chat
	PlayerSample     = mresult.PlayerSample
	Players          = mresult.Players
	VersionInfo      = mresult.VersionInfo
	Server           = mresult.Server
	LegacyServer     = mresult.LegacyServer
	NettyServer      = mresult.NettyServer
	LegacyBetaServer = mresult.LegacyBetaServer
	QueryBasic       = mresult.QueryBasic
	QueryFull        = mresult.QueryFull
	ModPlugin        = mresult.ModPlugin
	BedrockServer    = mresult.BedrockServer
	LanServer        = mresult.LanServer
)

// DefaultPort is the Java Edition default server port, used by Create when
// no explicit port is given.
const DefaultPort uint16 = 25565

// DefaultQueryPort is the local UDP port DefaultSocketConf sets for Query
// probes to bind from.
const DefaultQueryPort uint16 = 5000

// SocketConf controls socket-level behavior shared by every protocol:
// timeouts, and the local address a probe binds from before reaching out.
type SocketConf struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RepUDPIPv4 is the local address Query probes bind to before dialing
	// and LAN discovery listens on. The unspecified address lets the kernel
	// choose. Bedrock pings do not use it: they always bind the unspecified
	// address on a kernel-chosen port.
	RepUDPIPv4 net.IP
	// RepUDPPort is the local port Query probes bind to. It is not used for
	// LAN discovery, which always listens on port 4445 regardless of this
	// setting, nor for Bedrock pings.
	RepUDPPort uint16
}

// DefaultSocketConf returns the zero-value-safe default SocketConf.
func DefaultSocketConf() SocketConf {
	return SocketConf{RepUDPIPv4: net.IPv4zero, RepUDPPort: DefaultQueryPort}
}

// Conf is the target and socket configuration shared by all seven protocol
// operations.
type Conf struct {
	Host   string
	Port   uint16
	Socket SocketConf

	log zerolog.Logger
}

// Create builds a Conf targeting host on the default Java Edition port.
func Create(host string) *Conf {
	return CreateWithPort(host, DefaultPort)
}

// CreateWithPort builds a Conf targeting host:port.
func CreateWithPort(host string, port uint16) *Conf {
	return &Conf{Host: host, Port: port, Socket: DefaultSocketConf(), log: zerolog.Nop()}
}

// CreateFromStr parses "host:port" into a Conf. It requires exactly one
// colon separator; anything else is a DataErr.
func CreateFromStr(addr string) (*Conf, error) {
	parts := strings.SplitN(addr, ":", 2)
	if len(parts) != 2 {
		return nil, msperr.New(DataErr, "address must be in host:port form")
	}
	host := strings.TrimSpace(parts[0])
	portStr := strings.TrimSpace(parts[1])
	if host == "" || portStr == "" {
		return nil, msperr.New(DataErr, "address must be in host:port form")
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, msperr.FromParseError(err)
	}
	return CreateWithPort(host, uint16(port)), nil
}

// SetLogger routes this Conf's operations' log output into log.
func (c *Conf) SetLogger(log zerolog.Logger) {
	c.log = log
}

// WithLogger returns a copy of c that logs to log, leaving c unchanged.
func (c *Conf) WithLogger(log zerolog.Logger) *Conf {
	cp := *c
	cp.log = log
	return &cp
}

// JavaStatus performs a modern (1.7+) Server List Ping status request.
func (c *Conf) JavaStatus(ctx context.Context) (*Server, error) {
	return javaping.Status(ctx, c.Host, c.Port, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// JavaPing performs a modern Server List Ping timed ping and returns the
// measured round-trip latency.
func (c *Conf) JavaPing(ctx context.Context) (time.Duration, error) {
	return javaping.Ping(ctx, c.Host, c.Port, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// LegacyStatus performs a 1.4-1.5 Server List Ping.
func (c *Conf) LegacyStatus(ctx context.Context) (*LegacyServer, error) {
	return legacyping.Legacy(ctx, c.Host, c.Port, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// NettyStatus performs a 1.6 Server List Ping.
func (c *Conf) NettyStatus(ctx context.Context) (*NettyServer, error) {
	return legacyping.Netty(ctx, c.Host, c.Port, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// BetaStatus performs a beta 1.8-1.3 Server List Ping.
func (c *Conf) BetaStatus(ctx context.Context) (*LegacyBetaServer, error) {
	return legacyping.Beta(ctx, c.Host, c.Port, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// QueryBasicStatus performs a UDP Query basic stat request.
func (c *Conf) QueryBasicStatus(ctx context.Context) (*QueryBasic, error) {
	return query.Basic(c.Host, c.Port, c.Socket.RepUDPIPv4, c.Socket.RepUDPPort, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// QueryFullStatus performs a UDP Query full stat request.
func (c *Conf) QueryFullStatus(ctx context.Context) (*QueryFull, error) {
	return query.Full(c.Host, c.Port, c.Socket.RepUDPIPv4, c.Socket.RepUDPPort, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// BedrockStatus performs a Bedrock Edition unconnected ping.
func (c *Conf) BedrockStatus(ctx context.Context) (*BedrockServer, error) {
	return bedrockping.Status(c.Host, c.Port, c.Socket.ReadTimeout, c.Socket.WriteTimeout, c.log)
}

// LanObservation is one event from GetLanServerStatus: a parsed server, a
// keep-alive tick (both fields nil), or a terminal error.
type LanObservation = lanscan.Observation

// GetLanServerStatus joins the LAN discovery multicast group and streams
// observations until ctx is canceled or the returned CancelFunc is called.
// It is a free function, not a Conf method, since LAN discovery has no
// single target host - any server on the network segment may answer.
func GetLanServerStatus(ctx context.Context, socket SocketConf, log zerolog.Logger) (<-chan LanObservation, context.CancelFunc, error) {
	return lanscan.Listen(ctx, socket.RepUDPIPv4, net.IPv4zero, socket.ReadTimeout, log)
}
