// Command msp-ping probes a single Minecraft server with one of the
// supported ping/query protocols (every one except LAN discovery) and
// prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/zRains/msp"
	"github.com/zRains/msp/internal/cliconfig"
)

type config struct {
	Host     string        `env:"MSP_HOST"`
	Port     uint16        `env:"MSP_PORT"`
	Protocol string        `env:"MSP_PROTOCOL"`
	Timeout  time.Duration `env:"MSP_TIMEOUT"`
	Verbose  bool          `env:"MSP_VERBOSE"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "msp-ping:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config{Port: msp.DefaultPort, Protocol: "java", Timeout: 5 * time.Second}
	envFile := pflag.String("env-file", "", "optional .env file to load configuration from")
	pflag.StringVarP(&cfg.Host, "host", "H", cfg.Host, "server host to probe")
	pflag.Uint16VarP(&cfg.Port, "port", "p", cfg.Port, "server port")
	pflag.StringVar(&cfg.Protocol, "protocol", cfg.Protocol, "one of: java, java-ping, legacy, netty, beta, query-basic, query-full, bedrock")
	pflag.DurationVarP(&cfg.Timeout, "timeout", "t", cfg.Timeout, "read/write timeout")
	pflag.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug logging")
	pflag.Parse()

	if err := cliconfig.Load(*envFile, &cfg); err != nil {
		return err
	}
	if cfg.Host == "" {
		return fmt.Errorf("a --host is required")
	}

	log := newLogger(cfg.Verbose).With().Str("req_id", xid.New().String()).Logger()

	conf := msp.CreateWithPort(cfg.Host, cfg.Port).WithLogger(log)
	conf.Socket.ReadTimeout = cfg.Timeout
	conf.Socket.WriteTimeout = cfg.Timeout

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+time.Second)
	defer cancel()

	result, err := probe(ctx, conf, cfg.Protocol)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func probe(ctx context.Context, conf *msp.Conf, protocol string) (interface{}, error) {
	switch protocol {
	case "java":
		return conf.JavaStatus(ctx)
	case "java-ping":
		latency, err := conf.JavaPing(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"latency": latency.String()}, nil
	case "legacy":
		return conf.LegacyStatus(ctx)
	case "netty":
		return conf.NettyStatus(ctx)
	case "beta":
		return conf.BetaStatus(ctx)
	case "query-basic":
		return conf.QueryBasicStatus(ctx)
	case "query-full":
		return conf.QueryFullStatus(ctx)
	case "bedrock":
		return conf.BedrockStatus(ctx)
	default:
		return nil, fmt.Errorf("unknown protocol %q", protocol)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var out = os.Stderr
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	if isatty.IsTerminal(out.Fd()) {
		writer.Out = colorable.NewColorable(out)
	} else {
		writer.NoColor = true
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
