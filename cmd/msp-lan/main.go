// Command msp-lan listens for Minecraft LAN discovery broadcasts and logs
// each server it observes, optionally exposing Prometheus metrics and
// persisting observations to a SQLite database.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/zRains/msp"
	"github.com/zRains/msp/internal/cliconfig"
	"github.com/zRains/msp/internal/lanscan"
	"github.com/zRains/msp/internal/lanstore"
	"github.com/zRains/msp/internal/mspmetrics"
)

type config struct {
	MetricsAddr string        `env:"MSP_LAN_METRICS_ADDR"`
	DBPath      string        `env:"MSP_LAN_DB_PATH"`
	ReadTimeout time.Duration `env:"MSP_LAN_READ_TIMEOUT"`
	Verbose     bool          `env:"MSP_LAN_VERBOSE"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "msp-lan:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config{ReadTimeout: time.Second}
	envFile := pflag.String("env-file", "", "optional .env file to load configuration from")
	pflag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "if set, serve Prometheus metrics on this address")
	pflag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "if set, persist observations to this SQLite database")
	pflag.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "socket read timeout, driving the keep-alive cadence")
	pflag.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug logging")
	pflag.Parse()

	if err := cliconfig.Load(*envFile, &cfg); err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)

	var store *lanstore.Store
	if cfg.DBPath != "" {
		var err error
		store, err = lanstore.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open lan history database: %w", err)
		}
		defer store.Close()
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socket := msp.DefaultSocketConf()
	socket.ReadTimeout = cfg.ReadTimeout
	observations, cancel, err := msp.GetLanServerStatus(ctx, socket, log)
	if err != nil {
		return fmt.Errorf("start LAN discovery: %w", err)
	}
	defer cancel()

	// collector governs the returned stream per the library's bounded
	// 100-entry/2s-offline policy: once it's full, discovery is canceled
	// rather than silently evicting an existing entry to make room.
	collector := lanscan.NewCollector()
	evictTicker := time.NewTicker(collector.EvictInterval)
	defer evictTicker.Stop()

	recorder := mspmetrics.ForProtocol("lan")
	log.Info().Msg("listening for LAN discovery broadcasts")
	for {
		select {
		case <-evictTicker.C:
			collector.Evict(time.Now())
		case obs, ok := <-observations:
			if !ok {
				return nil
			}
			switch {
			case obs.Err != nil:
				recorder.Error()
				log.Error().Err(obs.Err).Msg("lan discovery stopped")
				return obs.Err
			case obs.Server != nil:
				recorder.Call()
				if !collector.Ingest(*obs.Server, time.Now()) {
					log.Warn().Int("capacity", collector.Capacity).Msg("lan collector at capacity, stopping discovery")
					cancel()
					continue
				}
				log.Info().
					Str("addr", obs.Server.Addr.String()).
					Str("motd", obs.Server.Motd).
					Uint16("port", obs.Server.Port).
					Int("tracked", len(collector.Snapshot())).
					Msg("server observed")
				if store != nil {
					if err := store.Record(*obs.Server, time.Now()); err != nil {
						log.Warn().Err(err).Msg("failed to persist observation")
					}
				}
			default:
				log.Debug().Msg("keep-alive")
			}
		}
	}
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		mspmetrics.WritePrometheus(w)
	})
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := os.Stderr
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	if isatty.IsTerminal(out.Fd()) {
		writer.Out = colorable.NewColorable(out)
	} else {
		writer.NoColor = true
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
