// Command wsecho runs a WebSocket echo server with an optional admin
// endpoint for metrics and debug probes.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-wsframe/api"
	"github.com/momentics/hioload-wsframe/control"
	"github.com/momentics/hioload-wsframe/internal/admin"
	"github.com/momentics/hioload-wsframe/internal/logging"
	"github.com/momentics/hioload-wsframe/server"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	metricsAddr := flag.String("metrics", "", "admin listen address (overrides config)")
	flag.Parse()

	cfg := control.DefaultConfig()
	if *configPath != "" {
		loaded, err := control.LoadConfig(*configPath)
		if err != nil {
			boot := logging.New("wsecho", "info", true)
			boot.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	logger := logging.New("wsecho", cfg.LogLevel, cfg.LogPretty)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("wsecho stopped")
	}
	log.Info().Msg("wsecho exited")
}

func run(ctx context.Context, cfg control.Config, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := control.NewMetrics(reg, "wsecho")
	probes := control.NewDebugProbes()

	srv, err := server.New(cfg, echoHandler,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithDebugProbes(probes),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if cfg.MetricsAddr != "" {
		adminSrv := &http.Server{
			Addr: cfg.MetricsAddr,
			Handler: admin.NewRouter(admin.Options{
				Service:  "wsecho",
				Version:  version,
				Gatherer: reg,
				Probes:   probes,
				Logger:   logger,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("admin endpoint listening")
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return adminSrv.Shutdown(sctx)
		})
	}

	return g.Wait()
}

// echoHandler sends every data message straight back.
func echoHandler(s api.Sender) api.Handler {
	return api.HandlerFuncs{
		Message: func(ft api.FrameType, payload []byte) {
			if !ft.IsData() {
				return
			}
			if err := s.Send(ft, payload); err != nil {
				log.Debug().Err(err).Msg("echo failed")
			}
		},
	}
}
