// Package serve implements the "serve" subcommand: it assembles every
// ambient service (config, logging, events, metrics, audit, sessions,
// policy) and the api.Controller, then runs the HTTP/WebSocket listener
// until interrupted.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/gibberlink-gateway/internal/api"
	"github.com/tphakala/gibberlink-gateway/internal/audit"
	runtimectx "github.com/tphakala/gibberlink-gateway/internal/buildinfo"
	"github.com/tphakala/gibberlink-gateway/internal/config"
	"github.com/tphakala/gibberlink-gateway/internal/events"
	"github.com/tphakala/gibberlink-gateway/internal/fec"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/logging"
	"github.com/tphakala/gibberlink-gateway/internal/metrics"
	"github.com/tphakala/gibberlink-gateway/internal/modem"
	"github.com/tphakala/gibberlink-gateway/internal/policy"
	"github.com/tphakala/gibberlink-gateway/internal/session"
	"github.com/tphakala/gibberlink-gateway/internal/transcript"
)

// Command creates the serve command.
func Command(runtime *runtimectx.Context) *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway's HTTP/WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runtime, configPath, addr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a config file overriding the embedded defaults")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides api.port from config)")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding serve flags: %v\n", err)
	}

	return cmd
}

func run(ctx context.Context, runtime *runtimectx.Context, configPath, addrFlag string) error {
	logging.Init()
	logger := logging.ForService("serve")

	settings, warnings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("config warning", "detail", w)
	}
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	if _, err := events.Initialize(events.DefaultConfig()); err != nil {
		logger.Warn("event bus did not start; pipeline events will only be logged", "error", err)
	}

	gatewayMetrics, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("constructing metrics: %w", err)
	}

	journal, err := audit.Open(settings.Audit.LogPath, settings.Audit.MaxSizeBytes, 0)
	if err != nil {
		return fmt.Errorf("opening audit journal: %w", err)
	}
	defer journal.Close()

	transcripts, err := transcript.Open(filepath.Join(settings.Audit.TranscriptDir, "transcripts.jsonl"))
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}
	defer transcripts.Close()

	sessions := session.NewStore()
	defer sessions.Close()

	apiKeys := make(map[string]string, len(settings.API.APIKeys))
	for _, raw := range settings.API.APIKeys {
		id, secret := splitAPIKey(raw)
		if id != "" {
			apiKeys[id] = secret
		}
	}

	controller := api.New(api.Config{
		Sessions:   sessions,
		Policy:     policy.NewEngine(),
		Audit:      journal,
		Transcript: transcripts,
		Metrics:    gatewayMetrics,
		APIKeys:    apiKeys,
		RateLimit: api.RateLimitConfig{
			Window:      settings.RateLimit.Window,
			MaxRequests: settings.RateLimit.MaxRequests,
		},
		Runtime:    runtime,
		FrameOpts:  framer.DefaultOptions(),
		ModemParam: modemParams(settings.Modem),
		FECCodec:   fec.NoOp{},
	})
	controller.Echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := fmt.Sprintf(":%d", settings.API.Port)
	if addrFlag != "" {
		addr = addrFlag
	}

	srv := &http.Server{Addr: addr, Handler: controller.Echo}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", addr)
		serveErr <- srv.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-sigCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// modemParams translates the config-level tone plan into modem.Params,
// falling back to the named preset's defaults for any zero-valued field
// so a partially-specified override config still yields a usable link.
func modemParams(cfg config.ModemConfig) modem.Params {
	params := modem.DefaultParams(modem.Preset(cfg.Preset))
	if cfg.SampleRateHz > 0 {
		params.SampleRate = float64(cfg.SampleRateHz)
	}
	if cfg.BaudRate > 0 {
		params.SymbolRate = cfg.BaudRate
	}
	if cfg.ToneFreqsHz != [4]float64{} {
		params.Tones = cfg.ToneFreqsHz
	}
	return params
}

// splitAPIKey parses a "keyId:secret" entry from config into its two parts.
func splitAPIKey(raw string) (id, secret string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
