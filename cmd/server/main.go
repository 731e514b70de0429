package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/config"
	"github.com/yourusername/duelnet/internal/logging"
	"github.com/yourusername/duelnet/internal/metrics"
	"github.com/yourusername/duelnet/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		envFile string
		flags   = config.DefaultServer()
	)

	cmd := &cobra.Command{
		Use:   "duelnet-server",
		Short: "Host a two-player duel",
		Long: `Host a two-player duel.

Players connect over TCP (newline-delimited JSON). When --http-addr is set
the same protocol is also served over WebSocket at /ws, with Prometheus
metrics at /metrics and a health check at /healthz.

Settings come from defaults, then the env file, then DUELNET_* variables,
then flags.

Examples:
  duelnet-server
  duelnet-server --port=6000 --http-addr=:8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(envFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&envFile, "env-file", ".env", "Env file to read settings from, if it exists")
	f.StringVar(&flags.Host, "host", flags.Host, "Interface to listen on")
	f.IntVarP(&flags.Port, "port", "p", flags.Port, "TCP port")
	f.StringVar(&flags.HTTPAddr, "http-addr", flags.HTTPAddr, "Address for WebSocket, metrics and health endpoints (empty disables)")
	f.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error, none")
	f.IntVar(&flags.SendBuffer, "send-buffer", flags.SendBuffer, "Frames queued per connection before it is dropped")
	f.DurationVar(&flags.WriteTimeout, "write-timeout", flags.WriteTimeout, "Per-frame write deadline")
	f.StringVar(&flags.MetricsNamespace, "metrics-namespace", flags.MetricsNamespace, "Prefix for exported metric names")

	return cmd
}

// applyFlags copies the flags the user actually set over cfg
func applyFlags(cmd *cobra.Command, cfg *config.Server, flags config.Server) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = flags.Host
	}
	if f.Changed("port") {
		cfg.Port = flags.Port
	}
	if f.Changed("http-addr") {
		cfg.HTTPAddr = flags.HTTPAddr
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if f.Changed("send-buffer") {
		cfg.SendBuffer = flags.SendBuffer
	}
	if f.Changed("write-timeout") {
		cfg.WriteTimeout = flags.WriteTimeout
	}
	if f.Changed("metrics-namespace") {
		cfg.MetricsNamespace = flags.MetricsNamespace
	}
}

func run(cfg config.Server) error {
	logger, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithRegistry(reg),
	)

	srv := server.New(cfg, logger.Named("server"), server.WithMetrics(m))
	logger.Info("starting duel server",
		zap.String("addr", cfg.Addr()),
		zap.String("http", cfg.HTTPAddr),
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
