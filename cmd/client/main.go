package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/client"
	"github.com/yourusername/duelnet/internal/client/termloop"
	"github.com/yourusername/duelnet/internal/client/ui"
	"github.com/yourusername/duelnet/internal/config"
	"github.com/yourusername/duelnet/internal/logging"
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
		flags   = config.DefaultClient()
	)

	cmd := &cobra.Command{
		Use:   "duelnet",
		Short: "Join a two-player duel",
		Long: `Join a two-player duel.

Connects to a duelnet server over TCP, or over WebSocket when --url is
given. If no server answers within --timeout the client starts an offline
practice match instead.

Examples:
  duelnet
  duelnet --host=10.0.0.5 --port=5555
  duelnet --url=ws://example.com:8080/ws --renderer=termloop`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(envFile)
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
	f.StringVar(&flags.Host, "host", flags.Host, "Server host")
	f.IntVarP(&flags.Port, "port", "p", flags.Port, "Server TCP port")
	f.StringVar(&flags.URL, "url", flags.URL, "WebSocket URL (overrides --host/--port)")
	f.DurationVar(&flags.InitTimeout, "timeout", flags.InitTimeout, "How long to wait for the server before playing offline")
	f.StringVar(&flags.Renderer, "renderer", flags.Renderer, "Front-end: tui or termloop")
	f.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error, none")
	f.StringVar(&flags.LogFile, "log-file", flags.LogFile, "Write logs to this file instead of stderr")

	return cmd
}

// applyFlags copies the flags the user actually set over cfg
func applyFlags(cmd *cobra.Command, cfg *config.Client, flags config.Client) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = flags.Host
	}
	if f.Changed("port") {
		cfg.Port = flags.Port
	}
	if f.Changed("url") {
		cfg.URL = flags.URL
	}
	if f.Changed("timeout") {
		cfg.InitTimeout = flags.InitTimeout
	}
	if f.Changed("renderer") {
		cfg.Renderer = flags.Renderer
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if f.Changed("log-file") {
		cfg.LogFile = flags.LogFile
	}
}

func run(cfg config.Client) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link, err := connect(ctx, cfg, logger.Named("session"))
	if err != nil {
		return err
	}
	defer link.Close()

	switch cfg.Renderer {
	case "termloop":
		termloop.New(link, logger.Named("termloop")).Run()
		return nil
	default:
		p := tea.NewProgram(ui.NewModel(link, logger.Named("ui")), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	}
}

// connect joins the configured server, falling back to an offline match
// when it cannot be reached.
func connect(ctx context.Context, cfg config.Client, logger *zap.Logger) (client.Link, error) {
	opts := append(client.FromConfig(cfg), client.WithLogger(logger))

	var (
		session *client.Session
		err     error
	)
	if cfg.URL != "" {
		logger.Info("connecting", zap.String("url", cfg.URL))
		session, err = client.ConnectWebSocket(ctx, cfg.URL, opts...)
	} else {
		logger.Info("connecting", zap.String("addr", cfg.Addr()))
		session, err = client.Connect(ctx, cfg.Host, cfg.Port, opts...)
	}
	if err == nil {
		return session, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var connErr *client.ConnectionError
	if errors.Is(err, client.ErrTimeout) || errors.As(err, &connErr) {
		logger.Warn("server unavailable, starting offline match", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%s; playing offline\n", err)
		return client.NewOfflineSession(logger), nil
	}
	return nil, err
}
