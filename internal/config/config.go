// Package config holds the server and client settings. Values come from the
// defaults below, then an optional .env file, then DUELNET_* environment
// variables; the cobra commands apply flags last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort        = 5555
	DefaultInitTimeout = 5 * time.Second

	envPrefix = "DUELNET_"
)

// Server configures cmd/server
type Server struct {
	Host         string
	Port         int
	HTTPAddr     string // WebSocket bridge + metrics; empty disables
	LogLevel     string
	SendBuffer   int           // queued frames per connection before it is dropped
	WriteTimeout time.Duration // per frame

	MetricsNamespace string
}

// Client configures cmd/client
type Client struct {
	Host         string
	Port         int
	URL          string // ws:// URL; when set it is used instead of Host/Port
	InitTimeout  time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int    // queued inputs; further inputs are dropped until it drains
	Renderer     string // "tui" or "termloop"
	LogLevel     string
	LogFile      string
}

func DefaultServer() Server {
	return Server{
		Host:         "0.0.0.0",
		Port:         DefaultPort,
		LogLevel:     "info",
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,

		MetricsNamespace: "duelnet",
	}
}

func DefaultClient() Client {
	return Client{
		Host:         "localhost",
		Port:         DefaultPort,
		InitTimeout:  DefaultInitTimeout,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Second,
		SendBuffer:   16,
		Renderer:     "tui",
		LogLevel:     "none",
	}
}

// Addr joins host and port
func (s Server) Addr() string { return joinHostPort(s.Host, s.Port) }

// Addr joins host and port
func (c Client) Addr() string { return joinHostPort(c.Host, c.Port) }

// Validate checks the values that would otherwise fail late
func (s Server) Validate() error {
	if err := validatePort(s.Port); err != nil {
		return err
	}
	// init and game_start can be queued back to back for the second player
	if s.SendBuffer < 2 {
		return fmt.Errorf("send buffer must be at least 2, got %d", s.SendBuffer)
	}
	return nil
}

// Validate checks the values that would otherwise fail late
func (c Client) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if c.InitTimeout <= 0 {
		return fmt.Errorf("init timeout must be positive, got %s", c.InitTimeout)
	}
	if c.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be at least 1, got %d", c.SendBuffer)
	}
	switch c.Renderer {
	case "tui", "termloop":
	default:
		return fmt.Errorf("unknown renderer %q", c.Renderer)
	}
	return nil
}

// LoadServer reads envFile (if it exists) and the environment on top of the defaults.
func LoadServer(envFile string) (Server, error) {
	lookup, err := newLookup(envFile)
	if err != nil {
		return Server{}, err
	}

	cfg := DefaultServer()
	lookup.str("HOST", &cfg.Host)
	lookup.str("HTTP_ADDR", &cfg.HTTPAddr)
	lookup.str("LOG_LEVEL", &cfg.LogLevel)
	lookup.str("METRICS_NAMESPACE", &cfg.MetricsNamespace)
	if err := errors.Join(
		lookup.integer("PORT", &cfg.Port),
		lookup.integer("SEND_BUFFER", &cfg.SendBuffer),
		lookup.duration("WRITE_TIMEOUT", &cfg.WriteTimeout),
	); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// LoadClient reads envFile (if it exists) and the environment on top of the defaults.
func LoadClient(envFile string) (Client, error) {
	lookup, err := newLookup(envFile)
	if err != nil {
		return Client{}, err
	}

	cfg := DefaultClient()
	lookup.str("HOST", &cfg.Host)
	lookup.str("URL", &cfg.URL)
	lookup.str("RENDERER", &cfg.Renderer)
	lookup.str("LOG_LEVEL", &cfg.LogLevel)
	lookup.str("LOG_FILE", &cfg.LogFile)
	if err := errors.Join(
		lookup.integer("PORT", &cfg.Port),
		lookup.duration("INIT_TIMEOUT", &cfg.InitTimeout),
		lookup.duration("DIAL_TIMEOUT", &cfg.DialTimeout),
		lookup.duration("WRITE_TIMEOUT", &cfg.WriteTimeout),
		lookup.integer("SEND_BUFFER", &cfg.SendBuffer),
	); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// envLookup resolves DUELNET_* keys. Process environment wins over the file.
type envLookup struct {
	file map[string]string
}

func newLookup(envFile string) (envLookup, error) {
	l := envLookup{file: map[string]string{}}
	if envFile == "" {
		return l, nil
	}
	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return l, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	l.file = values
	return l, nil
}

func (l envLookup) get(key string) (string, bool) {
	key = envPrefix + key
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := l.file[key]
	return v, ok
}

func (l envLookup) str(key string, dst *string) {
	if v, ok := l.get(key); ok {
		*dst = v
	}
}

func (l envLookup) integer(key string, dst *int) error {
	v, ok := l.get(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func (l envLookup) duration(key string, dst *time.Duration) error {
	v, ok := l.get(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

func validatePort(p int) error {
	if p <= 0 || p > 65535 {
		return fmt.Errorf("port out of range: %d", p)
	}
	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
