package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/searchktools/fast-static/core"
)

// EnvPrefix prefixes every environment override, e.g. FAST_STATIC_PORT
const EnvPrefix = "FAST_STATIC"

// ErrUsage is returned for malformed command lines
var ErrUsage = errors.New("usage: fast-static [flags] [<ip> <port> <doc_root>]")

// Config holds all application configuration.
type Config struct {
	BindAddress    string        `config:"bind"`
	Port           int           `config:"port"`
	DocRoot        string        `config:"root"`
	MaxHeaderBytes int           `config:"max.header"`
	Backlog        int           `config:"backlog"`
	MaxConnections int           `config:"max.conns"`
	PollTimeout    time.Duration `config:"poll.timeout"`
	RejectPolicy   string        `config:"reject"`
	StatsFile      string        `config:"stats.file"`
	GCPercent      int           `config:"gc.percent"`
	MemoryLimit    int64         `config:"memory.limit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BindAddress:    "0.0.0.0",
		Port:           8080,
		DocRoot:        ".",
		MaxHeaderBytes: core.DefaultMaxHeaderBytes,
		Backlog:        core.DefaultBacklog,
		MaxConnections: core.DefaultMaxConnections,
		PollTimeout:    core.DefaultPollTimeout,
		RejectPolicy:   core.RejectDrop.String(),
	}
}

// Load builds the configuration from defaults, the optional JSON file,
// FAST_STATIC_* environment variables, flags and finally the positional
// <ip> <port> <doc_root> form, later sources winning. The result is validated.
func Load(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("fast-static", flag.ContinueOnError)
	file := fs.String("config", "", "JSON configuration file")
	fs.String("bind", cfg.BindAddress, "IPv4 or IPv6 address to listen on")
	fs.Int("port", cfg.Port, "TCP port (1-65535)")
	fs.String("root", cfg.DocRoot, "document root directory")
	fs.Int("max-header", cfg.MaxHeaderBytes, "maximum request header bytes")
	fs.Int("backlog", cfg.Backlog, "listen backlog")
	fs.Int("max-conns", cfg.MaxConnections, "connection slots")
	fs.Duration("poll-timeout", cfg.PollTimeout, "event loop poll timeout")
	fs.String("reject", cfg.RejectPolicy, "policy when all slots are busy (drop or 503)")
	fs.String("stats-file", "", "write final statistics here (.json for JSON)")
	fs.Int("gc-percent", 0, "GOGC override (0 keeps the runtime default)")
	fs.Int64("memory-limit", 0, "soft memory limit in bytes (0 for none)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	m := NewManager()
	if *file != "" {
		if err := m.LoadFromJSON(*file); err != nil {
			return nil, err
		}
	}
	m.LoadFromEnv(EnvPrefix)

	// only flags given on the command line override earlier sources
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "config" {
			m.Set(strings.ReplaceAll(f.Name, "-", "."), f.Value.String())
		}
	})

	switch fs.NArg() {
	case 0:
	case 3:
		m.Set("bind", fs.Arg(0))
		m.Set("port", fs.Arg(1))
		m.Set("root", fs.Arg(2))
	default:
		return nil, ErrUsage
	}

	if err := m.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and canonicalizes DocRoot in place
func (c *Config) Validate() error {
	if net.ParseIP(c.BindAddress) == nil {
		return fmt.Errorf("invalid bind address %q: must be an IPv4 or IPv6 literal", c.BindAddress)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.Port)
	}

	root, err := filepath.Abs(c.DocRoot)
	if err != nil {
		return fmt.Errorf("document root: %w", err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("document root: %w", err)
	}
	fi, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("document root: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("document root %s is not a directory", root)
	}
	c.DocRoot = root

	if c.MaxHeaderBytes <= 0 || c.MaxHeaderBytes > core.MaxHeaderBytesLimit {
		c.MaxHeaderBytes = core.DefaultMaxHeaderBytes
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("invalid backlog %d", c.Backlog)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("invalid connection limit %d", c.MaxConnections)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("invalid poll timeout %s", c.PollTimeout)
	}
	if _, err := core.ParseRejectPolicy(c.RejectPolicy); err != nil {
		return err
	}
	if c.GCPercent < 0 || c.MemoryLimit < 0 {
		return fmt.Errorf("GC settings must not be negative")
	}
	return nil
}

// ServerConfig returns the settings the event loop consumes
func (c *Config) ServerConfig() core.ServerConfig {
	policy, _ := core.ParseRejectPolicy(c.RejectPolicy)
	return core.ServerConfig{
		BindAddress:    c.BindAddress,
		Port:           c.Port,
		DocumentRoot:   c.DocRoot,
		MaxHeaderBytes: c.MaxHeaderBytes,
		Backlog:        c.Backlog,
		MaxConnections: c.MaxConnections,
		PollTimeout:    c.PollTimeout,
		RejectPolicy:   policy,
	}
}
