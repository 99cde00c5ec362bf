// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed runtime configuration loaded from a TOML file. Keys missing from the
// file keep their DefaultConfig values.

package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config holds server and connection settings.
type Config struct {
	ListenAddr  string
	MetricsAddr string // empty disables the metrics endpoint

	LogLevel  string
	LogPretty bool

	ReadBufferSize    int // bytes per socket read
	ReceiveBufferSize int // initial per-connection receive buffer

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 = no read deadline
	WriteTimeout     time.Duration // 0 = no write deadline
	ShutdownTimeout  time.Duration

	MaxFramePayload uint64
	MaxMessageSize  int
	MaxQueuedWrites int

	TCPNoDelay        bool
	SocketReadBuffer  int
	SocketWriteBuffer int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":9001",
		LogLevel:          "info",
		ReadBufferSize:    32 * 1024,
		ReceiveBufferSize: 4 * 1024,
		HandshakeTimeout:  10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxFramePayload:   16 << 20,
		MaxMessageSize:    32 << 20,
		MaxQueuedWrites:   1024,
		TCPNoDelay:        true,
	}
}

type fileConfig struct {
	ListenAddr        string `toml:"listen_addr"`
	MetricsAddr       string `toml:"metrics_addr"`
	LogLevel          string `toml:"log_level"`
	LogPretty         bool   `toml:"log_pretty"`
	ReadBufferSize    int    `toml:"read_buffer_size"`
	ReceiveBufferSize int    `toml:"receive_buffer_size"`
	HandshakeTimeout  string `toml:"handshake_timeout"`
	ReadTimeout       string `toml:"read_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	MaxFramePayload   uint64 `toml:"max_frame_payload"`
	MaxMessageSize    int    `toml:"max_message_size"`
	MaxQueuedWrites   int    `toml:"max_queued_writes"`
	TCPNoDelay        bool   `toml:"tcp_nodelay"`
	SocketReadBuffer  int    `toml:"socket_read_buffer"`
	SocketWriteBuffer int    `toml:"socket_write_buffer"`
}

// LoadConfig reads path and overlays it on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return applyFile(DefaultConfig(), raw, meta)
}

// ParseConfig decodes TOML text and overlays it on DefaultConfig.
func ParseConfig(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return applyFile(DefaultConfig(), raw, meta)
}

func applyFile(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_pretty") {
		cfg.LogPretty = raw.LogPretty
	}
	if meta.IsDefined("read_buffer_size") {
		cfg.ReadBufferSize = raw.ReadBufferSize
	}
	if meta.IsDefined("receive_buffer_size") {
		cfg.ReceiveBufferSize = raw.ReceiveBufferSize
	}
	if meta.IsDefined("max_frame_payload") {
		cfg.MaxFramePayload = raw.MaxFramePayload
	}
	if meta.IsDefined("max_message_size") {
		cfg.MaxMessageSize = raw.MaxMessageSize
	}
	if meta.IsDefined("max_queued_writes") {
		cfg.MaxQueuedWrites = raw.MaxQueuedWrites
	}
	if meta.IsDefined("tcp_nodelay") {
		cfg.TCPNoDelay = raw.TCPNoDelay
	}
	if meta.IsDefined("socket_read_buffer") {
		cfg.SocketReadBuffer = raw.SocketReadBuffer
	}
	if meta.IsDefined("socket_write_buffer") {
		cfg.SocketWriteBuffer = raw.SocketWriteBuffer
	}

	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
		{"shutdown_timeout", raw.ShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.val))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("config missing listen_addr")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read_buffer_size must be positive")
	}
	if c.ReceiveBufferSize < 0 || c.MaxMessageSize < 0 || c.MaxQueuedWrites < 0 {
		return fmt.Errorf("sizes must not be negative")
	}
	if c.SocketReadBuffer < 0 || c.SocketWriteBuffer < 0 {
		return fmt.Errorf("socket buffer sizes must not be negative")
	}
	if c.HandshakeTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
