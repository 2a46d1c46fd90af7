package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything the daemon needs at startup. Values come from
// built-in defaults, then an optional TOML file (OPTA_CONFIG), then OPTA_*
// environment overrides.
type Config struct {
	RateHz           int
	RingCapacity     int
	ProcessLimit     int
	FanLimit         int
	NameLimitBytes   int
	SocketPath       string
	PipeName         string
	ProbeListenAddr  string
	DiskPath         string
	ErrorBackoff     time.Duration
	ConnWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	LogJSON          bool
	LogLevel         string
}

// DefaultSocketPath is the well-known streaming endpoint on Unix hosts.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "opta-metrics.sock")
}

// DefaultPipeName is the named-pipe equivalent on Windows.
const DefaultPipeName = `\\.\pipe\opta-metrics`

// Load assembles the configuration. A TOML file with unrecognized keys is
// rejected rather than silently ignored.
func Load() (Config, error) {
	cfg := Config{
		RateHz:           25,
		RingCapacity:     16,
		ProcessLimit:     10,
		FanLimit:         4,
		NameLimitBytes:   64,
		SocketPath:       DefaultSocketPath(),
		PipeName:         DefaultPipeName,
		ProbeListenAddr:  "127.0.0.1:7443",
		DiskPath:         "/",
		ErrorBackoff:     1500 * time.Millisecond,
		ConnWriteTimeout: 100 * time.Millisecond,
		ShutdownTimeout:  20 * time.Second,
		LogJSON:          false,
		LogLevel:         "info",
	}

	if path := env("OPTA_CONFIG", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.RateHz = envInt("OPTA_RATE_HZ", cfg.RateHz)
	cfg.RingCapacity = envInt("OPTA_RING_CAPACITY", cfg.RingCapacity)
	cfg.ProcessLimit = envInt("OPTA_PROCESS_LIMIT", cfg.ProcessLimit)
	cfg.FanLimit = envInt("OPTA_FAN_LIMIT", cfg.FanLimit)
	cfg.NameLimitBytes = envInt("OPTA_NAME_LIMIT_BYTES", cfg.NameLimitBytes)
	cfg.SocketPath = env("OPTA_SOCKET_PATH", cfg.SocketPath)
	cfg.PipeName = env("OPTA_PIPE_NAME", cfg.PipeName)
	cfg.ProbeListenAddr = env("OPTA_PROBE_ADDR", cfg.ProbeListenAddr)
	cfg.DiskPath = env("OPTA_DISK_PATH", cfg.DiskPath)
	cfg.ErrorBackoff = envDuration("OPTA_ERROR_BACKOFF", cfg.ErrorBackoff)
	cfg.ConnWriteTimeout = envDuration("OPTA_CONN_WRITE_TIMEOUT", cfg.ConnWriteTimeout)
	cfg.ShutdownTimeout = envDuration("OPTA_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.LogJSON = envBool("OPTA_LOG_JSON", cfg.LogJSON)
	cfg.LogLevel = strings.ToLower(env("OPTA_LOG_LEVEL", cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig mirrors Config for TOML decoding. Durations are strings in
// time.ParseDuration form. Pointers distinguish absent keys from zero values.
type fileConfig struct {
	RateHz           *int    `toml:"rate_hz"`
	RingCapacity     *int    `toml:"ring_capacity"`
	ProcessLimit     *int    `toml:"process_limit"`
	FanLimit         *int    `toml:"fan_limit"`
	NameLimitBytes   *int    `toml:"name_limit_bytes"`
	SocketPath       *string `toml:"socket_path"`
	PipeName         *string `toml:"pipe_name"`
	ProbeListenAddr  *string `toml:"probe_addr"`
	DiskPath         *string `toml:"disk_path"`
	ErrorBackoff     *string `toml:"error_backoff"`
	ConnWriteTimeout *string `toml:"conn_write_timeout"`
	ShutdownTimeout  *string `toml:"shutdown_timeout"`
	LogJSON          *bool   `toml:"log_json"`
	LogLevel         *string `toml:"log_level"`
}

func loadFile(path string, cfg *Config) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if fc.RateHz != nil {
		cfg.RateHz = *fc.RateHz
	}
	if fc.RingCapacity != nil {
		cfg.RingCapacity = *fc.RingCapacity
	}
	if fc.ProcessLimit != nil {
		cfg.ProcessLimit = *fc.ProcessLimit
	}
	if fc.FanLimit != nil {
		cfg.FanLimit = *fc.FanLimit
	}
	if fc.NameLimitBytes != nil {
		cfg.NameLimitBytes = *fc.NameLimitBytes
	}
	if fc.SocketPath != nil {
		cfg.SocketPath = *fc.SocketPath
	}
	if fc.PipeName != nil {
		cfg.PipeName = *fc.PipeName
	}
	if fc.ProbeListenAddr != nil {
		cfg.ProbeListenAddr = *fc.ProbeListenAddr
	}
	if fc.DiskPath != nil {
		cfg.DiskPath = *fc.DiskPath
	}
	if err := applyDuration(fc.ErrorBackoff, "error_backoff", &cfg.ErrorBackoff); err != nil {
		return err
	}
	if err := applyDuration(fc.ConnWriteTimeout, "conn_write_timeout", &cfg.ConnWriteTimeout); err != nil {
		return err
	}
	if err := applyDuration(fc.ShutdownTimeout, "shutdown_timeout", &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if fc.LogJSON != nil {
		cfg.LogJSON = *fc.LogJSON
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(*fc.LogLevel)
	}
	return nil
}

func applyDuration(raw *string, key string, dst *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("config key %s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c Config) Validate() error {
	if c.RateHz < 0 {
		return errors.New("rate_hz must be >= 0 (0 disables rate gating)")
	}
	if c.RingCapacity <= 0 {
		return errors.New("ring_capacity must be > 0")
	}
	if c.ProcessLimit <= 0 || c.ProcessLimit > 255 {
		return errors.New("process_limit must be in 1..255")
	}
	if c.FanLimit <= 0 || c.FanLimit > 255 {
		return errors.New("fan_limit must be in 1..255")
	}
	if c.NameLimitBytes <= 0 || c.NameLimitBytes > 255 {
		return errors.New("name_limit_bytes must be in 1..255")
	}
	if strings.TrimSpace(c.SocketPath) == "" {
		return errors.New("socket_path is required")
	}
	if strings.TrimSpace(c.PipeName) == "" {
		return errors.New("pipe_name is required")
	}
	if strings.TrimSpace(c.ProbeListenAddr) == "" {
		return errors.New("probe_addr is required")
	}
	if c.ErrorBackoff <= 0 {
		return errors.New("error_backoff must be > 0")
	}
	if c.ConnWriteTimeout <= 0 {
		return errors.New("conn_write_timeout must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be > 0")
	}
	return nil
}

// PublishInterval is the gap the producer ticks at. Ungated configurations
// still tick at the default 25Hz so the sampler does not spin.
func (c Config) PublishInterval() time.Duration {
	if c.RateHz > 0 {
		return time.Second / time.Duration(c.RateHz)
	}
	return 40 * time.Millisecond
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
