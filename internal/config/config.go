// Package config resolves the CLI settings: built-in defaults, then an optional TOML
// file, then TALESPIN_* environment variables (optionally seeded from a .env file).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/sonirico/talespin"
)

const (
	EnvHost            = "TALESPIN_HOST"
	EnvSecure          = "TALESPIN_SECURE"
	EnvLogLevel        = "TALESPIN_LOG_LEVEL"
	EnvKeepAlive       = "TALESPIN_KEEP_ALIVE"
	EnvReopenInterval  = "TALESPIN_REOPEN_INTERVAL"
	EnvOutboxLimit     = "TALESPIN_OUTBOX_LIMIT"
	EnvLobbyTimeout    = "TALESPIN_LOBBY_TIMEOUT"
	EnvMetricsAddr     = "TALESPIN_METRICS_ADDR"
	EnvReconnectPolicy = "TALESPIN_RECONNECT_POLICY"
	EnvMaxAttempts     = "TALESPIN_RECONNECT_MAX_ATTEMPTS"
)

const (
	PolicyForever = "forever"
	PolicyBackoff = "backoff"
)

var ErrInvalid = errors.New("invalid config")

type Reconnect struct {
	Policy       string
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}

type Config struct {
	Host           string
	Secure         bool
	LogLevel       string
	KeepAlive      time.Duration
	ReopenInterval time.Duration
	OutboxLimit    int
	LobbyTimeout   time.Duration
	MetricsAddr    string
	Reconnect      Reconnect
}

func Default() Config {
	backoff := talespin.DefaultBackoffConfig()
	return Config{
		Host:         "localhost:8081",
		LogLevel:     "info",
		LobbyTimeout: 10 * time.Second,
		Reconnect: Reconnect{
			Policy:       PolicyForever,
			InitialDelay: backoff.InitialDelay,
			MaxDelay:     backoff.MaxDelay,
			Multiplier:   backoff.Multiplier,
		},
	}
}

type fileReconnect struct {
	Policy       string  `toml:"policy"`
	InitialDelay string  `toml:"initial_delay"`
	MaxDelay     string  `toml:"max_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxAttempts  int     `toml:"max_attempts"`
}

type fileConfig struct {
	Host           string        `toml:"host"`
	Secure         bool          `toml:"secure"`
	LogLevel       string        `toml:"log_level"`
	KeepAlive      string        `toml:"keep_alive"`
	ReopenInterval string        `toml:"reopen_interval"`
	OutboxLimit    int           `toml:"outbox_limit"`
	LobbyTimeout   string        `toml:"lobby_timeout"`
	MetricsAddr    string        `toml:"metrics_addr"`
	Reconnect      fileReconnect `toml:"reconnect"`
}

// LoadDotEnv loads paths into the process environment without overriding variables
// that are already set. With no paths it reads ./.env when present.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return nil
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Wrap(err, "load .env")
	}
	return nil
}

// Load resolves the configuration. An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("secure") {
		cfg.Secure = raw.Secure
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("outbox_limit") {
		cfg.OutboxLimit = raw.OutboxLimit
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"keep_alive", raw.KeepAlive, &cfg.KeepAlive},
		{"reopen_interval", raw.ReopenInterval, &cfg.ReopenInterval},
		{"lobby_timeout", raw.LobbyTimeout, &cfg.LobbyTimeout},
		{"reconnect.initial_delay", raw.Reconnect.InitialDelay, &cfg.Reconnect.InitialDelay},
		{"reconnect.max_delay", raw.Reconnect.MaxDelay, &cfg.Reconnect.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return errors.Wrapf(err, "parse %s", d.key)
		}
		*d.dst = v
	}

	if meta.IsDefined("reconnect", "policy") {
		cfg.Reconnect.Policy = strings.ToLower(strings.TrimSpace(raw.Reconnect.Policy))
	}
	if meta.IsDefined("reconnect", "multiplier") {
		cfg.Reconnect.Multiplier = raw.Reconnect.Multiplier
	}
	if meta.IsDefined("reconnect", "max_attempts") {
		cfg.Reconnect.MaxAttempts = raw.Reconnect.MaxAttempts
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := lookup(EnvSecure); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvSecure)
		}
		cfg.Secure = b
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookup(EnvReconnectPolicy); ok {
		cfg.Reconnect.Policy = strings.ToLower(v)
	}

	ints := []struct {
		env string
		dst *int
	}{
		{EnvOutboxLimit, &cfg.OutboxLimit},
		{EnvMaxAttempts, &cfg.Reconnect.MaxAttempts},
	}
	for _, i := range ints {
		v, ok := lookup(i.env)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", i.env)
		}
		*i.dst = n
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvKeepAlive, &cfg.KeepAlive},
		{EnvReopenInterval, &cfg.ReopenInterval},
		{EnvLobbyTimeout, &cfg.LobbyTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.env)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", d.env)
		}
		*d.dst = parsed
	}
	return nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.Wrap(ErrInvalid, "host is empty")
	}
	if _, err := c.ZapLevel(); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	switch c.Reconnect.Policy {
	case PolicyForever, PolicyBackoff:
	default:
		return errors.Wrapf(ErrInvalid, "unknown reconnect policy %q", c.Reconnect.Policy)
	}
	if c.OutboxLimit < 0 || c.Reconnect.MaxAttempts < 0 {
		return errors.Wrap(ErrInvalid, "limits cannot be negative")
	}
	return nil
}

func (c Config) ZapLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.LogLevel)
}

func (c Config) Endpoints() talespin.Endpoints {
	return talespin.Endpoints{Host: c.Host, Secure: c.Secure}
}

// Strategy builds a fresh reconnect strategy. Strategies are stateful, so call it once
// per session.
func (c Config) Strategy() talespin.ReconnectStrategy {
	if c.Reconnect.Policy != PolicyBackoff {
		return talespin.RetryForever()
	}
	backoff := talespin.DefaultBackoffConfig()
	backoff.InitialDelay = c.Reconnect.InitialDelay
	backoff.MaxDelay = c.Reconnect.MaxDelay
	backoff.Multiplier = c.Reconnect.Multiplier
	backoff.MaxAttempts = c.Reconnect.MaxAttempts
	return talespin.ExponentialBackoff(backoff)
}

// SessionOptions translates the config into session options.
func (c Config) SessionOptions() []talespin.SessionOption {
	opts := []talespin.SessionOption{
		talespin.WithReconnectStrategy(c.Strategy()),
		talespin.WithOutboxLimit(c.OutboxLimit),
	}
	if c.KeepAlive > 0 {
		opts = append(opts, talespin.WithKeepAlive(c.KeepAlive))
	}
	if c.ReopenInterval > 0 {
		opts = append(opts, talespin.WithReopenInterval(c.ReopenInterval))
	}
	return opts
}
