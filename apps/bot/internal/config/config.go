package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"nerts-lite/apps/bot/internal/ledger"
)

const (
	defaultSendInterval     = 100 * time.Millisecond
	defaultWaitTimeout      = 5 * time.Second
	defaultIdleTimeout      = time.Second
	defaultBoardLogInterval = 5 * time.Second
	defaultRelayURL         = "ws://127.0.0.1:7878/relay"
)

type Config struct {
	SelfID   uint64
	ServerID uint64
	RelayURL string
	Seed     int64

	SendInterval     time.Duration
	WaitTimeout      time.Duration
	IdleTimeout      time.Duration
	BoardLogInterval time.Duration
	FailFast         bool

	LogLevel string
	LogDev   bool

	Ledger ledger.Options

	// SpectatorAddr empty disables the spectator gateway.
	SpectatorAddr         string
	SpectatorPasswordHash string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from an arbitrary lookup, so tests need not touch
// the process environment.
func LoadFrom(getenv func(string) string) (Config, error) {
	e := env{get: getenv}
	cfg := Config{
		SelfID:   e.u64("NERTS_SELF_ID"),
		ServerID: e.u64("NERTS_SERVER_ID"),
		RelayURL: e.stringOr("NERTS_RELAY_URL", defaultRelayURL),
		Seed:     e.int64Or("NERTS_SEED", 0),

		SendInterval:     e.durationOr("NERTS_SEND_INTERVAL", defaultSendInterval),
		WaitTimeout:      e.durationOr("NERTS_WAIT_TIMEOUT", defaultWaitTimeout),
		IdleTimeout:      e.durationOr("NERTS_IDLE_TIMEOUT", defaultIdleTimeout),
		BoardLogInterval: e.durationOr("BOARD_LOG_INTERVAL", defaultBoardLogInterval),
		FailFast:         e.boolOr("NERTS_FAIL_FAST", true),

		LogLevel: e.stringOr("LOG_LEVEL", "info"),
		LogDev:   e.boolOr("LOG_DEV", false),

		Ledger: ledger.Options{
			Mode:      e.stringOr("LEDGER_MODE", ledger.ModeMemory),
			DSN:       firstNonEmpty(e.get("LEDGER_DATABASE_DSN"), e.get("DATABASE_URL")),
			LocalPath: e.stringOr("LEDGER_LOCAL_DATABASE_PATH", ""),
		},

		SpectatorAddr:         e.stringOr("SPECTATOR_ADDR", ""),
		SpectatorPasswordHash: e.stringOr("SPECTATOR_PASSWORD_HASH", ""),
	}
	if err := errors.Join(e.errs...); err != nil {
		return cfg, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.SelfID == 0 {
		return fmt.Errorf("NERTS_SELF_ID is required")
	}
	if c.ServerID == 0 {
		return fmt.Errorf("NERTS_SERVER_ID is required")
	}
	if c.SendInterval <= 0 {
		return fmt.Errorf("send interval must be positive, got %s", c.SendInterval)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", c.WaitTimeout)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.BoardLogInterval < 0 {
		return fmt.Errorf("board log interval cannot be negative, got %s", c.BoardLogInterval)
	}
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("relay url must be ws:// or wss://, got %q", c.RelayURL)
	}
	switch strings.ToLower(c.Ledger.Mode) {
	case ledger.ModeMemory, "mem", "noop", ledger.ModeSQLite, "local", ledger.ModePostgres, "postgresql", "db":
	default:
		return fmt.Errorf("invalid LEDGER_MODE %q", c.Ledger.Mode)
	}
	return nil
}

type env struct {
	get  func(string) string
	errs []error
}

func (e *env) raw(key string) string {
	return strings.TrimSpace(e.get(key))
}

func (e *env) stringOr(key, fallback string) string {
	if v := e.raw(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) u64(key string) uint64 {
	v := e.raw(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return 0
	}
	return n
}

func (e *env) int64Or(key string, fallback int64) int64 {
	v := e.raw(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

// durationOr accepts Go durations ("250ms") or bare milliseconds ("250").
func (e *env) durationOr(key string, fallback time.Duration) time.Duration {
	v := e.raw(key)
	if v == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (e *env) boolOr(key string, fallback bool) bool {
	v := e.raw(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
