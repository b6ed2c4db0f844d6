// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBOT_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Trading    TradingConfig    `toml:"trading"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the signing credential.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds venue endpoints and the per-call HTTP timeout.
type PolymarketConfig struct {
	ClobHost    string   `toml:"clob_host"`
	GammaHost   string   `toml:"gamma_host"`
	WsHost      string   `toml:"ws_host"`
	HTTPTimeout duration `toml:"http_timeout"`
}

// TradingConfig holds detection and execution parameters.
type TradingConfig struct {
	// Enabled selects live execution; false means simulation mode.
	Enabled bool `toml:"enabled"`
	// MinProfitPct is the minimum profit percentage for an opportunity.
	MinProfitPct float64 `toml:"min_profit_pct"`
	// MaxPosition is the maximum notional exposure per trade in USDC.
	MaxPosition float64 `toml:"max_position"`
	// PollInterval is the delay between detection cycles.
	PollInterval duration `toml:"poll_interval"`
	// MaxConcurrent caps simultaneous executions per cycle; it is also the
	// top-N selection size.
	MaxConcurrent int `toml:"max_concurrent"`
	// MarketLimit is the page size for the per-cycle market listing.
	MarketLimit int `toml:"market_limit"`
	// AutoClose unwinds a trade immediately after execution.
	AutoClose bool `toml:"auto_close"`
	// RevalidateQuotes re-checks cached live quotes immediately before the
	// buy leg is submitted and vetoes the opportunity if the pair sum has
	// moved to 1.0 or above. Requires redis and the ws feed.
	RevalidateQuotes bool `toml:"revalidate_quotes"`
}

// PostgresConfig holds trade-history database parameters. An empty DSN (with
// empty host) disables persistence.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// lock manager and quote cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object-storage parameters for the opportunity archiver. An
// empty Bucket disables archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Events         []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "2m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:    "https://clob.polymarket.com",
			GammaHost:   "https://gamma-api.polymarket.com",
			WsHost:      "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			HTTPTimeout: duration{10 * time.Second},
		},
		Trading: TradingConfig{
			Enabled:       false,
			MinProfitPct:  0.5,
			MaxPosition:   100.0,
			PollInterval:  duration{5 * time.Second},
			MaxConcurrent: 5,
			MarketLimit:   50,
			AutoClose:     true,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "arbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — a credential source is required for live trading only;
	// simulation mode never signs.
	if c.Trading.Enabled {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when trading is enabled")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.HTTPTimeout.Duration <= 0 {
		errs = append(errs, "polymarket: http_timeout must be positive")
	}

	if c.Trading.MinProfitPct < 0 {
		errs = append(errs, fmt.Sprintf("trading: min_profit_pct must be >= 0, got %g", c.Trading.MinProfitPct))
	}
	if c.Trading.MaxPosition <= 0 {
		errs = append(errs, fmt.Sprintf("trading: max_position must be positive, got %g", c.Trading.MaxPosition))
	}
	if c.Trading.PollInterval.Duration <= 0 {
		errs = append(errs, "trading: poll_interval must be positive")
	}
	if c.Trading.MaxConcurrent < 1 {
		errs = append(errs, fmt.Sprintf("trading: max_concurrent must be >= 1, got %d", c.Trading.MaxConcurrent))
	}
	if c.Trading.MarketLimit < 1 {
		errs = append(errs, fmt.Sprintf("trading: market_limit must be >= 1, got %d", c.Trading.MarketLimit))
	}
	if c.Trading.RevalidateQuotes && c.Redis.Addr == "" {
		errs = append(errs, "trading: revalidate_quotes requires redis.addr")
	}

	if c.PostgresEnabled() && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	// Notify — token and chat id must be set together, or both empty.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PostgresEnabled reports whether a trade-history database is configured.
func (c *Config) PostgresEnabled() bool {
	return strings.TrimSpace(c.Postgres.DSN) != "" || c.Postgres.Host != ""
}

// RedisEnabled reports whether redis-backed locking and quote caching are
// configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// S3Enabled reports whether the opportunity archiver is configured.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}
