package gateway

import (
	"fmt"
	"regexp"
	"time"
)

// GatewayType selects which front-end protocol family a Config targets
// (§6). ib is reserved: the core has no support for it.
type GatewayType string

const (
	GatewayCTP    GatewayType = "ctp"
	GatewaySimnow GatewayType = "simnow"
	GatewayIB     GatewayType = "ib"
)

var frontAddrPattern = regexp.MustCompile(`^tcp://[\w.\-]+:\d+$`)

// CtpConfig carries the CTP/SimNow-specific login parameters (§6).
// Password is held as a plain string at this layer; callers are expected
// to source it from a secret store and the sanitization helper (§4.X)
// ensures it never appears unredacted in logged error context.
type CtpConfig struct {
	BrokerID   string `mapstructure:"broker_id"`
	InvestorID string `mapstructure:"investor_id"`
	Password   string `mapstructure:"password"`
	FrontAddr  string `mapstructure:"front_addr"`
	AuthCode   string `mapstructure:"auth_code"`
	AppID      string `mapstructure:"app_id"`
}

func (c *CtpConfig) validate() error {
	if c.BrokerID == "" {
		return fmt.Errorf("ctp.broker_id must not be empty")
	}
	if c.InvestorID == "" {
		return fmt.Errorf("ctp.investor_id must not be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("ctp.password must not be empty")
	}
	if !frontAddrPattern.MatchString(c.FrontAddr) {
		return fmt.Errorf("ctp.front_addr %q does not match ^tcp://[host-or-ip]:[port]$", c.FrontAddr)
	}
	return nil
}

// ReconnectConfig tunes the exponential-backoff reconnect loop (§4.D, §6).
type ReconnectConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxAttempts     int           `mapstructure:"max_attempts"` // 0 = infinite
	AlertThreshold  int           `mapstructure:"alert_threshold"`
}

func defaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialInterval: time.Second,
		MaxInterval:     60 * time.Second,
		Multiplier:      2.0,
		MaxAttempts:     0,
		AlertThreshold:  10,
	}
}

func (c *ReconnectConfig) validate() error {
	if c.InitialInterval < 100*time.Millisecond || c.InitialInterval > 10*time.Second {
		return fmt.Errorf("reconnect.initial_interval must be within [0.1s, 10s]")
	}
	if c.MaxInterval < time.Second || c.MaxInterval > 300*time.Second {
		return fmt.Errorf("reconnect.max_interval must be within [1s, 300s]")
	}
	if c.Multiplier < 1.1 || c.Multiplier > 5.0 {
		return fmt.Errorf("reconnect.multiplier must be within [1.1, 5.0]")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must be >= 0")
	}
	if c.AlertThreshold < 1 {
		return fmt.Errorf("reconnect.alert_threshold must be >= 1")
	}
	return nil
}

// DataFilterConfig tunes tick validation and logging behavior (§4.A, §6).
type DataFilterConfig struct {
	FilterInvalidPrice    bool          `mapstructure:"filter_invalid_price"`
	FilterZeroVolume      bool          `mapstructure:"filter_zero_volume"`
	StaleThresholdSeconds time.Duration `mapstructure:"stale_threshold_seconds"`
	LogDirtyData          bool          `mapstructure:"log_dirty_data"`
}

func defaultDataFilterConfig() DataFilterConfig {
	return DataFilterConfig{
		FilterInvalidPrice:    true,
		FilterZeroVolume:      false,
		StaleThresholdSeconds: time.Hour,
		LogDirtyData:          true,
	}
}

func (c *DataFilterConfig) validate() error {
	if c.StaleThresholdSeconds < 60*time.Second || c.StaleThresholdSeconds > 86400*time.Second {
		return fmt.Errorf("data_filter.stale_threshold_seconds must be within [60s, 86400s]")
	}
	return nil
}

// RedisConfig is supplemented from original_source's config.py; the core
// never reads it, it exists so gateway/sink/redisq can be constructed
// directly from the same config record the gateway was (SPEC_FULL.md §C).
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
	MaxConnections int   `mapstructure:"max_connections"`
}

func defaultRedisConfig() RedisConfig {
	return RedisConfig{Host: "localhost", Port: 6379, ChannelPrefix: "market:", MaxConnections: 10}
}

// ArchiveConfig is supplemented from original_source's ClickHouseConfig,
// renamed and generalized to a plain SQL archive sink since no
// ClickHouse driver is available in the example pack (SPEC_FULL.md §B).
type ArchiveConfig struct {
	DSN           string        `mapstructure:"dsn"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

func defaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{BatchSize: 1000, FlushInterval: time.Second}
}

// Config is the top-level, validated configuration record supplied at
// Gateway construction (§6). Construction failures are reported by
// Validate, not panics.
type Config struct {
	GatewayType       GatewayType   `mapstructure:"gateway_type"`
	GatewayName       string        `mapstructure:"gateway_name"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	MaxSubscriptions  int           `mapstructure:"max_subscriptions"`
	TickCacheSeconds  time.Duration `mapstructure:"tick_cache_seconds"`

	CTP        *CtpConfig        `mapstructure:"ctp"`
	Reconnect  ReconnectConfig   `mapstructure:"reconnect"`
	DataFilter DataFilterConfig  `mapstructure:"data_filter"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Archive    ArchiveConfig     `mapstructure:"archive"`

	// UseSimulatedFront forces the offline fallback front-end (§9)
	// instead of dialing CTP.FrontAddr, for tests and demos.
	UseSimulatedFront bool `mapstructure:"use_simulated_front"`
}

// DefaultConfig returns a Config populated with every documented default
// (§6), with GatewayType set to GatewayCTP, GatewayName left blank and
// CTP left nil — the caller must supply GatewayName and CTP for Validate
// to pass.
func DefaultConfig() Config {
	return Config{
		GatewayType:      GatewayCTP,
		ConnectTimeout:   10 * time.Second,
		MaxSubscriptions: 1000,
		TickCacheSeconds: 30 * time.Second,
		Reconnect:        defaultReconnectConfig(),
		DataFilter:       defaultDataFilterConfig(),
		Redis:            defaultRedisConfig(),
		Archive:          defaultArchiveConfig(),
	}
}

// Validate checks every constraint in §6, returning the first violation
// found. CTP configuration is required whenever GatewayType is ctp or
// simnow; its absence is itself a construction error.
func (c *Config) Validate() error {
	if len(c.GatewayName) == 0 || len(c.GatewayName) > 50 {
		return fmt.Errorf("gateway_name must be 1-50 characters")
	}
	if c.ConnectTimeout < time.Second || c.ConnectTimeout > 60*time.Second {
		return fmt.Errorf("connect_timeout must be within [1s, 60s]")
	}
	if c.MaxSubscriptions < 1 || c.MaxSubscriptions > 5000 {
		return fmt.Errorf("max_subscriptions must be within [1, 5000]")
	}
	if c.TickCacheSeconds < 10*time.Second || c.TickCacheSeconds > 300*time.Second {
		return fmt.Errorf("tick_cache_seconds must be within [10s, 300s]")
	}

	switch c.GatewayType {
	case GatewayCTP, GatewaySimnow:
		if c.CTP == nil {
			return fmt.Errorf("%s gateway requires ctp configuration", c.GatewayType)
		}
		if err := c.CTP.validate(); err != nil {
			return err
		}
	case GatewayIB:
		return fmt.Errorf("gateway_type ib is reserved, no core support")
	default:
		return fmt.Errorf("unknown gateway_type: %q", c.GatewayType)
	}

	if err := c.Reconnect.validate(); err != nil {
		return err
	}
	if err := c.DataFilter.validate(); err != nil {
		return err
	}
	return nil
}
