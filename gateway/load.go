package gateway

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig reads a Config from path (if non-empty) plus environment
// variables prefixed GATEWAY_, nested keys separated by __ (e.g.
// GATEWAY_CTP__BROKER_ID, GATEWAY_RECONNECT__MAX_INTERVAL). Explicit
// config-file values win over defaults; environment variables win over
// the config file. The returned Config is already validated.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	setConfigDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("max_subscriptions", d.MaxSubscriptions)
	v.SetDefault("tick_cache_seconds", d.TickCacheSeconds)
	v.SetDefault("gateway_type", d.GatewayType)
	v.SetDefault("reconnect.initial_interval", d.Reconnect.InitialInterval)
	v.SetDefault("reconnect.max_interval", d.Reconnect.MaxInterval)
	v.SetDefault("reconnect.multiplier", d.Reconnect.Multiplier)
	v.SetDefault("reconnect.max_attempts", d.Reconnect.MaxAttempts)
	v.SetDefault("reconnect.alert_threshold", d.Reconnect.AlertThreshold)
	v.SetDefault("data_filter.filter_invalid_price", d.DataFilter.FilterInvalidPrice)
	v.SetDefault("data_filter.filter_zero_volume", d.DataFilter.FilterZeroVolume)
	v.SetDefault("data_filter.stale_threshold_seconds", d.DataFilter.StaleThresholdSeconds)
	v.SetDefault("data_filter.log_dirty_data", d.DataFilter.LogDirtyData)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.channel_prefix", d.Redis.ChannelPrefix)
	v.SetDefault("redis.max_connections", d.Redis.MaxConnections)
	v.SetDefault("archive.batch_size", d.Archive.BatchSize)
	v.SetDefault("archive.flush_interval", d.Archive.FlushInterval)
}
