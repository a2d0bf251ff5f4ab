package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	ServiceHost           string        `mapstructure:"service_host"`
	ServicePortKey        string        `mapstructure:"service_port_key"`
	ServiceFallbackPort   int           `mapstructure:"service_fallback_port"`
	ServiceTimeoutSeconds int64         `mapstructure:"service_timeout_seconds"`
	HTTPTimeoutSeconds    int64         `mapstructure:"http_timeout_seconds"`
	ServiceTimeout        time.Duration `mapstructure:"-"`
	HTTPTimeout           time.Duration `mapstructure:"-"`

	ProfilesFile string `mapstructure:"profiles_file"`

	StoreType          string        `mapstructure:"store_type"`
	StorePath          string        `mapstructure:"store_path"`
	StoreEnvPrefix     string        `mapstructure:"store_env_prefix"`
	PropertyTTLSeconds int64         `mapstructure:"property_ttl_seconds"`
	PropertyTTL        time.Duration `mapstructure:"-"`

	CacheType            string        `mapstructure:"cache_type"`
	CachePath            string        `mapstructure:"cache_path"`
	CacheTTLSeconds      int64         `mapstructure:"cache_ttl_seconds"`
	CacheCleanupSeconds  int64         `mapstructure:"cache_cleanup_interval_seconds"`
	CacheTTL             time.Duration `mapstructure:"-"`
	CacheCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "metadata.tmdb.cn.optimization")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("service_host", "127.0.0.1")
	v.SetDefault("service_port_key", "TMDB_OPTIMIZATION_SERVICE_PORT")
	v.SetDefault("service_fallback_port", 56789)
	v.SetDefault("service_timeout_seconds", 35) // seconds
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("profiles_file", "./configs/profiles.yaml")
	v.SetDefault("store_type", "env")
	v.SetDefault("store_path", "./data/properties.db")
	v.SetDefault("store_env_prefix", "")
	v.SetDefault("property_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("cache_type", "none")
	v.SetDefault("cache_path", "./data/responses.db")
	v.SetDefault("cache_ttl_seconds", int64((6*time.Hour)/time.Second))
	v.SetDefault("cache_cleanup_interval_seconds", int64(time.Hour/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ServiceFallbackPort < 1 || cfg.ServiceFallbackPort > 65535 {
		return nil, fmt.Errorf("invalid service_fallback_port (must be 1-65535)")
	}
	if cfg.ServiceTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid service_timeout_seconds (must be positive seconds)")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.ServiceTimeout = time.Duration(cfg.ServiceTimeoutSeconds) * time.Second
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.PropertyTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid property_ttl_seconds (must be positive seconds)")
	}
	cfg.PropertyTTL = time.Duration(cfg.PropertyTTLSeconds) * time.Second

	if cfg.CacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid cache_ttl_seconds (must be positive seconds)")
	}
	if cfg.CacheCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid cache_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second
	cfg.CacheCleanupInterval = time.Duration(cfg.CacheCleanupSeconds) * time.Second

	return &cfg, nil
}
