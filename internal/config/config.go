// Package config provides configuration management for the dashboard gateway.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dashboard gateway.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Cluster      ClusterConfig      `mapstructure:"cluster"`
	Interceptor  InterceptorConfig  `mapstructure:"interceptor"`
	RateLimiter  RateLimiterConfig  `mapstructure:"rate_limiter"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Notification NotificationConfig `mapstructure:"notification"`
	Web          WebConfig          `mapstructure:"web"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ClusterConfig describes how to reach the cluster's REST API.
type ClusterConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	StatusPath      string        `mapstructure:"status_path"`
	BootTimeout     time.Duration `mapstructure:"boot_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// InterceptorConfig toggles the outbound interceptor policies.
type InterceptorConfig struct {
	AuthHeader     string   `mapstructure:"auth_header"`
	AuthToken      string   `mapstructure:"auth_token"`
	CachePaths     []string `mapstructure:"cache_paths"`
	Notify         bool     `mapstructure:"notify"`
	LogRequests    bool     `mapstructure:"log_requests"`
	TrackReachable bool     `mapstructure:"track_reachable"`
}

// RateLimiterConfig holds outbound rate limiter configuration.
type RateLimiterConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

// RedisConfig holds Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NotificationConfig bounds operator notifications.
type NotificationConfig struct {
	MaxStack    int           `mapstructure:"max_stack"`
	DedupWindow time.Duration `mapstructure:"dedup_window"`
}

// WebConfig holds dashboard presentation defaults.
type WebConfig struct {
	Locale       string `mapstructure:"locale"`
	Theme        string `mapstructure:"theme"`
	IconManifest string `mapstructure:"icon_manifest"`
	LogDownload  string `mapstructure:"log_download"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/flink-dashboard/")
	}

	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine, defaults and env still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("cluster.endpoint", "http://localhost:8081")
	v.SetDefault("cluster.status_path", "/config")
	v.SetDefault("cluster.boot_timeout", "5s")
	v.SetDefault("cluster.request_timeout", "10s")
	v.SetDefault("cluster.refresh_interval", "3s")

	v.SetDefault("interceptor.auth_header", "Authorization")
	v.SetDefault("interceptor.auth_token", "")
	v.SetDefault("interceptor.cache_paths", []string{"/overview"})
	v.SetDefault("interceptor.notify", true)
	v.SetDefault("interceptor.log_requests", true)
	v.SetDefault("interceptor.track_reachable", true)

	v.SetDefault("rate_limiter.enabled", true)
	v.SetDefault("rate_limiter.requests_per_second", 50.0)
	v.SetDefault("rate_limiter.burst_size", 20)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "2s")
	v.SetDefault("cache.max_size", 256)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "flink-dashboard:")

	v.SetDefault("notification.max_stack", 1)
	v.SetDefault("notification.dedup_window", "10s")

	v.SetDefault("web.locale", "en-US")
	v.SetDefault("web.theme", "default")
	v.SetDefault("web.icon_manifest", "")
	v.SetDefault("web.log_download", "/api/cluster/jobmanager/log")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cluster.Endpoint == "" {
		return fmt.Errorf("cluster endpoint is required")
	}
	u, err := url.Parse(c.Cluster.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid cluster endpoint: %q", c.Cluster.Endpoint)
	}
	if isLoopback(u.Hostname()) && endpointPort(u) == c.Server.Port {
		return fmt.Errorf("cluster endpoint %q points at the dashboard itself (server port %d)", c.Cluster.Endpoint, c.Server.Port)
	}
	if !strings.HasPrefix(c.Cluster.StatusPath, "/") {
		return fmt.Errorf("cluster status path must start with '/': %q", c.Cluster.StatusPath)
	}
	if c.Cluster.BootTimeout <= 0 {
		return fmt.Errorf("cluster boot timeout must be positive")
	}
	if c.Cluster.RequestTimeout <= 0 {
		return fmt.Errorf("cluster request timeout must be positive")
	}

	if c.RateLimiter.Enabled {
		if c.RateLimiter.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limiter requests per second must be positive")
		}
		if c.RateLimiter.BurstSize <= 0 {
			return fmt.Errorf("rate limiter burst size must be positive")
		}
	}

	switch c.Cache.Backend {
	case "none":
	case "memory":
		if c.Cache.MaxSize <= 0 {
			return fmt.Errorf("cache max size must be positive")
		}
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Notification.MaxStack <= 0 {
		return fmt.Errorf("notification max stack must be positive")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
		}
	}

	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

func endpointPort(u *url.URL) int {
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return -1
		}
		return n
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}

// StatusURL returns the absolute URL of the cluster status endpoint.
func (c ClusterConfig) StatusURL() string {
	return strings.TrimSuffix(c.Endpoint, "/") + c.StatusPath
}

// RedisAddr returns the host:port address of the Redis server.
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
