package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 进程配置。启动时装载一次，之后只读；
// 密钥只从环境变量读，不落配置文件。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Keys     KeysConfig     `mapstructure:"keys"`
	Gateways GatewaysConfig `mapstructure:"gateways"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug/release
}

// HTTPConfig 出站HTTP客户端配置
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// KeysConfig 各数据源API密钥，仅来自环境变量
type KeysConfig struct {
	AlphaVantage string `mapstructure:"alpha_vantage"`
	Tiingo       string `mapstructure:"tiingo"`
	Finnhub      string `mapstructure:"finnhub"`
}

// GatewaysConfig 本地数据网关地址。为空表示对应数据源不可用。
type GatewaysConfig struct {
	AKTools  string `mapstructure:"aktools"`
	Baostock string `mapstructure:"baostock"`
}

// ResolverConfig K线解析策略
type ResolverConfig struct {
	LookbackDays      int    `mapstructure:"lookback_days"`
	RejectEmptyWindow bool   `mapstructure:"reject_empty_window"`
	WarmCron          string `mapstructure:"warm_cron"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

// CacheConfig 股票列表缓存配置
type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory/redis
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis连接配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 读取配置。path为空时按惯例位置找config.yaml，找不到用缺省值。
// 环境变量覆盖同名配置项，密钥类环境变量单独绑定。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("STOCKLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 密钥与网关沿用各生态的惯用变量名
	bindings := map[string]string{
		"keys.alpha_vantage": "ALPHA_VANTAGE_API_KEY",
		"keys.tiingo":        "TIINGO_API_KEY",
		"keys.finnhub":       "FINNHUB_API_KEY",
		"gateways.aktools":   "AKTOOLS_URL",
		"gateways.baostock":  "BAOSTOCK_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s failed: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// 未显式指定配置文件时，找不到文件就用缺省值
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Resolver.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive: %d", c.Resolver.LookbackDays)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("resolver.lookback_days", 30)
	v.SetDefault("resolver.reject_empty_window", true)
	v.SetDefault("resolver.warm_cron", "0 30 8 * * *")
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_requests", 5)
	v.SetDefault("breaker.interval", 60*time.Second)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 12*time.Hour)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.prefix", "stockline:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
