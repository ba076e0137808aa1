// Package config provides configuration loading, defaults, and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// AppID 小程序 appid
	AppID string `mapstructure:"app_id"`
	// Secret 小程序 appsecret
	Secret string `mapstructure:"secret"`

	HTTP       HTTPConfig       `mapstructure:"http"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Credential CredentialConfig `mapstructure:"credential"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
}

type HTTPConfig struct {
	// BaseURL 接口域名，默认 https://api.weixin.qq.com
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds 请求总超时（秒）
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// ProxyURL 代理地址，支持 http/https/socks5
	ProxyURL  string `mapstructure:"proxy_url"`
	UserAgent string `mapstructure:"user_agent"`
}

type RetryConfig struct {
	// MaxAttempts 总尝试次数（含首次）
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseDelayMillis 线性退避基础间隔（毫秒）
	BaseDelayMillis int `mapstructure:"base_delay_millis"`
	// JitterFraction 抖动比例，0-1
	JitterFraction float64 `mapstructure:"jitter_fraction"`
}

type CredentialConfig struct {
	// RefreshBufferSeconds 过期前多久开始提前刷新（秒）
	RefreshBufferSeconds int `mapstructure:"refresh_buffer_seconds"`
	// UseStableToken 使用 stable_token 接口换取凭证
	UseStableToken bool `mapstructure:"use_stable_token"`
}

// RedisConfig 可选的跨进程凭证缓存配置。Addr 为空时不启用。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyPrefix Redis key 前缀，用于多环境隔离
	KeyPrefix string `mapstructure:"key_prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (h *HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

func (r *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMillis) * time.Millisecond
}

func (c *CredentialConfig) RefreshBuffer() time.Duration {
	return time.Duration(c.RefreshBufferSeconds) * time.Second
}

// Load 读取并校验配置。
//
// 查找顺序：WECHAT_CONFIG_DIR 环境变量指定目录、当前目录、./config。
// 所有字段都可用 WECHAT_ 前缀的环境变量覆盖，例如 WECHAT_APP_ID、
// WECHAT_HTTP_TIMEOUT_SECONDS。
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("wechat")
	v.SetConfigType("yaml")

	if dir := os.Getenv("WECHAT_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// 环境变量支持
	v.SetEnvPrefix("WECHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 默认值
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config error: %w", err)
		}
		// 配置文件不存在时使用默认值
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}

	cfg.AppID = strings.TrimSpace(cfg.AppID)
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	cfg.HTTP.BaseURL = strings.TrimSpace(cfg.HTTP.BaseURL)
	cfg.HTTP.ProxyURL = strings.TrimSpace(cfg.HTTP.ProxyURL)
	cfg.Redis.Addr = strings.TrimSpace(cfg.Redis.Addr)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config error: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// 空默认值让 AutomaticEnv 的键对 Unmarshal 可见
	v.SetDefault("app_id", "")
	v.SetDefault("secret", "")

	v.SetDefault("http.base_url", "https://api.weixin.qq.com")
	v.SetDefault("http.proxy_url", "")
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.timeout_seconds", 30)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_millis", 100)
	v.SetDefault("retry.jitter_fraction", 0.5)

	v.SetDefault("credential.refresh_buffer_seconds", 300)
	v.SetDefault("credential.use_stable_token", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "wechat:mp")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate 校验配置取值范围。
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("app_id is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelayMillis < 0 {
		return fmt.Errorf("retry.base_delay_millis must not be negative")
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		return fmt.Errorf("retry.jitter_fraction must be in [0, 1]")
	}
	if c.Credential.RefreshBufferSeconds < 0 {
		return fmt.Errorf("credential.refresh_buffer_seconds must not be negative")
	}
	return nil
}
