package wechatmp

import (
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/infinitete/wechat-mp-sdk/config"
	"github.com/infinitete/wechat-mp-sdk/credential"
	"github.com/infinitete/wechat-mp-sdk/internal/httpclient"
	"github.com/infinitete/wechat-mp-sdk/retry"
)

type options struct {
	baseURL            string
	timeout            time.Duration
	proxyURL           string
	userAgent          string
	logger             *zap.Logger
	retryPolicy        retry.Policy
	refreshBuffer      time.Duration
	store              credential.Store
	stableToken        bool
	retryNonIdempotent bool
	httpClient         *req.Client
}

func defaultOptions() options {
	return options{
		baseURL:       DefaultBaseURL,
		timeout:       httpclient.DefaultTimeout,
		logger:        zap.NewNop(),
		retryPolicy:   retry.DefaultPolicy(),
		refreshBuffer: credential.DefaultRefreshBuffer,
	}
}

func (o *options) buildHTTPClient() *req.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return httpclient.GetClient(httpclient.Options{
		BaseURL:   o.baseURL,
		Timeout:   o.timeout,
		ProxyURL:  o.proxyURL,
		UserAgent: o.userAgent,
	})
}

// Option 调整客户端行为。
type Option func(*options)

// WithBaseURL 覆盖接口域名，主要用于测试和私有化代理。
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithTimeout 设置请求总超时。
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithProxyURL 设置出口代理，支持 http/https/socks5。
func WithProxyURL(proxyURL string) Option {
	return func(o *options) { o.proxyURL = proxyURL }
}

// WithUserAgent 设置请求 User-Agent。
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithLogger 注入日志器，默认丢弃所有日志。
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithRetryPolicy 覆盖重试策略，同时作用于业务调用和凭证刷新。
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *options) { o.retryPolicy = policy }
}

// WithRefreshBuffer 设置凭证过期前提前刷新的时间窗口。
func WithRefreshBuffer(buffer time.Duration) Option {
	return func(o *options) { o.refreshBuffer = buffer }
}

// WithCredentialStore 挂接跨进程凭证缓存（如 RedisStore）。
func WithCredentialStore(store credential.Store) Option {
	return func(o *options) { o.store = store }
}

// WithStableToken 使用 stable_token 接口换取凭证。
// 稳定版凭证在有效期内重复获取不会互相作废，适合多实例部署。
func WithStableToken() Option {
	return func(o *options) { o.stableToken = true }
}

// WithRetryNonIdempotent 允许对 POST 调用按分类重试。
// 仅当业务能接受重复提交（或接口自身幂等）时开启。
func WithRetryNonIdempotent() Option {
	return func(o *options) { o.retryNonIdempotent = true }
}

// WithHTTPClient 使用调用方自备的 req 客户端，绕过共享客户端池。
func WithHTTPClient(client *req.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// NewFromConfig 按配置构建客户端。
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := buildLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger error: %w", err)
	}

	base := []Option{
		WithBaseURL(cfg.HTTP.BaseURL),
		WithTimeout(cfg.HTTP.Timeout()),
		WithLogger(log),
		WithRetryPolicy(retry.Policy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseDelay:      cfg.Retry.BaseDelay(),
			JitterFraction: cfg.Retry.JitterFraction,
		}),
		WithRefreshBuffer(cfg.Credential.RefreshBuffer()),
	}
	if cfg.HTTP.ProxyURL != "" {
		base = append(base, WithProxyURL(cfg.HTTP.ProxyURL))
	}
	if cfg.HTTP.UserAgent != "" {
		base = append(base, WithUserAgent(cfg.HTTP.UserAgent))
	}
	if cfg.Credential.UseStableToken {
		base = append(base, WithStableToken())
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		base = append(base, WithCredentialStore(
			credential.NewRedisStore(rdb, cfg.Redis.KeyPrefix+":access_token")))
	}

	return New(cfg.AppID, cfg.Secret, append(base, opts...)...)
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
