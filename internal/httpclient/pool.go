// Package httpclient 提供共享的 req 客户端池。
//
// 相同配置复用同一 *req.Client 实例，复用底层 Transport 连接池，
// 避免每个 SDK 客户端都重新建立 TCP/TLS 连接。
package httpclient

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/imroc/req/v3"
)

const (
	// DefaultTimeout 请求总超时
	DefaultTimeout = 30 * time.Second
)

// Options 定义共享客户端的构建参数。
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	ProxyURL           string        // 支持 http/https/socks5
	UserAgent          string
	InsecureSkipVerify bool
}

// sharedClients 按配置参数缓存 *req.Client 实例
var sharedClients sync.Map

// GetClient 返回共享的客户端实例，相同配置复用同一实例。
func GetClient(opts Options) *req.Client {
	key := buildClientKey(opts)
	if cached, ok := sharedClients.Load(key); ok {
		if client, ok := cached.(*req.Client); ok {
			return client
		}
	}

	client := buildClient(opts)
	actual, _ := sharedClients.LoadOrStore(key, client)
	if c, ok := actual.(*req.Client); ok {
		return c
	}
	return client
}

func buildClient(opts Options) *req.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := req.C().SetTimeout(timeout)

	if strings.TrimSpace(opts.BaseURL) != "" {
		client.SetBaseURL(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	}
	if strings.TrimSpace(opts.ProxyURL) != "" {
		client.SetProxyURL(strings.TrimSpace(opts.ProxyURL))
	}
	if opts.UserAgent != "" {
		client.SetUserAgent(opts.UserAgent)
	}
	if opts.InsecureSkipVerify {
		client.EnableInsecureSkipVerify()
	}

	return client
}

func buildClientKey(opts Options) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t",
		strings.TrimSpace(opts.BaseURL),
		opts.Timeout.String(),
		strings.TrimSpace(opts.ProxyURL),
		opts.UserAgent,
		opts.InsecureSkipVerify,
	)
}
