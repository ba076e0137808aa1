package wechatmp

import (
	"context"
	"fmt"
)

// LineColor 是小程序码线条颜色（RGB 0-255）。
type LineColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// WxaCodeOptions 是 getwxacode 的参数。
type WxaCodeOptions struct {
	// Path 扫码进入的页面路径，最长 128 字节
	Path string `json:"path"`
	// Width 二维码宽度（px），默认 430
	Width int `json:"width,omitempty"`
	// AutoColor 自动配置线条颜色
	AutoColor bool `json:"auto_color,omitempty"`
	// LineColor AutoColor 为 false 时生效
	LineColor *LineColor `json:"line_color,omitempty"`
	// IsHyaline 是否需要透明底色
	IsHyaline bool `json:"is_hyaline,omitempty"`
	// EnvVersion 要打开的版本：release / trial / develop
	EnvVersion string `json:"env_version,omitempty"`
}

// UnlimitedWxaCodeOptions 是 getwxacodeunlimit 的参数。
type UnlimitedWxaCodeOptions struct {
	// Scene 场景值，最长 32 个可见字符
	Scene string `json:"scene"`
	// Page 页面路径，必须是已发布页面，不能带参数
	Page       string     `json:"page,omitempty"`
	CheckPath  *bool      `json:"check_path,omitempty"`
	EnvVersion string     `json:"env_version,omitempty"`
	Width      int        `json:"width,omitempty"`
	AutoColor  bool       `json:"auto_color,omitempty"`
	LineColor  *LineColor `json:"line_color,omitempty"`
	IsHyaline  bool       `json:"is_hyaline,omitempty"`
}

// GetWxaCode 获取小程序码，返回图片字节。
// 生成的码数量受限（与 CreateQRCode 共享 10 万次配额）。
func (c *Client) GetWxaCode(ctx context.Context, opts WxaCodeOptions) ([]byte, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return c.postBinary(ctx, "/wxa/getwxacode", opts)
}

// GetUnlimitedWxaCode 获取不限量小程序码，返回图片字节。
// 适合携带动态场景值的分享码。
func (c *Client) GetUnlimitedWxaCode(ctx context.Context, opts UnlimitedWxaCodeOptions) ([]byte, error) {
	if opts.Scene == "" {
		return nil, fmt.Errorf("scene is required")
	}
	return c.postBinary(ctx, "/wxa/getwxacodeunlimit", opts)
}

// CreateQRCode 获取小程序二维码（方形），返回图片字节。
func (c *Client) CreateQRCode(ctx context.Context, path string, width int) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	body := map[string]any{"path": path}
	if width > 0 {
		body["width"] = width
	}
	return c.postBinary(ctx, "/cgi-bin/wxaapp/createwxaqrcode", body)
}
