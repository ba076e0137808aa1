package wechatmp

import "context"

// JumpWxa 是 URL Scheme / Link 的跳转目标。
type JumpWxa struct {
	Path       string `json:"path,omitempty"`
	Query      string `json:"query,omitempty"`
	EnvVersion string `json:"env_version,omitempty"`
}

// URLSchemeOptions 是 generatescheme 的参数。
type URLSchemeOptions struct {
	JumpWxa *JumpWxa `json:"jump_wxa,omitempty"`
	// IsExpire 是否到期失效。为 true 时必须设置失效方式
	IsExpire bool `json:"is_expire,omitempty"`
	// ExpireType 0 按时间失效（ExpireTime），1 按天数失效（ExpireInterval）
	ExpireType     int   `json:"expire_type,omitempty"`
	ExpireTime     int64 `json:"expire_time,omitempty"`
	ExpireInterval int   `json:"expire_interval,omitempty"`
}

type urlSchemeResponse struct {
	OpenLink string `json:"openlink"`
}

// GenerateURLScheme 生成 weixin:// 拉起小程序的 scheme 链接。
func (c *Client) GenerateURLScheme(ctx context.Context, opts URLSchemeOptions) (string, error) {
	var resp urlSchemeResponse
	if err := c.postJSON(ctx, "/wxa/generatescheme", opts, &resp); err != nil {
		return "", err
	}
	return resp.OpenLink, nil
}

// URLSchemeInfo 是 scheme 链接的配置详情。
type URLSchemeInfo struct {
	AppID      string `json:"appid"`
	Path       string `json:"path"`
	Query      string `json:"query"`
	CreateTime int64  `json:"create_time"`
	ExpireTime int64  `json:"expire_time"`
	EnvVersion string `json:"env_version"`
}

type querySchemeResponse struct {
	SchemeInfo URLSchemeInfo `json:"scheme_info"`
	// VisitOpenID 访问该链接的用户 openid，未访问时为空
	VisitOpenID string `json:"visit_openid"`
}

// QueryURLScheme 查询 scheme 链接的配置和访问者。
func (c *Client) QueryURLScheme(ctx context.Context, scheme string) (*URLSchemeInfo, string, error) {
	var resp querySchemeResponse
	err := c.postJSON(ctx, "/wxa/queryscheme", map[string]string{
		"scheme": scheme,
	}, &resp)
	if err != nil {
		return nil, "", err
	}
	return &resp.SchemeInfo, resp.VisitOpenID, nil
}

// URLLinkOptions 是 generate_urllink 的参数。
type URLLinkOptions struct {
	Path           string `json:"path,omitempty"`
	Query          string `json:"query,omitempty"`
	EnvVersion     string `json:"env_version,omitempty"`
	IsExpire       bool   `json:"is_expire,omitempty"`
	ExpireType     int    `json:"expire_type,omitempty"`
	ExpireTime     int64  `json:"expire_time,omitempty"`
	ExpireInterval int    `json:"expire_interval,omitempty"`
}

type urlLinkResponse struct {
	URLLink string `json:"url_link"`
}

// GenerateURLLink 生成 https:// 拉起小程序的 URL Link，
// 可在短信、邮件等微信外场景使用。
func (c *Client) GenerateURLLink(ctx context.Context, opts URLLinkOptions) (string, error) {
	var resp urlLinkResponse
	if err := c.postJSON(ctx, "/wxa/generate_urllink", opts, &resp); err != nil {
		return "", err
	}
	return resp.URLLink, nil
}

type shortLinkResponse struct {
	Link string `json:"link"`
}

// GenerateShortLink 生成小程序短链接，适用于微信内分享。
// pageTitle 为页面标题，isPermanent 区分永久与临时短链。
func (c *Client) GenerateShortLink(ctx context.Context, pageURL, pageTitle string, isPermanent bool) (string, error) {
	var resp shortLinkResponse
	err := c.postJSON(ctx, "/wxa/genwxashortlink", map[string]any{
		"page_url":     pageURL,
		"page_title":   pageTitle,
		"is_permanent": isPermanent,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Link, nil
}
