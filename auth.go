package wechatmp

import (
	"context"
	"net/http"
	"net/url"
)

// SessionInfo 是 code2Session 登录凭证校验的结果。
type SessionInfo struct {
	// OpenID 用户在当前小程序下的唯一标识
	OpenID string `json:"openid"`
	// SessionKey 会话密钥，用于解密用户数据，不应下发给客户端
	SessionKey string `json:"session_key"`
	// UnionID 用户在开放平台下的唯一标识，满足条件时返回
	UnionID string `json:"unionid,omitempty"`
}

// Code2Session 用 wx.login 下发的临时 code 换取会话信息。
// 该接口使用 appid/secret 鉴权，不携带 access_token。
func (c *Client) Code2Session(ctx context.Context, jsCode string) (*SessionInfo, error) {
	raw, err := c.invoke(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/sns/jscode2session",
		query: url.Values{
			"appid":      {c.appid},
			"secret":     {c.secret},
			"js_code":    {jsCode},
			"grant_type": {"authorization_code"},
		},
	})
	if err != nil {
		return nil, err
	}

	var info SessionInfo
	if err := decodeJSON(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ResetUserSessionKey 重置指定用户的会话密钥。
// signature 为空串数据的 hmac 签名，sigMethod 目前仅支持 hmac_sha256。
func (c *Client) ResetUserSessionKey(ctx context.Context, openID, signature, sigMethod string) (*SessionInfo, error) {
	var info SessionInfo
	err := c.getJSON(ctx, "/wxa/resetusersessionkey", url.Values{
		"openid":     {openID},
		"signature":  {signature},
		"sig_method": {sigMethod},
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckSessionKey 校验服务端保存的会话密钥是否仍然有效。
// 返回 nil 表示有效；87009 表示签名校验失败（密钥已失效）。
func (c *Client) CheckSessionKey(ctx context.Context, openID, signature, sigMethod string) error {
	var discard struct{}
	return c.getJSON(ctx, "/wxa/checksession", url.Values{
		"openid":     {openID},
		"signature":  {signature},
		"sig_method": {sigMethod},
	}, &discard)
}
