package wechatmp

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/infinitete/wechat-mp-sdk/credential"
)

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// tokenIssuer 用 appid/secret 向微信换取接口调用凭证。
// 重试由凭证管理器统一调度，这里只负责单次换取。
type tokenIssuer struct {
	client *Client
	stable bool
}

func (t *tokenIssuer) Issue(ctx context.Context) (credential.IssuedCredential, error) {
	var raw []byte
	var err error
	if t.stable {
		raw, err = t.client.do(ctx, apiRequest{
			method: http.MethodPost,
			path:   "/cgi-bin/stable_token",
			body: map[string]any{
				"grant_type": "client_credential",
				"appid":      t.client.appid,
				"secret":     t.client.secret,
			},
		}, "")
	} else {
		raw, err = t.client.do(ctx, apiRequest{
			method: http.MethodGet,
			path:   "/cgi-bin/token",
			query: url.Values{
				"grant_type": {"client_credential"},
				"appid":      {t.client.appid},
				"secret":     {t.client.secret},
			},
		}, "")
	}
	if err != nil {
		return credential.IssuedCredential{}, err
	}

	var resp accessTokenResponse
	if err := decodeJSON(raw, &resp); err != nil {
		return credential.IssuedCredential{}, err
	}
	return credential.IssuedCredential{
		Token:    resp.AccessToken,
		ValidFor: time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}
