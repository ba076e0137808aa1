package wechatmp

import (
	"context"
	"net/http"
)

// QuotaInfo 是单个接口的调用配额。
type QuotaInfo struct {
	DailyLimit int64 `json:"daily_limit"`
	Used       int64 `json:"used"`
	Remain     int64 `json:"remain"`
}

// GetAPIQuota 查询指定接口的当日调用配额。
// cgiPath 为接口路径，如 /cgi-bin/message/custom/send。
func (c *Client) GetAPIQuota(ctx context.Context, cgiPath string) (*QuotaInfo, error) {
	var resp struct {
		Quota QuotaInfo `json:"quota"`
	}
	err := c.postJSON(ctx, "/cgi-bin/openapi/quota/get", map[string]string{
		"cgi_path": cgiPath,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Quota, nil
}

// ClearQuota 重置所有接口的调用次数，每月可调用 10 次。
func (c *Client) ClearQuota(ctx context.Context) error {
	return c.postJSON(ctx, "/cgi-bin/clear_quota", map[string]string{
		"appid": c.appid,
	}, nil)
}

// ClearAPIQuota 重置指定接口的调用次数。
func (c *Client) ClearAPIQuota(ctx context.Context, cgiPath string) error {
	return c.postJSON(ctx, "/cgi-bin/openapi/quota/clear", map[string]string{
		"cgi_path": cgiPath,
	}, nil)
}

// ClearQuotaByAppSecret 用 appid/appsecret 直接重置所有接口的调用次数，
// 不依赖 access_token，适合凭证已被打满限额时自救。
func (c *Client) ClearQuotaByAppSecret(ctx context.Context) error {
	_, err := c.invoke(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/cgi-bin/clear_quota/v2",
		body: map[string]string{
			"appid":     c.appid,
			"appsecret": c.secret,
		},
	})
	return err
}

// RidRequestInfo 是 rid 对应的请求详情。
type RidRequestInfo struct {
	InvokeTime   int64  `json:"invoke_time"`
	CostInMs     int64  `json:"cost_in_ms"`
	RequestURL   string `json:"request_url"`
	RequestBody  string `json:"request_body"`
	ResponseBody string `json:"response_body"`
	ClientIP     string `json:"client_ip"`
}

// GetRidInfo 用错误响应里的 rid 查询请求详情，用于排障。
func (c *Client) GetRidInfo(ctx context.Context, rid string) (*RidRequestInfo, error) {
	var resp struct {
		Request RidRequestInfo `json:"request"`
	}
	err := c.postJSON(ctx, "/cgi-bin/openapi/rid/get", map[string]string{
		"rid": rid,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Request, nil
}

type ipListResponse struct {
	IPList []string `json:"ip_list"`
}

// GetAPIDomainIP 获取微信 API 服务器的出口 IP 列表。
func (c *Client) GetAPIDomainIP(ctx context.Context) ([]string, error) {
	var resp ipListResponse
	if err := c.getJSON(ctx, "/cgi-bin/get_api_domain_ip", nil, &resp); err != nil {
		return nil, err
	}
	return resp.IPList, nil
}

// GetCallbackIP 获取微信回调服务器的 IP 列表。
func (c *Client) GetCallbackIP(ctx context.Context) ([]string, error) {
	var resp ipListResponse
	if err := c.getJSON(ctx, "/cgi-bin/getcallbackip", nil, &resp); err != nil {
		return nil, err
	}
	return resp.IPList, nil
}
