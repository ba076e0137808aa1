// Package wechatmp 是微信小程序服务端 HTTP API 客户端。
//
// 所有业务调用都经过同一条调用链：取 access_token、拼接请求、
// 响应体 errcode 嗅探、错误分类驱动的重试。凭证由 credential.Manager
// 维护，过期前提前刷新，并发请求合并为一次刷新。
package wechatmp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/infinitete/wechat-mp-sdk/credential"
	"github.com/infinitete/wechat-mp-sdk/internal/logredact"
	"github.com/infinitete/wechat-mp-sdk/retry"
	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

// DefaultBaseURL 微信接口域名
const DefaultBaseURL = "https://api.weixin.qq.com"

// maxErrorBodyBytes 限制错误响应体在错误信息里的长度
const maxErrorBodyBytes = 2048

// Client 是小程序 API 客户端。并发安全，应全局复用单个实例。
type Client struct {
	appid  string
	secret string

	http  *req.Client
	log   *zap.Logger
	creds *credential.Manager

	retryPolicy        retry.Policy
	retryNonIdempotent bool
}

// New 创建客户端。appid 和 secret 必填，其余行为由 Option 调整。
func New(appid, secret string, opts ...Option) (*Client, error) {
	appid = strings.TrimSpace(appid)
	secret = strings.TrimSpace(secret)
	if appid == "" {
		return nil, fmt.Errorf("appid is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		appid:              appid,
		secret:             secret,
		http:               o.buildHTTPClient(),
		log:                o.logger,
		retryPolicy:        o.retryPolicy,
		retryNonIdempotent: o.retryNonIdempotent,
	}

	issuer := &tokenIssuer{client: c, stable: o.stableToken}
	managerOpts := []credential.ManagerOption{
		credential.WithRetryPolicy(o.retryPolicy),
		credential.WithRefreshBuffer(o.refreshBuffer),
		credential.WithLogger(o.logger),
	}
	if o.store != nil {
		managerOpts = append(managerOpts, credential.WithStore(o.store))
	}
	c.creds = credential.NewManager(issuer, managerOpts...)

	return c, nil
}

// AppID 返回客户端绑定的小程序 appid。
func (c *Client) AppID() string {
	return c.appid
}

// AccessToken 返回当前可用的接口调用凭证，必要时触发刷新。
// 一般无需直接调用，业务方法会自动携带凭证。
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	cred, err := c.creds.GetToken(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// InvalidateToken 丢弃当前凭证，下一次调用会强制换取新凭证。
// 适用于外部系统（如共享缓存的其他实例）已知凭证失效的场景。
func (c *Client) InvalidateToken() {
	c.creds.Invalidate()
}

// apiRequest 描述一次接口调用。
type apiRequest struct {
	method    string
	path      string
	query     url.Values
	body      any
	needToken bool
	// 多部分上传字段，fileData 非空时以 multipart 发送
	fileField string
	fileName  string
	fileData  []byte
	// binaryOK 为 true 时成功响应可能是非 JSON 内容（图片等），
	// 此时 JSON 体仅在携带 errcode 时视为错误。
	binaryOK bool
}

// invoke 是所有业务调用的入口：按幂等性决定是否重试，
// 凭证失效错误触发一次作废重取。
func (c *Client) invoke(ctx context.Context, r apiRequest) ([]byte, error) {
	policy := c.retryPolicy
	if r.method != http.MethodGet && !c.retryNonIdempotent {
		// 非幂等调用默认只发一次
		policy.MaxAttempts = 1
	}
	return retry.Do(ctx, policy, c.log, func(ctx context.Context) ([]byte, error) {
		return c.callWithAuth(ctx, r)
	})
}

// callWithAuth 携带 access_token 发起调用；凭证被上游拒绝时
// 作废本地缓存并用新凭证重发一次。
func (c *Client) callWithAuth(ctx context.Context, r apiRequest) ([]byte, error) {
	token := ""
	if r.needToken {
		cred, err := c.creds.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		token = cred.Token
	}

	raw, err := c.do(ctx, r, token)
	if err == nil || !r.needToken || !wxerror.IsTokenInvalid(err) {
		return raw, err
	}

	c.log.Warn("access token rejected by upstream, refreshing",
		zap.String("path", r.path),
		zap.Int("errcode", wxerror.Code(err)))
	c.creds.Invalidate()

	cred, tokenErr := c.creds.GetToken(ctx)
	if tokenErr != nil {
		return nil, tokenErr
	}
	return c.do(ctx, r, cred.Token)
}

// do 发起单次 HTTP 调用并做状态码与 errcode 检查。
func (c *Client) do(ctx context.Context, r apiRequest, token string) ([]byte, error) {
	requestID := uuid.NewString()

	request := c.http.R().SetContext(ctx)
	for key, values := range r.query {
		for _, value := range values {
			request.SetQueryParam(key, value)
		}
	}
	if token != "" {
		request.SetQueryParam("access_token", token)
	}
	if r.body != nil {
		request.SetBody(r.body)
	}
	if r.fileData != nil {
		request.SetFileBytes(r.fileField, r.fileName, r.fileData)
	}

	if ce := c.log.Check(zap.DebugLevel, "wechat api request"); ce != nil {
		ce.Write(
			zap.String("request_id", requestID),
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.String("query", logredact.RedactQuery(r.query.Encode())),
		)
	}

	start := time.Now()
	resp, err := c.send(request, r.method, r.path)
	if err != nil {
		return nil, &wxerror.TransportError{Err: err}
	}

	raw := resp.Bytes()

	if ce := c.log.Check(zap.DebugLevel, "wechat api response"); ce != nil {
		ce.Write(
			zap.String("request_id", requestID),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("body", logredact.RedactJSON(raw)),
		)
	}

	if !resp.IsSuccessState() {
		return nil, &wxerror.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(raw),
		}
	}
	if err := sniffAPIError(raw, r.binaryOK); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) send(request *req.Request, method, path string) (*req.Response, error) {
	switch method {
	case http.MethodGet:
		return request.Get(path)
	case http.MethodPost:
		return request.Post(path)
	default:
		return request.Send(method, path)
	}
}

// sniffAPIError 在解码前检查响应体里的业务错误码。
// 微信的错误总是 200 + JSON errcode，而成功体可能不含 errcode 字段。
func sniffAPIError(raw []byte, binaryOK bool) error {
	if binaryOK && !gjson.ValidBytes(raw) {
		return nil
	}
	code := gjson.GetBytes(raw, "errcode")
	if !code.Exists() || code.Int() == 0 {
		return nil
	}
	return wxerror.NewAPIError(int(code.Int()), gjson.GetBytes(raw, "errmsg").String())
}

// getJSON 发起带凭证的 GET 调用并解码 JSON 响应。
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	raw, err := c.invoke(ctx, apiRequest{
		method:    http.MethodGet,
		path:      path,
		query:     query,
		needToken: true,
	})
	if err != nil {
		return err
	}
	return decodeJSON(raw, out)
}

// postJSON 发起带凭证的 POST 调用并解码 JSON 响应。out 为 nil 时丢弃响应体。
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := c.invoke(ctx, apiRequest{
		method:    http.MethodPost,
		path:      path,
		body:      body,
		needToken: true,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(raw, out)
}

// postBinary 发起带凭证的 POST 调用，成功时返回原始字节（图片等）。
func (c *Client) postBinary(ctx context.Context, path string, body any) ([]byte, error) {
	return c.invoke(ctx, apiRequest{
		method:    http.MethodPost,
		path:      path,
		body:      body,
		needToken: true,
		binaryOK:  true,
	})
}

// getBinary 发起带凭证的 GET 调用，成功时返回原始字节。
func (c *Client) getBinary(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.invoke(ctx, apiRequest{
		method:    http.MethodGet,
		path:      path,
		query:     query,
		needToken: true,
		binaryOK:  true,
	})
}

func decodeJSON(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &wxerror.DecodeError{Err: err}
	}
	return nil
}

func truncateBody(raw []byte) string {
	if len(raw) > maxErrorBodyBytes {
		return string(raw[:maxErrorBodyBytes]) + "...(truncated)"
	}
	return string(raw)
}
