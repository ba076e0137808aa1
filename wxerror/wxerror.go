// Package wxerror 定义微信 API 的错误类型。
//
// 微信所有接口返回统一的 errcode/errmsg 结构，errcode 为 0 表示成功。
// 本包把一次调用可能出现的四类失败建模为独立的错误类型，供重试分类使用：
//
//   - APIError: 响应成功解码，但 errcode != 0
//   - TransportError: 连接/DNS/超时等传输层错误
//   - HTTPStatusError: 收到响应但 HTTP 状态码不在 2xx
//   - DecodeError: HTTP 2xx 但响应体不符合预期结构
package wxerror

import (
	"errors"
	"fmt"
)

// 常见微信错误码。
const (
	CodeSystemBusy        = -1    // 系统繁忙，稍候再试
	CodeInvalidCredential = 40001 // access_token 无效或已过期
	CodeInvalidGrantType  = 40002
	CodeInvalidAppID      = 40013
	CodeInvalidToken      = 40014 // 不合法的 access_token
	CodeInvalidAppSecret  = 40125
	CodeAppSecretFrozen   = 40164
	CodeTokenExpired      = 42001 // access_token 超时
	CodeRateLimit         = 45009 // 接口调用超过限制
	CodeAPIBanned         = 45011 // API 调用太频繁，请稍候再试
)

// APIError 表示微信 API 返回的业务错误（errcode != 0）。
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api error (errcode=%d): %s", e.Code, e.Message)
}

// TransportError 包装传输层失败（连接拒绝、DNS 解析失败、超时等）。
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wechat transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError 表示收到了响应但 HTTP 状态码不在成功区间。
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("wechat http status %d: %s", e.StatusCode, e.Body)
}

// DecodeError 表示 HTTP 成功但响应体无法解码为预期结构。
// 这类错误重试不会改变结果，永远不应被重试。
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wechat response decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewAPIError constructs an APIError from a raw errcode/errmsg pair.
func NewAPIError(code int, message string) *APIError {
	if message == "" {
		message = "unknown error"
	}
	return &APIError{Code: code, Message: message}
}

// IsTokenInvalid 判断错误是否表示 access_token 已失效，
// 调用方据此触发凭证失效与重取（40001/40014/42001）。
func IsTokenInvalid(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case CodeInvalidCredential, CodeInvalidToken, CodeTokenExpired:
		return true
	}
	return false
}

// Code returns the WeChat errcode carried by err, or 0 when err is not an APIError.
func Code(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
