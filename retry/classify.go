package retry

import (
	"context"
	"errors"
	"net"

	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

// Class 是一次调用失败的重试分类。
type Class int

const (
	// Transient 临时性失败，可以重试（网络抖动、系统繁忙、频率限制）。
	Transient Class = iota
	// Permanent 永久性失败，重试无意义（凭证错误、响应结构不符）。
	Permanent
	// Unclassifiable 未知失败，保守处理为不重试。
	Unclassifiable
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unclassifiable"
	}
}

// 微信侧可重试的业务错误码。
var transientCodes = map[int]struct{}{
	wxerror.CodeSystemBusy: {},
	wxerror.CodeRateLimit:  {},
	wxerror.CodeAPIBanned:  {},
}

// 明确表示调用方自身问题的错误码，重试必然失败。
var permanentCodes = map[int]struct{}{
	wxerror.CodeInvalidCredential: {},
	wxerror.CodeInvalidGrantType:  {},
	wxerror.CodeInvalidAppID:      {},
	wxerror.CodeInvalidToken:      {},
	wxerror.CodeInvalidAppSecret:  {},
	wxerror.CodeAppSecretFrozen:   {},
	wxerror.CodeTokenExpired:      {},
}

// Classify 把一次出站调用的失败映射为重试分类。
//
// 规则按优先级排列：
//  1. errcode 属于临时集合（系统繁忙/频率限制）=> Transient
//  2. errcode 属于调用方错误集合（凭证/appid/secret）=> Permanent
//  3. 传输层失败（连接拒绝、DNS、超时）=> Transient
//  4. HTTP 2xx 但解码失败 => Permanent，重试修不好结构不匹配
//  5. 其余 => Unclassifiable，默认按不重试处理
//
// 凭证刷新与普通业务调用共用同一份分类策略。
func Classify(err error) Class {
	if err == nil {
		return Unclassifiable
	}

	// 调用方主动取消不属于上游故障，不重试。
	if errors.Is(err, context.Canceled) {
		return Permanent
	}

	var apiErr *wxerror.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientCodes[apiErr.Code]; ok {
			return Transient
		}
		if _, ok := permanentCodes[apiErr.Code]; ok {
			return Permanent
		}
		return Unclassifiable
	}

	var decodeErr *wxerror.DecodeError
	if errors.As(err, &decodeErr) {
		return Permanent
	}

	var statusErr *wxerror.HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 || statusErr.StatusCode == 429 {
			return Transient
		}
		return Unclassifiable
	}

	var transportErr *wxerror.TransportError
	if errors.As(err, &transportErr) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	return Unclassifiable
}

// Retryable reports whether err should be retried under the shared policy.
func Retryable(err error) bool {
	return Classify(err) == Transient
}
