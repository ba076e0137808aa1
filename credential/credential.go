// Package credential 管理微信 access_token 的生命周期：
// 获取、缓存、临近过期的主动刷新，以及多并发调用方之间的单飞（single-flight）协调。
package credential

import (
	"fmt"
	"time"
)

// Credential 是一次签发得到的 access_token 值对象。
// 构造后不可变，刷新总是产生新的 Credential，绝不原地修改。
type Credential struct {
	Token    string
	IssuedAt time.Time
	ValidFor time.Duration
}

// ExpiresAt 返回绝对过期时刻。过期时刻永远由 IssuedAt+ValidFor 推导，
// 不允许单独设置，避免二者漂移。
func (c Credential) ExpiresAt() time.Time {
	return c.IssuedAt.Add(c.ValidFor)
}

// Expired reports whether the credential has passed its hard expiry at now.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt())
}

// ShouldRefresh 判断凭证是否已进入刷新缓冲窗口（仍可用，但该换新了）。
func (c Credential) ShouldRefresh(now time.Time, buffer time.Duration) bool {
	return !now.Add(buffer).Before(c.ExpiresAt())
}

// UnavailableError 表示重试耗尽后仍未取得可用凭证。
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("credential unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RejectedError 表示签发方明确拒绝了应用身份（如 appid/secret 错误）。
// 这类失败属于配置问题，需要人工介入，调用方不应循环重试。
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("credential issuer rejected request: %v", e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }
