package credential

import (
	"context"
	"time"
)

// IssuedCredential 是签发方返回的新凭证。
type IssuedCredential struct {
	Token    string
	ValidFor time.Duration
}

// Issuer 抽象用应用身份换取新 access_token 的上游调用。
// 实现方负责携带 appid/secret 等身份信息，并把失败映射为
// wxerror 中可分类的错误类型；请求超时由实现方的 HTTP 客户端控制。
type Issuer interface {
	Issue(ctx context.Context) (IssuedCredential, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) (IssuedCredential, error)

func (f IssuerFunc) Issue(ctx context.Context) (IssuedCredential, error) {
	return f(ctx)
}
