package credential

import (
	"context"
	"sync"
	"time"
)

// Store 是可选的凭证外部存储，用于多进程共享同一个 access_token。
// 微信对 token 的签发有频率限制，多实例部署时各自刷新会互相挤掉
// 对方的 token，共享存储可以避免这一点。
type Store interface {
	// Load 读取存储的凭证；不存在时 ok 为 false。
	Load(ctx context.Context) (cred Credential, ok bool, err error)
	// Save 写入新凭证，覆盖旧值。
	Save(ctx context.Context, cred Credential) error
	// Clear 删除存储的凭证。
	Clear(ctx context.Context) error
}

// MemoryStore 是进程内的 Store 实现，主要用于测试和单实例场景。
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return Credential{}, false, nil
	}
	return *s.cred, true, nil
}

func (s *MemoryStore) Save(ctx context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cred
	s.cred = &c
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)

// expiresIn returns the remaining lifetime of cred relative to now.
func expiresIn(cred Credential, now time.Time) time.Duration {
	return cred.ExpiresAt().Sub(now)
}
