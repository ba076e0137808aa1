package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "wechat:mp:access_token"

type storedCredential struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
	ValidFor int64     `json:"valid_for_seconds"`
}

// RedisStore 把凭证存入 Redis，TTL 对齐凭证剩余有效期，
// 过期后键自动消失，Load 视作不存在。
type RedisStore struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisStore creates a store on rdb. key 为空时使用默认键；
// 同一 appid 的多个实例应使用相同的键。
func NewRedisStore(rdb redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Credential, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var stored storedCredential
	if err := json.Unmarshal(raw, &stored); err != nil {
		// 存储内容损坏按不存在处理，下一次刷新会覆盖
		return Credential{}, false, nil
	}

	return Credential{
		Token:    stored.Token,
		IssuedAt: stored.IssuedAt,
		ValidFor: time.Duration(stored.ValidFor) * time.Second,
	}, true, nil
}

func (s *RedisStore) Save(ctx context.Context, cred Credential) error {
	ttl := expiresIn(cred, time.Now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(storedCredential{
		Token:    cred.Token,
		IssuedAt: cred.IssuedAt,
		ValidFor: int64(cred.ValidFor / time.Second),
	})
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
