package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/infinitete/wechat-mp-sdk/retry"
	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

// DefaultRefreshBuffer 是硬过期前触发主动刷新的窗口。
const DefaultRefreshBuffer = 5 * time.Minute

const refreshKey = "access_token"

// CacheState 描述缓存当前所处的状态，仅用于观测与测试断言。
type CacheState int

const (
	// StateEmpty 尚无可用凭证（从未获取，或已硬过期）。
	StateEmpty CacheState = iota
	// StateFresh 凭证可用，且在刷新缓冲窗口之外。
	StateFresh
	// StateStale 凭证仍可返回给调用方，但已进入刷新缓冲窗口。
	StateStale
	// StateRefreshing 刷新正在进行，新调用方并入等待而非发起第二次刷新。
	StateRefreshing
	// StateInvalidated 被调用方显式作废，下次请求无条件刷新。
	StateInvalidated
)

func (s CacheState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRefreshing:
		return "refreshing"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Manager 持有当前凭证并协调刷新。
//
// 不变量：任意时刻至多一次针对签发方的刷新在飞，所有并发等待者
// 观察到同一次刷新的同一结果。缓存状态是唯一的共享可变资源，
// 由内部互斥锁保护；singleflight 保证"检查-并入或触发"的原子性。
//
// 刷新失败而旧凭证尚未硬过期时返回旧凭证（fail-open）：
// 这是有意的可用性优先策略，宁可短暂使用临近过期的 token，
// 也不让上游抖动打挂调用方。
type Manager struct {
	issuer        Issuer
	store         Store
	policy        retry.Policy
	refreshBuffer time.Duration
	log           *zap.Logger
	now           func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	cred        *Credential
	invalidated bool
	refreshing  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRetryPolicy 设置刷新调用的重试策略。
func WithRetryPolicy(p retry.Policy) ManagerOption {
	return func(m *Manager) { m.policy = p }
}

// WithRefreshBuffer 设置硬过期前触发主动刷新的窗口。
func WithRefreshBuffer(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.refreshBuffer = d
		}
	}
}

// WithLogger 注入日志器，默认丢弃所有日志。
func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithStore 挂接跨进程共享的凭证存储（如 Redis）。
// 刷新成功后写入，缓存为空时优先读取，避免多进程重复刷新。
func WithStore(s Store) ManagerOption {
	return func(m *Manager) { m.store = s }
}

// NewManager 构造凭证管理器。策略在构造时固定，之后不可变。
func NewManager(issuer Issuer, opts ...ManagerOption) *Manager {
	m := &Manager{
		issuer:        issuer,
		policy:        retry.DefaultPolicy(),
		refreshBuffer: DefaultRefreshBuffer,
		log:           zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetToken 返回一个可用的凭证。
//
// 快路径：凭证新鲜时直接返回，不产生任何 I/O。
// 凭证进入刷新缓冲窗口时仍立即返回旧值，同时在后台发起一次
// 不阻塞调用方的刷新。缓存为空、已作废或已硬过期时阻塞等待
// 刷新完成；并发调用共享同一次上游请求。
//
// 等待期间 ctx 取消只放弃本调用方的等待，共享的刷新继续进行，
// 其余等待者不受影响。
func (m *Manager) GetToken(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	cred := m.cred
	invalidated := m.invalidated
	m.mu.Unlock()

	now := m.now()
	if cred != nil && !invalidated && !cred.Expired(now) {
		if cred.ShouldRefresh(now, m.refreshBuffer) {
			// 进入缓冲窗口：后台刷新，调用方不等待
			m.group.DoChan(refreshKey, m.refresh)
		}
		return *cred, nil
	}

	ch := m.group.DoChan(refreshKey, m.refresh)
	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Invalidate 作废当前凭证，下次 GetToken 无条件走上游刷新。
//
// 用于调用方检测到 token 被下游拒绝（如业务调用途中返回 40001）
// 或疑似泄露的场景。存储的凭证被直接丢弃而非仅做标记，
// 避免 fail-open 把一个已知坏掉的 token 又端回来。
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cred = nil
	m.invalidated = true
	m.mu.Unlock()

	if m.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.store.Clear(ctx); err != nil {
			m.log.Warn("credential store clear failed", zap.Error(err))
		}
	}
	m.log.Info("access token invalidated, next request forces a refresh")
}

// State 返回缓存当前状态。硬过期等同于 empty：凭证已不可返回。
func (m *Manager) State() CacheState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refreshing {
		return StateRefreshing
	}
	if m.invalidated {
		return StateInvalidated
	}
	if m.cred == nil {
		return StateEmpty
	}
	now := m.now()
	if m.cred.Expired(now) {
		return StateEmpty
	}
	if m.cred.ShouldRefresh(now, m.refreshBuffer) {
		return StateStale
	}
	return StateFresh
}

// refresh 执行一次完整的刷新，由 singleflight 保证同时只有一个在飞。
// 刷新不绑定任何等待者的 context：单个调用方超时不应中断
// 其他等待者依赖的共享操作；上游超时由签发方的 HTTP 客户端控制。
func (m *Manager) refresh() (any, error) {
	m.setRefreshing(true)
	defer m.setRefreshing(false)

	ctx := context.Background()

	if cred, ok := m.loadFromStore(ctx); ok {
		return cred, nil
	}

	issued, err := retry.Do(ctx, m.policy, m.log, m.issuer.Issue)
	if err != nil {
		return m.resolveFailure(err)
	}

	cred := Credential{
		Token:    issued.Token,
		IssuedAt: m.now(),
		ValidFor: issued.ValidFor,
	}

	m.mu.Lock()
	m.cred = &cred
	m.invalidated = false
	m.mu.Unlock()

	m.saveToStore(ctx, cred)
	m.log.Debug("access token refreshed", zap.Time("expires_at", cred.ExpiresAt()))
	return cred, nil
}

// resolveFailure 决定刷新失败时等待者看到什么。
// 旧凭证未硬过期则 fail-open 返回旧值；否则把错误归类为
// 签发方拒绝（永不重试）或凭证不可用（重试已耗尽）。
func (m *Manager) resolveFailure(err error) (any, error) {
	m.mu.Lock()
	cred := m.cred
	m.mu.Unlock()

	if cred != nil && !cred.Expired(m.now()) {
		m.log.Warn("access token refresh failed, serving previous unexpired token",
			zap.Time("expires_at", cred.ExpiresAt()),
			zap.Error(err))
		return *cred, nil
	}

	var apiErr *wxerror.APIError
	if errors.As(err, &apiErr) && retry.Classify(err) != retry.Transient {
		return nil, &RejectedError{Err: err}
	}
	return nil, &UnavailableError{Err: err}
}

func (m *Manager) loadFromStore(ctx context.Context) (Credential, bool) {
	if m.store == nil {
		return Credential{}, false
	}

	m.mu.Lock()
	invalidated := m.invalidated
	m.mu.Unlock()
	if invalidated {
		// 作废后必须走上游，不接受任何缓存副本
		return Credential{}, false
	}

	stored, ok, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("credential store load failed", zap.Error(err))
		return Credential{}, false
	}
	if !ok || stored.ShouldRefresh(m.now(), m.refreshBuffer) {
		return Credential{}, false
	}

	m.mu.Lock()
	m.cred = &stored
	m.mu.Unlock()

	m.log.Debug("adopted access token from shared store",
		zap.Time("expires_at", stored.ExpiresAt()))
	return stored, true
}

func (m *Manager) saveToStore(ctx context.Context, cred Credential) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, cred); err != nil {
		m.log.Warn("credential store save failed", zap.Error(err))
	}
}

func (m *Manager) setRefreshing(v bool) {
	m.mu.Lock()
	m.refreshing = v
	m.mu.Unlock()
}
