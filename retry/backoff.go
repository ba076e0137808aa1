package retry

import (
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 100 * time.Millisecond
	DefaultJitterFraction = 0.5
)

// Policy 描述重试次数与退避节奏。构造后不可变；
// 修改策略的唯一方式是用新 Policy 重建持有它的组件。
type Policy struct {
	// MaxAttempts 总尝试次数（含首次）。<= 0 时按 1 处理。
	MaxAttempts int
	// BaseDelay 线性退避的基础间隔，第 n 次失败后等待约 BaseDelay*(n+1)。
	// 微信接口限频温和，线性增长足够，避免指数退避失控。
	BaseDelay time.Duration
	// JitterFraction 抖动比例，实际延迟在 ±JitterFraction*确定值 内均匀分布，
	// 打散大量客户端同参数下的同步重试。
	JitterFraction float64
}

// DefaultPolicy returns the policy used when the caller does not supply one.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    DefaultMaxAttempts,
		BaseDelay:      DefaultBaseDelay,
		JitterFraction: DefaultJitterFraction,
	}
}

var (
	jitterRandMu sync.Mutex
	// 退避抖动使用独立随机源，避免依赖全局 Seed
	jitterRand = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Delay 返回第 attempt 次失败后的等待时间（attempt 从 0 开始）。
// 结果永远非负：抖动可能为负，但整体在 0 处截断。
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.BaseDelay * time.Duration(attempt+1)
	if base <= 0 {
		return 0
	}

	frac := p.JitterFraction
	if frac <= 0 {
		return base
	}
	if frac > 1 {
		frac = 1
	}

	jitterRandMu.Lock()
	randVal := jitterRand.Float64()
	jitterRandMu.Unlock()

	// 均匀分布于 [-frac, +frac]
	offset := time.Duration((randVal*2 - 1) * frac * float64(base))
	delay := base + offset
	if delay < 0 {
		return 0
	}
	return delay
}

// Exhausted reports whether no further attempt remains after attempt (0-based).
func (p Policy) Exhausted(attempt int) bool {
	max := p.MaxAttempts
	if max <= 0 {
		max = 1
	}
	return attempt+1 >= max
}
