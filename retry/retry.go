// Package retry 提供微信出站调用共享的失败分类与重试执行器。
//
// 凭证刷新和业务请求走同一套策略：Classify 决定一次失败是否值得重试，
// Policy 决定重试节奏，Do 负责串起来。
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Do 执行 op，临时性失败时按策略退避重试。
//
// 约定：
//   - Permanent/Unclassifiable 分类的失败立刻返回，即使是首次尝试；
//   - 临时失败在尝试次数耗尽后返回最后一次错误；
//   - 退避等待期间响应 ctx 取消。
//
// op 自身不应持有跨调用状态。
func Do[T any](ctx context.Context, policy Policy, log *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if log == nil {
		log = zap.NewNop()
	}

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		class := Classify(err)
		if class != Transient {
			log.Debug("outbound call failed, not retrying",
				zap.String("class", class.String()),
				zap.Error(err))
			return zero, err
		}
		if attempt+1 >= attempts {
			break
		}

		delay := policy.Delay(attempt)
		log.Debug("outbound call failed, backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
