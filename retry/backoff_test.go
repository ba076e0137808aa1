package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayWithinBounds(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, JitterFraction: 0.5}

	for attempt := 0; attempt < 5; attempt++ {
		base := time.Duration(attempt+1) * p.BaseDelay
		lo := base - time.Duration(0.5*float64(base))
		hi := base + time.Duration(0.5*float64(base))
		for i := 0; i < 50; i++ {
			d := p.Delay(attempt)
			require.GreaterOrEqual(t, d, time.Duration(0))
			require.GreaterOrEqual(t, d, lo)
			require.LessOrEqual(t, d, hi)
		}
	}
}

func TestDelayNoJitterIsDeterministic(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond}
	require.Equal(t, 100*time.Millisecond, p.Delay(0))
	require.Equal(t, 200*time.Millisecond, p.Delay(1))
	require.Equal(t, 300*time.Millisecond, p.Delay(2))
}

func TestDelayNeverNegative(t *testing.T) {
	// 抖动比例拉满也不能产生负延迟
	p := Policy{BaseDelay: time.Millisecond, JitterFraction: 1}
	for i := 0; i < 200; i++ {
		require.GreaterOrEqual(t, p.Delay(0), time.Duration(0))
	}

	p = Policy{BaseDelay: 0, JitterFraction: 5}
	require.Equal(t, time.Duration(0), p.Delay(3))
	require.Equal(t, time.Duration(0), p.Delay(-1))
}

func TestDelayJitterVaries(t *testing.T) {
	p := Policy{BaseDelay: time.Second, JitterFraction: 0.5}
	seen := map[time.Duration]struct{}{}
	for i := 0; i < 20; i++ {
		seen[p.Delay(2)] = struct{}{}
	}
	require.GreaterOrEqual(t, len(seen), 2, "expected varied jitter across calls")
}

func TestExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	require.False(t, p.Exhausted(0))
	require.False(t, p.Exhausted(1))
	require.True(t, p.Exhausted(2))

	// MaxAttempts <= 0 等同于单次尝试
	require.True(t, Policy{}.Exhausted(0))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 3, p.MaxAttempts)
	require.Equal(t, 100*time.Millisecond, p.BaseDelay)
	require.InDelta(t, 0.5, p.JitterFraction, 0.0001)
}
