package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestDoSuccessFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", wxerror.NewAPIError(wxerror.CodeSystemBusy, "system busy")
		}
		return "T1", nil
	})
	require.NoError(t, err)
	require.Equal(t, "T1", v)
	require.Equal(t, 3, calls)
}

func TestDoPermanentNeverRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (int, error) {
		calls++
		return 0, wxerror.NewAPIError(wxerror.CodeInvalidAppSecret, "invalid appsecret")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls, "permanent failure must not be retried even on the first attempt")
	require.Equal(t, wxerror.CodeInvalidAppSecret, wxerror.Code(err))
}

func TestDoDecodeMismatchSingleAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (int, error) {
		calls++
		return 0, &wxerror.DecodeError{Err: errors.New("unexpected shape")}
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoUnclassifiableNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("mystery failure")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoExhaustsAttemptsReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) (int, error) {
		calls++
		return 0, &wxerror.TransportError{Err: errors.New("connection refused")}
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	var transportErr *wxerror.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestDoZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, nil, func(context.Context) (int, error) {
		calls++
		return 0, &wxerror.TransportError{Err: errors.New("down")}
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Hour}
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, policy, nil, func(context.Context) (int, error) {
			calls++
			return 0, &wxerror.TransportError{Err: errors.New("down")}
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}
