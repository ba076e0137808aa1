package wxerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorMessage(t *testing.T) {
	err := NewAPIError(40013, "invalid appid")
	require.Equal(t, "wechat api error (errcode=40013): invalid appid", err.Error())

	err = NewAPIError(-1, "")
	require.Equal(t, "wechat api error (errcode=-1): unknown error", err.Error())
}

func TestIsTokenInvalid(t *testing.T) {
	for _, code := range []int{CodeInvalidCredential, CodeInvalidToken, CodeTokenExpired} {
		require.True(t, IsTokenInvalid(NewAPIError(code, "invalid")), "code %d", code)
	}

	require.False(t, IsTokenInvalid(NewAPIError(CodeRateLimit, "rate limited")))
	require.False(t, IsTokenInvalid(&TransportError{Err: errors.New("refused")}))
	require.False(t, IsTokenInvalid(nil))
}

func TestIsTokenInvalidWrapped(t *testing.T) {
	err := fmt.Errorf("call failed: %w", NewAPIError(CodeTokenExpired, "expired"))
	require.True(t, IsTokenInvalid(err))
}

func TestCode(t *testing.T) {
	require.Equal(t, 45009, Code(NewAPIError(45009, "limit")))
	require.Equal(t, 45009, Code(fmt.Errorf("wrapped: %w", NewAPIError(45009, "limit"))))
	require.Equal(t, 0, Code(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	require.ErrorIs(t, &TransportError{Err: inner}, inner)
	require.ErrorIs(t, &DecodeError{Err: inner}, inner)
}
