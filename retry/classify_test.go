package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infinitete/wechat-mp-sdk/wxerror"
)

func TestClassifyAPICodes(t *testing.T) {
	require.Equal(t, Transient, Classify(wxerror.NewAPIError(wxerror.CodeSystemBusy, "system busy")))
	require.Equal(t, Transient, Classify(wxerror.NewAPIError(wxerror.CodeRateLimit, "reach max api daily quota limit")))
	require.Equal(t, Transient, Classify(wxerror.NewAPIError(wxerror.CodeAPIBanned, "api minute-quota reach limit")))

	require.Equal(t, Permanent, Classify(wxerror.NewAPIError(wxerror.CodeInvalidAppID, "invalid appid")))
	require.Equal(t, Permanent, Classify(wxerror.NewAPIError(wxerror.CodeInvalidAppSecret, "invalid appsecret")))
	require.Equal(t, Permanent, Classify(wxerror.NewAPIError(wxerror.CodeInvalidCredential, "invalid credential")))
	require.Equal(t, Permanent, Classify(wxerror.NewAPIError(wxerror.CodeTokenExpired, "access_token expired")))

	// 未知业务错误码保守处理为不可分类
	require.Equal(t, Unclassifiable, Classify(wxerror.NewAPIError(48001, "api unauthorized")))
}

func TestClassifyTransport(t *testing.T) {
	require.Equal(t, Transient, Classify(&wxerror.TransportError{Err: errors.New("connection refused")}))
	require.Equal(t, Transient, Classify(&net.DNSError{Err: "no such host", IsNotFound: true}))
	require.Equal(t, Transient, Classify(context.DeadlineExceeded))
}

func TestClassifyDecodeNeverRetryable(t *testing.T) {
	err := &wxerror.DecodeError{Err: errors.New("json: cannot unmarshal")}
	require.Equal(t, Permanent, Classify(err))
	require.Equal(t, Permanent, Classify(fmt.Errorf("call: %w", err)))
}

func TestClassifyHTTPStatus(t *testing.T) {
	require.Equal(t, Transient, Classify(&wxerror.HTTPStatusError{StatusCode: 502}))
	require.Equal(t, Transient, Classify(&wxerror.HTTPStatusError{StatusCode: 429}))
	require.Equal(t, Unclassifiable, Classify(&wxerror.HTTPStatusError{StatusCode: 404}))
}

func TestClassifyCancelledContext(t *testing.T) {
	require.Equal(t, Permanent, Classify(context.Canceled))
}

func TestClassifyUnknown(t *testing.T) {
	require.Equal(t, Unclassifiable, Classify(errors.New("something odd")))
	require.False(t, Retryable(errors.New("something odd")))
	require.True(t, Retryable(wxerror.NewAPIError(wxerror.CodeSystemBusy, "busy")))
}
