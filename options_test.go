package wechatmp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infinitete/wechat-mp-sdk/config"
)

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{
		AppID:  "wx-from-config",
		Secret: "s3cret",
		HTTP:   config.HTTPConfig{BaseURL: "https://api.weixin.qq.com", TimeoutSeconds: 10},
		Retry: config.RetryConfig{
			MaxAttempts:     5,
			BaseDelayMillis: 200,
			JitterFraction:  0.25,
		},
		Credential: config.CredentialConfig{RefreshBufferSeconds: 60},
		Log:        config.LogConfig{Level: "warn", Format: "json"},
	}

	client, err := NewFromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, "wx-from-config", client.AppID())
	require.Equal(t, 5, client.retryPolicy.MaxAttempts)
	require.Equal(t, 200*time.Millisecond, client.retryPolicy.BaseDelay)
	require.Equal(t, 0.25, client.retryPolicy.JitterFraction)
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	_, err := NewFromConfig(nil)
	require.Error(t, err)

	cfg := &config.Config{Secret: "s"}
	_, err = NewFromConfig(cfg)
	require.Error(t, err)
}
