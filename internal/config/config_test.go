package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.vapi.ai", cfg.VapiAPIURL)
	assert.Equal(t, "vapi-private-key", cfg.VapiPrivateKey)
	assert.Equal(t, "ca5f8a12-ba36-4a82-9a9f-115336a2218e", cfg.DefaultUserID)
	assert.Equal(t, 5, cfg.FetchMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.FetchInitialDelay)
	assert.False(t, cfg.FetchWaitAfterEnd)
	assert.Equal(t, "gpt-4o-mini", cfg.AIModel)
	assert.Equal(t, 24*time.Hour, cfg.CallLockTTL)
	assert.Equal(t, "session_ended_events", cfg.SessionEndedQueue)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VAPI_API_URL", "http://vapi.local")
	t.Setenv("VAPI_PRIVATE_KEY", "secret-key")
	t.Setenv("FETCH_MAX_ATTEMPTS", "3")
	t.Setenv("FETCH_INITIAL_DELAY", "500ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://vapi.local", cfg.VapiAPIURL)
	assert.Equal(t, "secret-key", cfg.VapiPrivateKey)
	assert.Equal(t, 3, cfg.FetchMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.FetchInitialDelay)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad user id", env: map[string]string{"OPENAI_API_KEY": "k", "DEFAULT_USER_ID": "not-a-uuid"}},
		{name: "zero attempts", env: map[string]string{"OPENAI_API_KEY": "k", "FETCH_MAX_ATTEMPTS": "0"}},
		{name: "unknown ai client", env: map[string]string{"OPENAI_API_KEY": "k", "AI_CLIENT_TYPE": "bard"}},
		{name: "openai without key", env: map[string]string{"OPENAI_API_KEY": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", cfg.GetDSN())
}
