package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "MODEL_PATH", "testdata/model.json")
	setEnv(t, "SCORE_TIMEOUT_MS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "testdata/model.json", cfg.ModelPath)
	assert.Equal(t, 25*time.Millisecond, cfg.ScoreTimeout)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimitRPS)
	assert.Equal(t, 0.0, cfg.BlockThreshold)
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "MODEL_PATH", "")
	setEnv(t, "SCORE_TIMEOUT_MS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultModelPath, cfg.ModelPath)
	assert.Equal(t, DefaultScoreTimeoutMS*time.Millisecond, cfg.ScoreTimeout)
}

func TestLoad_InvalidThreshold(t *testing.T) {
	setEnv(t, "BLOCK_THRESHOLD", "1.5")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "BLOCK_THRESHOLD")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid config",
			config: Config{
				ModelPath:    "model/fraud_model.json",
				ScoreTimeout: 50 * time.Millisecond,
			},
			wantErr: "",
		},
		{
			name: "missing model path",
			config: Config{
				ModelPath:    "",
				ScoreTimeout: 50 * time.Millisecond,
			},
			wantErr: "MODEL_PATH is required",
		},
		{
			name: "negative threshold",
			config: Config{
				ModelPath:      "model/fraud_model.json",
				BlockThreshold: -0.1,
				ScoreTimeout:   50 * time.Millisecond,
			},
			wantErr: "BLOCK_THRESHOLD",
		},
		{
			name: "zero timeout",
			config: Config{
				ModelPath: "model/fraud_model.json",
			},
			wantErr: "SCORE_TIMEOUT_MS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}

func TestGetEnvFloat(t *testing.T) {
	setEnv(t, "TEST_FLOAT", "0.85")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, 0.85, getEnvFloat("TEST_FLOAT", 0))
	assert.Equal(t, 0.5, getEnvFloat("NONEXISTENT_VAR", 0.5))
	assert.Equal(t, 0.5, getEnvFloat("TEST_INVALID", 0.5))
}
