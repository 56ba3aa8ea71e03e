package config_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"archiplane/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearArchiplaneEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.BindAddress)
	assert.Equal(t, 1, cfg.Apply.DefaultChunkSize)
	assert.Equal(t, 20, cfg.Apply.FastChunkSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearArchiplaneEnv(t)
	os.Setenv("ARCHIPLANE_ENV", "production")
	os.Setenv("ARCHIPLANE_BIND_ADDRESS", "0.0.0.0:9000")
	os.Setenv("ARCHIPLANE_CHUNK_SIZE", "5")
	defer clearArchiplaneEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.Production, cfg.Environment)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.BindAddress)
	assert.Equal(t, 5, cfg.Apply.DefaultChunkSize)
	assert.Equal(t, "info", cfg.Logging.Level, "production forces info-level logging")
	assert.True(t, cfg.Metrics.Enabled, "production forces metrics on")
}

func TestValidate_RejectsInvalidChunkSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Apply.FastChunkSize = 1
	cfg.Apply.DefaultChunkSize = 10

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fast_chunk_size")
}

func TestValidate_RejectsGCIntervalLargerThanTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.OperationTTL = 1 * time.Minute
	cfg.Queue.GCInterval = 5 * time.Minute

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gc_interval")
}

func TestValidate_RejectsUnknownEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "qa"

	err := cfg.Validate()
	assert.Error(t, err)
}

func validConfig() *config.Config {
	return &config.Config{
		Environment: config.Development,
		Server: config.Server{
			BindAddress:     "127.0.0.1:8765",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
			RequestTimeout:  30 * time.Second,
		},
		Apply: config.Apply{
			DefaultChunkSize: 1,
			FastChunkSize:    20,
			MaxChangesPerBOM: 5000,
		},
		Queue: config.Queue{
			OperationTTL:    10 * time.Minute,
			GCInterval:      1 * time.Minute,
			MaxWorkers:      4,
			OutcomePageSize: 100,
		},
		Layout: config.Layout{
			Padding:          20,
			DefaultNodeSep:   50,
			DefaultRankSep:   75,
			DefaultDirection: "TB",
		},
		Render: config.Render{MaxWidth: 8192, MaxHeight: 8192},
		RateLimit: config.RateLimit{
			RequestsPerMinute: 200,
			Burst:             20,
		},
		Logging: config.Logging{Level: "info", Format: "json"},
		Breaker: config.Breaker{
			MaxRequests: 5,
			Timeout:     15 * time.Second,
		},
	}
}

func clearArchiplaneEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "ARCHIPLANE_") {
			os.Unsetenv(name)
		}
	}
}
