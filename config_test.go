package xbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BRIDGE_SECRET", "s3cr3t")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.InsecureSecret)
	assert.Equal(t, "xbridge-producer-001", cfg.ProducerID)
	assert.Equal(t, "./staging", cfg.StagingDir)
	assert.Equal(t, "filesystem", cfg.Sink)
	assert.Equal(t, "json", cfg.Codec)
	assert.Zero(t, cfg.SaveTimeout)
	assert.Equal(t, map[string]any{"dir": "./staging"}, cfg.SinkConfig())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("BRIDGE_SECRET", "")

	_, err := LoadConfig()
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "BRIDGE_SECRET", ce.Field)
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestLoadConfig_InsecureFallbackIsExplicit(t *testing.T) {
	t.Setenv("BRIDGE_SECRET", "")
	t.Setenv("BRIDGE_ALLOW_INSECURE_SECRET", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSecret)

	p, err := NewProducerBuilder().
		WithConfig(cfg).
		WithSinkInstance(newFakeSink()).
		WithClock(fixedClock{t: testTime}).
		Build()
	require.NoError(t, err)
	b, err := p.Create(metricsValue())
	require.NoError(t, err)
	assert.Equal(t, metricsSignature, b.Signature())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("BRIDGE_SECRET", "s3cr3t")
	t.Setenv("PRODUCER_ID", " ts-producer-001 ")
	t.Setenv("STAGING_DIR", "../../staging")
	t.Setenv("BRIDGE_SINK", "redis-streams")
	t.Setenv("BRIDGE_CODEC", "cbor")
	t.Setenv("BRIDGE_SAVE_TIMEOUT", "3s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_STREAM", "bundles")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ts-producer-001", cfg.ProducerID)
	assert.Equal(t, "cbor", cfg.Codec)
	assert.Equal(t, 3*time.Second, cfg.SaveTimeout)
	assert.Equal(t, map[string]any{"addr": "redis:6379", "stream": "bundles"}, cfg.SinkConfig())
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"empty producer": {"PRODUCER_ID": "  "},
		"empty sink":     {"BRIDGE_SINK": " "},
		"bad bool":       {"BRIDGE_ALLOW_INSECURE_SECRET": "maybe"},
		"bad duration":   {"BRIDGE_SAVE_TIMEOUT": "soon"},
		"negative":       {"BRIDGE_SAVE_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("BRIDGE_SECRET", "s3cr3t")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			var ce *ConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestConfig_S3SinkConfig(t *testing.T) {
	cfg := Config{Sink: "s3", S3Bucket: "b", S3Prefix: "staging/", S3Endpoint: "localhost:9000"}
	assert.Equal(t, map[string]any{
		"bucket":   "b",
		"prefix":   "staging/",
		"endpoint": "localhost:9000",
	}, cfg.SinkConfig())

	assert.Empty(t, Config{Sink: "memory"}.SinkConfig())
}
