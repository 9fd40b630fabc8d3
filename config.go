package xbridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// InsecureDefaultSecret is the well-known demo key. It is only used when
// BRIDGE_ALLOW_INSECURE_SECRET is set, and bundles signed with it prove
// nothing about their origin.
const InsecureDefaultSecret = "demo-secret-key"

// envConfig mirrors the process environment before validation.
type envConfig struct {
	Secret              string        `env:"BRIDGE_SECRET"`
	AllowInsecureSecret bool          `env:"BRIDGE_ALLOW_INSECURE_SECRET" envDefault:"false"`
	StagingDir          string        `env:"STAGING_DIR"                  envDefault:"./staging"`
	ProducerID          string        `env:"PRODUCER_ID"                  envDefault:"xbridge-producer-001"`
	Sink                string        `env:"BRIDGE_SINK"                  envDefault:"filesystem"`
	Codec               string        `env:"BRIDGE_CODEC"                 envDefault:"json"`
	SaveTimeout         time.Duration `env:"BRIDGE_SAVE_TIMEOUT"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisStream   string `env:"REDIS_STREAM"`

	S3Bucket   string `env:"S3_BUCKET"`
	S3Prefix   string `env:"S3_PREFIX"`
	S3Region   string `env:"S3_REGION"`
	S3Endpoint string `env:"S3_ENDPOINT"`
}

// Config is the validated producer configuration.
type Config struct {
	Key Key
	// InsecureSecret reports that Key is InsecureDefaultSecret.
	InsecureSecret bool
	ProducerID     string
	StagingDir     string
	Sink           string
	Codec          string
	SaveTimeout    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisStream   string

	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, &ConfigurationError{Field: "env", Reason: "parse environment", Err: err}
	}
	return raw.validate()
}

func (raw envConfig) validate() (Config, error) {
	cfg := Config{
		ProducerID:    strings.TrimSpace(raw.ProducerID),
		StagingDir:    strings.TrimSpace(raw.StagingDir),
		Sink:          strings.TrimSpace(raw.Sink),
		Codec:         strings.TrimSpace(raw.Codec),
		SaveTimeout:   raw.SaveTimeout,
		RedisAddr:     raw.RedisAddr,
		RedisPassword: raw.RedisPassword,
		RedisStream:   raw.RedisStream,
		S3Bucket:      raw.S3Bucket,
		S3Prefix:      raw.S3Prefix,
		S3Region:      raw.S3Region,
		S3Endpoint:    raw.S3Endpoint,
	}

	secret := raw.Secret
	if secret == "" {
		if !raw.AllowInsecureSecret {
			return Config{}, &ConfigurationError{
				Field:  "BRIDGE_SECRET",
				Reason: "secret is not set; set BRIDGE_ALLOW_INSECURE_SECRET=true to use the demo key",
				Err:    ErrNoKey,
			}
		}
		secret = InsecureDefaultSecret
		cfg.InsecureSecret = true
	}
	key, err := NewKey([]byte(secret))
	if err != nil {
		return Config{}, &ConfigurationError{Field: "BRIDGE_SECRET", Reason: "invalid secret", Err: err}
	}
	cfg.Key = key

	if cfg.ProducerID == "" {
		return Config{}, &ConfigurationError{Field: "PRODUCER_ID", Reason: "must not be empty"}
	}
	if cfg.Sink == "" {
		return Config{}, &ConfigurationError{Field: "BRIDGE_SINK", Reason: "must not be empty"}
	}
	if cfg.Codec == "" {
		cfg.Codec = "json"
	}
	if cfg.SaveTimeout < 0 {
		return Config{}, &ConfigurationError{Field: "BRIDGE_SAVE_TIMEOUT", Reason: fmt.Sprintf("must be >= 0, got %v", cfg.SaveTimeout)}
	}
	return cfg, nil
}

// SinkConfig returns the adapter settings for cfg.Sink, suitable for NewSink.
// Empty values are left out so adapter defaults apply.
func (c Config) SinkConfig() map[string]any {
	m := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	switch c.Sink {
	case "filesystem":
		put("dir", c.StagingDir)
	case "redis-streams":
		put("addr", c.RedisAddr)
		put("password", c.RedisPassword)
		put("stream", c.RedisStream)
	case "s3":
		put("bucket", c.S3Bucket)
		put("prefix", c.S3Prefix)
		put("region", c.S3Region)
		put("endpoint", c.S3Endpoint)
	}
	return m
}
