package s3

import (
	"fmt"
	"strings"
)

// Config for the S3 (or S3-compatible, e.g. MinIO) sink.
type Config struct {
	Bucket string
	// Prefix is prepended to artifact names, e.g. "staging/".
	Prefix          string
	Region          string
	Endpoint        string // empty = AWS; "localhost:9000" or a full URL for MinIO
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	ForcePathStyle  bool // required for MinIO
	// AutoCreate creates Bucket on first write when it does not exist.
	AutoCreate bool
}

// Defaults returns a Config with AWS defaults.
func Defaults() Config {
	return Config{
		Region:     "us-east-1",
		UseSSL:     true,
		AutoCreate: true,
	}
}

// Validate checks Config.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("config: bucket required")
	}
	if c.Region == "" {
		return fmt.Errorf("config: region required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("config: access_key_id and secret_access_key must be set together")
	}
	return nil
}

// endpointURL returns the base endpoint, or "" for AWS.
func (c Config) endpointURL() string {
	if c.Endpoint == "" {
		return ""
	}
	if strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	scheme := "https"
	if !c.UseSSL {
		scheme = "http"
	}
	return scheme + "://" + c.Endpoint
}

func (c Config) toMap() map[string]any {
	return map[string]any{
		"bucket":            c.Bucket,
		"prefix":            c.Prefix,
		"region":            c.Region,
		"endpoint":          c.Endpoint,
		"access_key_id":     c.AccessKeyID,
		"secret_access_key": c.SecretAccessKey,
		"use_ssl":           c.UseSSL,
		"force_path_style":  c.ForcePathStyle,
		"auto_create":       c.AutoCreate,
	}
}

// ConfigFromMap converts a generic map to Config with defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	str := func(k string, dst *string) {
		if v, ok := m[k].(string); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(k string, dst *bool) {
		if v, ok := m[k].(bool); ok {
			*dst = v
		}
	}

	str("bucket", &c.Bucket)
	str("prefix", &c.Prefix)
	str("region", &c.Region)
	str("endpoint", &c.Endpoint)
	str("access_key_id", &c.AccessKeyID)
	str("secret_access_key", &c.SecretAccessKey)
	boolean("use_ssl", &c.UseSSL)
	boolean("force_path_style", &c.ForcePathStyle)
	boolean("auto_create", &c.AutoCreate)

	// A custom endpoint implies path-style addressing unless set explicitly.
	if _, set := m["force_path_style"]; !set && c.Endpoint != "" {
		c.ForcePathStyle = true
	}
	return c
}
