package config

import (
	"fmt"
	"strings"
	"time"
)

// StorageConfig configures the S3-compatible object store holding product images.
// Endpoint is empty for AWS and set for MinIO, R2 and similar providers.
type StorageConfig struct {
	Bucket    string        `koanf:"bucket"`
	Region    string        `koanf:"region"`
	Key       string        `koanf:"key"`
	Secret    string        `koanf:"secret"`
	Endpoint  string        `koanf:"endpoint"`
	PublicURL string        `koanf:"publicurl"`
	Timeout   time.Duration `koanf:"timeout"`
}

const defaultStorageRegion = "us-east-1"

// String returns a string representation of the storage configuration.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Object Storage ---\n")
	b.WriteString(fmt.Sprintf("  bucket: %s\n", c.Bucket))
	b.WriteString(fmt.Sprintf("  region: %s\n", c.Region))
	b.WriteString(fmt.Sprintf("  key: %s\n", mask(c.Key)))
	b.WriteString(fmt.Sprintf("  secret: %s\n", mask(c.Secret)))
	b.WriteString(fmt.Sprintf("  endpoint: %s\n", c.Endpoint))
	b.WriteString(fmt.Sprintf("  publicurl: %s\n", c.BaseURL()))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *StorageConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("storage bucket is not configured")
	}
	if c.Region == "" {
		c.Region = defaultStorageRegion
	}
	if (c.Key == "") != (c.Secret == "") {
		return fmt.Errorf("storage key and secret must be configured together")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be greater than 0")
	}
	return nil
}

// BaseURL returns the public URL prefix of stored objects without a trailing slash.
func (c *StorageConfig) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
}

func mask(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}
