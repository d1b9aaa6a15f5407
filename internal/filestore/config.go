package filestore

import (
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"

	// ProviderMemory keeps objects in process memory until exit.
	ProviderMemory Provider = "memory"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend. Empty disables object storage.
	Provider Provider `koanf:"provider"`

	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	Endpoint string `koanf:"endpoint"`

	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `koanf:"region"`

	// Bucket holds uploaded data sources and saved model documents.
	Bucket string `koanf:"bucket"`
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    "datamodeler",
	}
}

// Enabled reports whether a provider is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Provider != ""
}

// Validate checks the fields the configured provider needs.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errs.New(errs.ErrKindInvalidInput, "file store bucket is required")
	}
	switch c.Provider {
	case ProviderMemory:
		return nil
	case ProviderMinIO:
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown file store provider %q", c.Provider)
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return errs.New(errs.ErrKindInvalidInput, "file store endpoint is required")
	}
	return nil
}
