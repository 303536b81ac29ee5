package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the claimkeeper CLI.
//
// Paths left empty are derived from DataDir by Resolve.
type Config struct {
	DataDir       string
	MetadataDSN   string
	BlobBackend   string
	BlobPath      string
	BlobCacheSize int

	SaveInterval time.Duration
	MaxFileSize  int64
	AllowedTypes []string

	ExportDir   string
	ExportDelay time.Duration

	BridgeAddr    string
	BridgeTimeout time.Duration

	InboxDir string

	LogLevel  string
	LogFormat string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "./data"
	c.BlobBackend = "bolt"
	c.BlobCacheSize = 64
	c.SaveInterval = 30 * time.Second
	c.MaxFileSize = 10 << 20
	c.AllowedTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/gif", "image/webp"}
	c.ExportDir = "./exports"
	c.ExportDelay = 300 * time.Millisecond
	c.BridgeAddr = "127.0.0.1:8765"
	c.BridgeTimeout = 1500 * time.Millisecond
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Resolve fills the store paths that were not set explicitly.
func (c *Config) Resolve() {
	if c.MetadataDSN == "" {
		c.MetadataDSN = filepath.Join(c.DataDir, "claim.db")
	}
	if c.BlobPath == "" {
		c.BlobPath = filepath.Join(c.DataDir, "files.bolt")
	}
}

// S3Enabled reports whether exports should also go to a bucket.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.Resolve()
	return cfg
}
