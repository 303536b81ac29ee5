package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/flagx"
	"github.com/dmitrijs2005/claimkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// mean "not set" and leave the current Config untouched.
type JsonConfig struct {
	DataDir       string         `json:"data_dir"`
	MetadataDSN   string         `json:"metadata_dsn"`
	BlobBackend   string         `json:"blob_backend"`
	BlobPath      string         `json:"blob_path"`
	BlobCacheSize int            `json:"blob_cache_size"`
	SaveInterval  timex.Duration `json:"save_interval"`
	MaxFileSize   int64          `json:"max_file_size"`
	AllowedTypes  []string       `json:"allowed_types"`
	ExportDir     string         `json:"export_dir"`
	ExportDelay   timex.Duration `json:"export_delay"`
	BridgeAddr    string         `json:"bridge_addr"`
	BridgeTimeout timex.Duration `json:"bridge_timeout"`
	InboxDir      string         `json:"inbox_dir"`
	LogLevel      string         `json:"log_level"`
	LogFormat     string         `json:"log_format"`
	S3            JsonS3Config   `json:"s3"`
}

type JsonS3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson overlays Config with values loaded from a JSON file located via
// flagx.JsonConfigFlags. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.MetadataDSN, jc.MetadataDSN)
	setString(&cfg.BlobBackend, jc.BlobBackend)
	setString(&cfg.BlobPath, jc.BlobPath)
	if jc.BlobCacheSize != 0 {
		cfg.BlobCacheSize = jc.BlobCacheSize
	}
	setDuration(&cfg.SaveInterval, jc.SaveInterval)
	if jc.MaxFileSize > 0 {
		cfg.MaxFileSize = jc.MaxFileSize
	}
	if len(jc.AllowedTypes) > 0 {
		cfg.AllowedTypes = jc.AllowedTypes
	}
	setString(&cfg.ExportDir, jc.ExportDir)
	setDuration(&cfg.ExportDelay, jc.ExportDelay)
	setString(&cfg.BridgeAddr, jc.BridgeAddr)
	setDuration(&cfg.BridgeTimeout, jc.BridgeTimeout)
	setString(&cfg.InboxDir, jc.InboxDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setString(&cfg.S3Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3Region, jc.S3.Region)
	setString(&cfg.S3Bucket, jc.S3.Bucket)
	setString(&cfg.S3Prefix, jc.S3.Prefix)
	setString(&cfg.S3AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3SecretKey, jc.S3.SecretKey)
}
