package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultMaxUploadBytes = 50 << 20 // 50MiB

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Upload  UploadConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Upload: UploadConfig{
			MaxBytes: defaultMaxUploadBytes,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from DOCSTASH_* environment variables.
//
// DOCSTASH_DATA_DIR and DOCSTASH_UPLOAD_DIR are required; Load fails listing
// every missing variable rather than falling back to an insecure default.
func Load() (Config, error) {
	return loadWith(os.Getenv)
}

func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()

	if v := getenv("DOCSTASH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("invalid DOCSTASH_PORT %q", v)
		}
		cfg.Server.Port = port
	}

	if v := getenv("DOCSTASH_MAX_UPLOAD_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil || size <= 0 {
			return Config{}, fmt.Errorf("invalid DOCSTASH_MAX_UPLOAD_SIZE %q", v)
		}
		cfg.Upload.MaxBytes = size
	}

	if v := getenv("DOCSTASH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.Storage.DataDir = getenv("DOCSTASH_DATA_DIR")
	cfg.Upload.Dir = getenv("DOCSTASH_UPLOAD_DIR")

	var missing []string
	if cfg.Storage.DataDir == "" {
		missing = append(missing, "DOCSTASH_DATA_DIR")
	}
	if cfg.Upload.Dir == "" {
		missing = append(missing, "DOCSTASH_UPLOAD_DIR")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
