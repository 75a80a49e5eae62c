package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Host               string            `toml:"host"`
	Port               int               `toml:"port"`
	Proto              string            `toml:"proto"`
	UUID               string            `toml:"uuid"`
	ID                 string            `toml:"id"`
	URL                string            `toml:"url"`
	Verify             *bool             `toml:"verify"`
	CAFile             string            `toml:"ca_file"`
	MaxItems           int               `toml:"max_items"`
	MaxInterval        string            `toml:"max_interval"`
	HTTPTimeout        string            `toml:"http_timeout"`
	ShutdownTimeout    string            `toml:"shutdown_timeout"`
	SanitizeFieldNames *bool             `toml:"sanitize_field_names"`
	AdjustedFields     map[string]string `toml:"adjusted_fields"`
	StatusDir          string            `toml:"status_dir"`
	MetricsAddr        string            `toml:"metrics_addr"`
	LogLevel           string            `toml:"log_level"`
	Input              string            `toml:"input"`
	InputPath          string            `toml:"input_path"`
	NATSURL            string            `toml:"nats_url"`
	NATSSubject        string            `toml:"nats_subject"`
	NATSQueue          string            `toml:"nats_queue"`
	RedisURL           string            `toml:"redis_url"`
	RedisKey           string            `toml:"redis_key"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// LoadAdjustments reads only the adjusted_fields table of a config file.
// It returns nil when the file has no such table.
func LoadAdjustments(path string) (map[string]string, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return fc.AdjustedFields, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.loginsight/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".loginsight", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("proto", fc.Proto, &cfg.Proto)
	s.setString("uuid", fc.UUID, &cfg.UUID)
	s.setString("id", fc.ID, &cfg.ID)
	s.setString("url", fc.URL, &cfg.URL)
	s.setString("ca-file", fc.CAFile, &cfg.CAFile)
	s.setString("status-dir", fc.StatusDir, &cfg.StatusDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("input-path", fc.InputPath, &cfg.InputPath)
	s.setString("nats-url", fc.NATSURL, &cfg.NATSURL)
	s.setString("nats-subject", fc.NATSSubject, &cfg.NATSSubject)
	s.setString("nats-queue", fc.NATSQueue, &cfg.NATSQueue)
	s.setString("redis-url", fc.RedisURL, &cfg.RedisURL)
	s.setString("redis-key", fc.RedisKey, &cfg.RedisKey)

	if err := s.setDuration("max-interval", fc.MaxInterval, &cfg.MaxInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("max-items", fc.MaxItems, &cfg.MaxItems)

	s.setBool("verify", fc.Verify, &cfg.Verify)
	s.setBool("sanitize", fc.SanitizeFieldNames, &cfg.SanitizeFieldNames)

	s.setAdjustments("adjusted-fields", fc.AdjustedFields, &cfg.AdjustedFields)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
