package cliconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
	"github.com/ellieayla/logstash-output-loginsight/pkg/loginsight"
)

// Input names accepted by the --input flag.
const (
	InputStdin = "stdin"
	InputFile  = "file"
	InputNATS  = "nats"
	InputRedis = "redis"
)

// Config holds CLI configuration for loginsight-forward.
type Config struct {
	Host   string
	Port   int
	Proto  string
	UUID   string
	ID     string
	URL    string
	Verify bool
	CAFile string

	MaxItems        int
	MaxInterval     time.Duration
	HTTPTimeout     time.Duration
	ShutdownTimeout time.Duration

	SanitizeFieldNames bool
	AdjustedFields     map[string]string

	StatusDir   string
	MetricsAddr string
	LogLevel    string

	Input       string
	InputPath   string
	NATSURL     string
	NATSSubject string
	NATSQueue   string
	RedisURL    string
	RedisKey    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:               loginsight.DefaultPort,
		Proto:              loginsight.DefaultProto,
		Verify:             true,
		MaxItems:           loginsight.DefaultMaxItems,
		MaxInterval:        loginsight.DefaultMaxInterval,
		HTTPTimeout:        loginsight.DefaultHTTPTimeout,
		ShutdownTimeout:    loginsight.DefaultShutdownTimeout,
		SanitizeFieldNames: true,
		LogLevel:           "info",
		Input:              InputStdin,
		NATSSubject:        "logs.>",
		RedisKey:           "logstash",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Input {
	case InputStdin:
	case InputFile:
		if c.InputPath == "" {
			return fmt.Errorf("input-path is required for file input")
		}
	case InputNATS:
		if c.NATSSubject == "" {
			return fmt.Errorf("nats-subject is required for nats input")
		}
	case InputRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis-url is required for redis input")
		}
	default:
		return fmt.Errorf("unknown input %q (want stdin, file, nats or redis)", c.Input)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	cfg := c.ToConfig()
	return cfg.Validate()
}

// ToConfig converts the CLI configuration into forwarder settings.
func (c *Config) ToConfig() loginsight.Config {
	return loginsight.Config{
		Host:               c.Host,
		Port:               c.Port,
		Proto:              c.Proto,
		UUID:               c.UUID,
		ID:                 c.ID,
		URL:                c.URL,
		InsecureSkipVerify: !c.Verify,
		CAFile:             c.CAFile,
		MaxItems:           c.MaxItems,
		MaxInterval:        c.MaxInterval,
		HTTPTimeout:        c.HTTPTimeout,
		ShutdownTimeout:    c.ShutdownTimeout,
		DisableSanitize:    !c.SanitizeFieldNames,
		AdjustedFields:     c.AdjustedFields,
		StatusDir:          c.StatusDir,
	}
}

// ParseAdjustments reads a comma-separated list of name=replacement pairs.
// An empty replacement drops the field: "host=hostname,secret=".
func ParseAdjustments(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, replacement, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid adjustment %q (want name=replacement)", pair)
		}
		m[name] = strings.TrimSpace(replacement)
	}
	return m, nil
}

// FormatAdjustments is the inverse of ParseAdjustments, with names sorted.
func FormatAdjustments(m map[string]string) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + m[name]
	}
	return strings.Join(pairs, ",")
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setAdjustments replaces the table if one was given and the flag is not set.
func (s *configSetter) setAdjustments(flag string, value map[string]string, dst *map[string]string) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setAdjustmentsFromString parses name=replacement pairs from a string.
func (s *configSetter) setAdjustmentsFromString(flag, value string, dst *map[string]string) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	m, err := ParseAdjustments(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = m
	return nil
}
