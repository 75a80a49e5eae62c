package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGINSIGHT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("LOGINSIGHT_HOST"), &cfg.Host)
	s.setString("proto", os.Getenv("LOGINSIGHT_PROTO"), &cfg.Proto)
	s.setString("uuid", os.Getenv("LOGINSIGHT_UUID"), &cfg.UUID)
	s.setString("id", os.Getenv("LOGINSIGHT_ID"), &cfg.ID)
	s.setString("url", os.Getenv("LOGINSIGHT_URL"), &cfg.URL)
	s.setString("ca-file", os.Getenv("LOGINSIGHT_CA_FILE"), &cfg.CAFile)
	s.setString("status-dir", os.Getenv("LOGINSIGHT_STATUS_DIR"), &cfg.StatusDir)
	s.setString("metrics-addr", os.Getenv("LOGINSIGHT_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("LOGINSIGHT_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("input", os.Getenv("LOGINSIGHT_INPUT"), &cfg.Input)
	s.setString("input-path", os.Getenv("LOGINSIGHT_INPUT_PATH"), &cfg.InputPath)
	s.setString("nats-url", os.Getenv("LOGINSIGHT_NATS_URL"), &cfg.NATSURL)
	s.setString("nats-subject", os.Getenv("LOGINSIGHT_NATS_SUBJECT"), &cfg.NATSSubject)
	s.setString("nats-queue", os.Getenv("LOGINSIGHT_NATS_QUEUE"), &cfg.NATSQueue)
	s.setString("redis-url", os.Getenv("LOGINSIGHT_REDIS_URL"), &cfg.RedisURL)
	s.setString("redis-key", os.Getenv("LOGINSIGHT_REDIS_KEY"), &cfg.RedisKey)

	if err := s.setDuration("max-interval", os.Getenv("LOGINSIGHT_MAX_INTERVAL"), &cfg.MaxInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("LOGINSIGHT_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("LOGINSIGHT_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("port", os.Getenv("LOGINSIGHT_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("max-items", os.Getenv("LOGINSIGHT_MAX_ITEMS"), &cfg.MaxItems); err != nil {
		return err
	}

	s.setBoolFromString("verify", os.Getenv("LOGINSIGHT_VERIFY"), &cfg.Verify)
	s.setBoolFromString("sanitize", os.Getenv("LOGINSIGHT_SANITIZE_FIELD_NAMES"), &cfg.SanitizeFieldNames)

	return s.setAdjustmentsFromString("adjusted-fields", os.Getenv("LOGINSIGHT_ADJUSTED_FIELDS"), &cfg.AdjustedFields)
}
