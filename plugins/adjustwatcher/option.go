package adjustwatcher

import "github.com/ellieayla/logstash-output-loginsight/pkg/loginsight"

// WithAdjustWatcher returns a loginsight Option that reloads adjusted_fields
// from path whenever the file changes.
//
// Usage:
//
//	fwd, err := loginsight.New(cfg,
//	    adjustwatcher.WithAdjustWatcher(adjustwatcher.Config{
//	        Path: "/etc/loginsight/config.toml",
//	    }),
//	)
func WithAdjustWatcher(cfg Config) loginsight.Option {
	return loginsight.WithPlugin(New(cfg))
}
