package ports

import "github.com/ellieayla/logstash-output-loginsight/pkg/log"

// Logger is the logging port used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for internal packages.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
