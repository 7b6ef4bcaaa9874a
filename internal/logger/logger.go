// Package logger builds the process logger and carries request-scoped loggers in contexts.
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure the process logger.
type Options struct {
	Env     string // prod, local, dev, docker
	Level   string // debug, info, warn, error; empty picks the env default
	Service string
	Version string
	Output  zapcore.WriteSyncer // default: stdout for prod, stderr otherwise
}

// New creates a zap logger.
// prod writes sampled JSON with ISO8601 "ts"; the other envs write colored console lines.
func New(opts Options) (*zap.Logger, error) {
	var (
		encoder zapcore.Encoder
		out     zapcore.WriteSyncer
	)
	level := zapcore.DebugLevel

	switch opts.Env {
	case "prod":
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "ts"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(enc)
		level = zapcore.InfoLevel
		out = zapcore.Lock(os.Stdout)
	case "local", "dev", "docker":
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(enc)
		out = zapcore.Lock(os.Stderr)
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", opts.Env)
	}

	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Output != nil {
		out = opts.Output
	}

	core := zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(level))
	if opts.Env == "prod" {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}

	var fields []zap.Field
	if opts.Service != "" {
		fields = append(fields, zap.String("service", opts.Service))
	}
	if opts.Version != "" {
		fields = append(fields, zap.String("version", opts.Version))
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(out),
		zap.Fields(fields...),
	), nil
}
