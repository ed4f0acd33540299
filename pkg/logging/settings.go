package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	initialSampling    = 100
	thereafterSampling = 100

	JSONEncoding    = "json"
	ConsoleEncoding = "console"

	serviceFieldName = "service"
)

type settings struct {
	config *zap.Config
	opts   []zap.Option
}

// Option adjusts the logger settings before the logger is built.
type Option func(*settings)

// WithEncoding selects the zap encoder. Unknown values keep JSON.
func WithEncoding(encoding string) Option {
	return func(s *settings) {
		if encoding == ConsoleEncoding {
			s.config.Encoding = ConsoleEncoding
			s.config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
}

// WithService stamps every entry with the service name.
func WithService(name string) Option {
	return func(s *settings) {
		if name == "" {
			return
		}
		s.config.InitialFields = map[string]any{serviceFieldName: name}
	}
}

func defaultSettings(level zap.AtomicLevel) *settings {
	config := &zap.Config{
		Level:       level,
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    initialSampling,
			Thereafter: thereafterSampling,
		},
		Encoding: JSONEncoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			LevelKey:       "level",
			TimeKey:        "@timestamp",
			NameKey:        "logger",
			CallerKey:      "caller",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return &settings{
		config: config,
		opts: []zap.Option{
			zap.AddCallerSkip(1),
		},
	}
}
