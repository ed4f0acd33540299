package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey int

const (
	fieldsKey contextKey = iota
)

type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

func NewZapLogger(level zapcore.Level, opts ...Option) (*ZapLogger, error) {
	atomicLevel := zap.NewAtomicLevelAt(level)
	s := defaultSettings(atomicLevel)
	for _, opt := range opts {
		opt(s)
	}
	logger, err := s.config.Build(s.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return &ZapLogger{
		logger: logger,
		level:  atomicLevel,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *ZapLogger {
	return &ZapLogger{
		logger: zap.NewNop(),
		level:  zap.NewAtomicLevel(),
	}
}

// FromZap wraps an already built zap logger.
func FromZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{
		logger: logger,
		level:  zap.NewAtomicLevel(),
	}
}

// ParseLevel maps a textual level to zapcore, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

func (z *ZapLogger) SetLevel(level zapcore.Level) {
	z.level.SetLevel(level)
}

func (z *ZapLogger) Std() *zap.Logger {
	return z.logger
}

func (z *ZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	z.logger.Debug(msg, z.withCtxFields(ctx, fields...)...)
}

func (z *ZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	z.logger.Info(msg, z.withCtxFields(ctx, fields...)...)
}

func (z *ZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	z.logger.Warn(msg, z.withCtxFields(ctx, fields...)...)
}

func (z *ZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	z.logger.Error(msg, z.withCtxFields(ctx, fields...)...)
}

func (z *ZapLogger) Sync() error {
	return z.logger.Sync() //nolint:wrapcheck // unnecessary
}

func (z *ZapLogger) withCtxFields(ctx context.Context, fields ...zap.Field) []zap.Field {
	ctxFields := fieldsFromContext(ctx)
	if len(ctxFields) == 0 {
		return fields
	}
	res := make([]zap.Field, 0, len(ctxFields)+len(fields))
	res = append(res, ctxFields...)
	return append(res, fields...)
}

// WithContextFields returns a context carrying fields that every *Ctx call
// made with it will include.
func WithContextFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := fieldsFromContext(ctx)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey, merged)
}

func fieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, ok := ctx.Value(fieldsKey).([]zap.Field)
	if !ok {
		return nil
	}
	return fields
}
