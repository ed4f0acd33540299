package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := &ZapLogger{logger: zap.New(core), level: zap.NewAtomicLevel()}

	ctx := WithContextFields(context.Background(), zap.String("path", "/api/orders"))
	ctx = WithContextFields(ctx, zap.String("user", "u-1"))
	logger.InfoCtx(ctx, "handled", zap.Int("status", 200))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "handled", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/orders", fields["path"])
	assert.Equal(t, "u-1", fields["user"])
	assert.EqualValues(t, 200, fields["status"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestSettingsOptions(t *testing.T) {
	s := defaultSettings(zap.NewAtomicLevel())
	WithEncoding(ConsoleEncoding)(s)
	WithService("gigmarket")(s)
	assert.Equal(t, ConsoleEncoding, s.config.Encoding)
	assert.Equal(t, "gigmarket", s.config.InitialFields[serviceFieldName])

	s = defaultSettings(zap.NewAtomicLevel())
	WithEncoding("xml")(s)
	WithService("")(s)
	assert.Equal(t, JSONEncoding, s.config.Encoding)
	assert.Nil(t, s.config.InitialFields)
}
