package logging

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger собирает JSON-логгер с заданным уровнем.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, err
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// WithOperation добавляет к логгеру имя операции и идентификатор запроса.
func WithOperation(logger *zap.Logger, operation, requestID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return logger.With(fields...)
}

// WithSentry пересылает записи уровня error и выше в Sentry.
// Без DSN возвращает логгер как есть и пустую функцию сброса.
func WithSentry(logger *zap.Logger, dsn, environment string) (*zap.Logger, func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return logger, func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, nil, err
	}

	hooked := logger.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
		if entry.Level < zapcore.ErrorLevel {
			return nil
		}
		sentry.CaptureMessage(entry.LoggerName + ": " + entry.Message)
		return nil
	}))

	return hooked, func() { sentry.Flush(2 * time.Second) }, nil
}
