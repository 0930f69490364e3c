package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const fieldsKey ctxKey = "log_fields"

// RequestIDHeader carries the correlation id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// New builds a production zap logger at the given level ("debug", "info", ...).
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// WithFields appends zap fields to the context.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := fieldsFrom(ctx)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey, merged)
}

func fieldsFrom(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	if f, ok := ctx.Value(fieldsKey).([]zap.Field); ok {
		return f
	}
	return nil
}

// FromContext returns l decorated with the fields stored in ctx.
func FromContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	fields := fieldsFrom(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Middleware tags every request with a request id and logs its outcome.
// The request-scoped context is stored with c.SetUserContext.
func Middleware(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = "req-" + uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)

		ctx := WithFields(c.UserContext(),
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("client_ip", c.IP()),
		)
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()
		if err != nil {
			// let fiber's error handler write the response before we read the status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		if c.Path() == "/health" {
			return nil
		}
		FromContext(c.UserContext(), l).Info("request processed",
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	}
}
