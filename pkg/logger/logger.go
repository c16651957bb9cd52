package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithBookingID adds booking ID to logger context
func (l *Logger) WithBookingID(bookingID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("booking_id", bookingID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Settlement logging methods

// LogIntentCreated logs creation of a card payment intent
func (l *Logger) LogIntentCreated(ctx context.Context, bookingID, intentID string, amount int64) {
	l.Logger.InfoContext(ctx,
		"Payment Intent Created",
		slog.String("booking_id", bookingID),
		slog.String("payment_intent_id", intentID),
		slog.Int64("amount", amount),
	)
}

// LogPushInitiated logs an STK push submission
func (l *Logger) LogPushInitiated(ctx context.Context, bookingID, checkoutRequestID string, amount int64) {
	l.Logger.InfoContext(ctx,
		"STK Push Initiated",
		slog.String("booking_id", bookingID),
		slog.String("checkout_request_id", checkoutRequestID),
		slog.Int64("amount", amount),
	)
}

// LogCallbackReceived logs an inbound mobile-money callback
func (l *Logger) LogCallbackReceived(ctx context.Context, checkoutRequestID string, resultCode int) {
	l.Logger.InfoContext(ctx,
		"M-Pesa Callback Received",
		slog.String("checkout_request_id", checkoutRequestID),
		slog.Int("result_code", resultCode),
	)
}

// LogCallbackMalformed logs a callback payload that failed schema validation.
// Logged distinctly for operational visibility; the provider is still acked.
func (l *Logger) LogCallbackMalformed(ctx context.Context, reason string) {
	l.Logger.WarnContext(ctx,
		"M-Pesa Callback Malformed",
		slog.String("reason", reason),
	)
}

// LogPaymentSettled logs a completed settlement
func (l *Logger) LogPaymentSettled(ctx context.Context, bookingID, reference, method string, amount int64) {
	l.Logger.InfoContext(ctx,
		"Payment Settled",
		slog.String("booking_id", bookingID),
		slog.String("reference", reference),
		slog.String("method", method),
		slog.Int64("amount", amount),
	)
}

// LogSettlementAlert logs a collected-but-unrecorded payment. This is the most
// severe class of failure: money has moved but booking state disagrees.
func (l *Logger) LogSettlementAlert(ctx context.Context, bookingID, reference string, err error) {
	l.Logger.ErrorContext(ctx,
		"Settlement Consistency Alert",
		slog.String("booking_id", bookingID),
		slog.String("reference", reference),
		slog.String("error", err.Error()),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
