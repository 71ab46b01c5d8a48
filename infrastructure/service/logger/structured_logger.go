package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging interface used across the application.
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type structuredLogger struct {
	logger *logrus.Logger
	fields map[string]interface{}
}

// LoggerConfig holds logger settings.
type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
}

type correlationIDKey struct{}

// WithCorrelationID stores a correlation ID on the context so every log line
// for the request can be tied together.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation ID from the context, if any.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewStructuredLogger creates a logrus-backed structured logger.
func NewStructuredLogger(config LoggerConfig) Logger {
	logrusLogger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogger.SetLevel(level)

	if config.Format == "json" {
		logrusLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logrusLogger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}

	logrusLogger.SetOutput(os.Stdout)

	return &structuredLogger{
		logger: logrusLogger,
		fields: map[string]interface{}{
			"service": config.ServiceName,
		},
	}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, err, fields).Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Debug(message)
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &structuredLogger{
		logger: l.logger,
		fields: merged,
	}
}

func (l *structuredLogger) entry(ctx context.Context, err error, fields map[string]interface{}) *logrus.Entry {
	logrusFields := logrus.Fields{}
	for k, v := range l.fields {
		logrusFields[k] = v
	}
	for k, v := range fields {
		logrusFields[k] = v
	}
	if cid := CorrelationID(ctx); cid != "" {
		logrusFields["correlation_id"] = cid
	}
	if err != nil {
		logrusFields["error"] = err.Error()
	}
	return l.logger.WithFields(logrusFields)
}

// Helper functions for common logging scenarios

// LogAuthEvent logs authentication events with a consistent shape.
func LogAuthEvent(ctx context.Context, logger Logger, event string, userID, ip string, success bool, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "auth"
	fields["auth_event"] = event
	fields["user_id"] = userID
	fields["ip"] = ip
	fields["success"] = success

	message := fmt.Sprintf("Auth event: %s", event)
	if success {
		logger.Info(ctx, message, fields)
	} else {
		logger.Warn(ctx, fmt.Sprintf("Auth event failed: %s", event), fields)
	}
}

// LogSecurityEvent logs security events at a level matching their severity.
func LogSecurityEvent(ctx context.Context, logger Logger, event string, severity string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "security"
	fields["security_event"] = event
	fields["severity"] = severity

	message := fmt.Sprintf("Security event: %s", event)
	switch severity {
	case "HIGH":
		logger.Error(ctx, message, nil, fields)
	case "MEDIUM":
		logger.Warn(ctx, message, fields)
	default:
		logger.Info(ctx, message, fields)
	}
}
