package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRequestID is the structured log field key for the id of a handled message.
	FieldRequestID = "request_id"
	// FieldMessageType is the structured log field key for the message kind.
	FieldMessageType = "message_type"
	// FieldAPI is the structured log field key for the backend API name.
	FieldAPI = "api"
	// FieldURL is the structured log field key for request or page urls.
	FieldURL = "url"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger.
// A nil logger is replaced with a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MessageFields returns the fields identifying a single routed message.
func MessageFields(requestID, messageType string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRequestID, Value: requestID},
		StringField{Key: FieldMessageType, Value: messageType},
	)
}

// WithMessage attaches the message identifying fields to the provided logger.
func WithMessage(logger *zap.Logger, requestID, messageType string) *zap.Logger {
	return WithFields(logger, MessageFields(requestID, messageType)...)
}
