// Package messaging carries typed requests from UI surfaces to the orchestrator
// and result envelopes back.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
)

// Kind identifies a request type.
type Kind string

const (
	KindJobDetected         Kind = "JOB_DETECTED"
	KindGenerateSuggestions Kind = "GENERATE_SUGGESTIONS"
	KindLogApplication      Kind = "LOG_APPLICATION"
)

// Message is a single request. Payload is raw JSON using camelCase keys.
type Message struct {
	// ID correlates log entries of one request. Optional.
	ID      string          `json:"id,omitempty"`
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into a message of the given kind.
func NewMessage(kind Kind, payload any) (Message, error) {
	msg := Message{Type: kind}
	if payload == nil {
		return msg, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	msg.Payload = data

	return msg, nil
}

// Envelope is the uniform answer to a message. Result is set only when OK,
// Error only when not.
type Envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func Success(result json.RawMessage) Envelope {
	return Envelope{OK: true, Result: result}
}

func Failure(err error) Envelope {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Envelope{OK: false, Error: msg}
}

// Handler answers messages. Implementations never return errors directly:
// every failure is folded into the envelope.
type Handler interface {
	Handle(ctx context.Context, msg Message) Envelope
}

type HandlerFunc func(ctx context.Context, msg Message) Envelope

func (f HandlerFunc) Handle(ctx context.Context, msg Message) Envelope {
	return f(ctx, msg)
}
