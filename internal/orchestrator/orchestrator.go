// Package orchestrator routes UI surface messages to the backend API.
//
// Every call reads a fresh settings snapshot, builds its request from that
// snapshot and the message payload, and answers with a messaging.Envelope.
// Errors never cross the Handle boundary.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/backend"
	"github.com/spigell/job-copilot/internal/logger"
	"github.com/spigell/job-copilot/internal/messaging"
	"github.com/spigell/job-copilot/internal/settings"
)

// API is the backend surface used by the orchestrator.
type API interface {
	SuggestBullets(ctx context.Context, baseURL string, req *backend.SuggestionRequest) (json.RawMessage, error)
	LogApplication(ctx context.Context, baseURL string, req *backend.LogRequest) (json.RawMessage, error)
}

type Orchestrator struct {
	settings settings.Reader
	api      API
	logger   *zap.Logger
	// maxLogLen bounds previews of long text in log entries.
	maxLogLen int
}

const defaultMaxLogLength = 120

func New(store settings.Reader, api API, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		settings:  store,
		api:       api,
		logger:    logger.WithFields(log),
		maxLogLen: defaultMaxLogLength,
	}
}

// Handle routes msg by its type. Work started here is not cancelled with ctx.
func (o *Orchestrator) Handle(ctx context.Context, msg messaging.Message) messaging.Envelope {
	ctx = context.WithoutCancel(ctx)

	requestID := msg.ID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := logger.WithMessage(o.logger, requestID, string(msg.Type))

	switch msg.Type {
	case messaging.KindJobDetected:
		log.Debug("job page reported")
		return messaging.Success(nil)

	case messaging.KindGenerateSuggestions:
		var payload SuggestionPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			log.Warn("rejecting message", zap.Error(err))
			return messaging.Failure(err)
		}
		return o.generateSuggestions(ctx, log, payload)

	case messaging.KindLogApplication:
		var payload LogPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			log.Warn("rejecting message", zap.Error(err))
			return messaging.Failure(err)
		}
		return o.logApplication(ctx, log, payload)

	default:
		err := fmt.Errorf("unknown message type: %q", msg.Type)
		log.Warn("rejecting message", zap.Error(err))
		return messaging.Failure(err)
	}
}

// GenerateSuggestions requests resume bullet suggestions for a job.
func (o *Orchestrator) GenerateSuggestions(ctx context.Context, payload SuggestionPayload) messaging.Envelope {
	return o.generateSuggestions(context.WithoutCancel(ctx), logger.WithMessage(o.logger, uuid.NewString(), string(messaging.KindGenerateSuggestions)), payload)
}

// LogApplication records an application in the spreadsheet.
func (o *Orchestrator) LogApplication(ctx context.Context, payload LogPayload) messaging.Envelope {
	return o.logApplication(context.WithoutCancel(ctx), logger.WithMessage(o.logger, uuid.NewString(), string(messaging.KindLogApplication)), payload)
}

// decodePayload treats a missing payload as an empty one so defaults apply.
func decodePayload(raw json.RawMessage, target any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	return nil
}
