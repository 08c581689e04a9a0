package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-copilot/internal/logger"
)

// Bus delivers messages to a handler asynchronously.
// Concurrent sends are neither deduplicated nor serialized.
type Bus struct {
	handler Handler
	logger  *zap.Logger
}

func NewBus(handler Handler, log *zap.Logger) *Bus {
	return &Bus{
		handler: handler,
		logger:  logger.WithFields(log),
	}
}

// Send starts handling msg and returns a channel that receives exactly one envelope.
// Started work is detached from ctx cancellation and always runs to completion.
func (b *Bus) Send(ctx context.Context, msg Message) <-chan Envelope {
	reply := make(chan Envelope, 1)
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("message handler panicked",
					zap.String(logger.FieldMessageType, string(msg.Type)),
					zap.Any("panic", r),
				)
				reply <- Failure(fmt.Errorf("handling %s: %v", msg.Type, r))
			}
		}()

		reply <- b.handler.Handle(ctx, msg)
	}()

	return reply
}

// Call sends msg and waits for its envelope. When ctx ends first the caller
// stops waiting and gets ctx.Err(); the started work still completes and its
// envelope is dropped.
func (b *Bus) Call(ctx context.Context, msg Message) (Envelope, error) {
	select {
	case env := <-b.Send(ctx, msg):
		return env, nil
	case <-ctx.Done():
		b.logger.Debug("caller stopped waiting for envelope",
			zap.String(logger.FieldMessageType, string(msg.Type)),
			zap.Error(ctx.Err()),
		)
		return Envelope{}, ctx.Err()
	}
}
