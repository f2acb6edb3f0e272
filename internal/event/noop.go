package event

import (
	"context"
	"log/slog"

	"github.com/patelpratyush/neomart-demo/pkg/events"
)

// NoopPublisher drops every event. It is used when no broker is configured
// so the services never need a nil check.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that only logs at debug level.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// Publish discards the event.
func (p *NoopPublisher) Publish(ctx context.Context, topic string, event *events.Event) error {
	if p.logger != nil {
		p.logger.DebugContext(ctx, "event broker disabled, dropping event",
			slog.String("topic", topic),
			slog.String("event_id", event.EventID),
		)
	}
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}
