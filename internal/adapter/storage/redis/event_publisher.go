package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stokvel-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EventPublisher implements ports.EventPublisher over Redis streams.
// Subscribers (notification dispatch, reporting) consume the streams with
// consumer groups; the ledger only appends.
type EventPublisher struct {
	client *goredis.Client
	maxLen int64
}

// NewEventPublisher creates a stream-backed event publisher. Streams are
// capped so an absent consumer cannot grow Redis without bound.
func NewEventPublisher(client *goredis.Client) *EventPublisher {
	return &EventPublisher{
		client: client,
		maxLen: 100000,
	}
}

// Publish appends an event envelope to the given stream.
func (p *EventPublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	event := domain.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	args := &goredis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"event": eventJSON,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
