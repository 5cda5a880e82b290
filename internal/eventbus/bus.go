package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/oklog/ulid/v2"
)

// Bus fans domain events out to in-process subscribers. Publishing never
// waits for subscribers; a subscriber whose buffer is full misses events.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func New() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			newSlogAdapter(slog.Default()),
		),
	}
}

func (b *Bus) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(context.WithoutCancel(ctx))
	if err := b.pubSub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishNew builds and publishes an event, logging instead of returning
// errors so that callers can fire and forget after a commit.
func (b *Bus) PublishNew(ctx context.Context, eventType Type, resourceID, employeeID string, metadata map[string]string) {
	event := &Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ResourceID: resourceID,
		EmployeeID: employeeID,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
	if err := b.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", eventType, "resource_id", resourceID, "error", err)
	}
}

// Subscribe delivers events of the given type until ctx is done, then
// closes the returned channel.
func (b *Bus) Subscribe(ctx context.Context, eventType Type, bufSize int) (<-chan *Event, error) {
	msgs, err := b.pubSub.Subscribe(ctx, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
	}
	out := make(chan *Event, bufSize)
	go func() {
		defer close(out)
		for msg := range msgs {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				slog.Error("dropping malformed event", "uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- &event:
			default:
				slog.Warn("subscriber buffer full, dropping event", "type", event.Type, "id", event.ID)
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
