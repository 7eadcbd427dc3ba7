package orderfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying order change events.
const Channel = "printflow:orders:changed"

// Event is one order change notice on the feed. Subscribers re-read the
// order themselves; the event only says that something changed.
type Event struct {
	ID         string    `json:"id"`
	OrderID    int64     `json:"orderId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Feed publishes and subscribes order change events over Redis pub/sub.
// It satisfies the orders package Publisher port.
type Feed struct {
	rdb    *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func New(rdb *redis.Client, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{rdb: rdb, logger: logger, now: time.Now}
}

// OrderChanged publishes a change event for the order. Publishing is fire
// and forget for callers; a closed connection surfaces as an error they
// log and move past.
func (f *Feed) OrderChanged(ctx context.Context, orderID int64) error {
	event := Event{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		OccurredAt: f.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("orderfeed: marshal event: %w", err)
	}
	if err := f.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("orderfeed: publish: %w", err)
	}
	return nil
}

// Subscription is a live stream of order change events. Close it when the
// consumer goes away; Events closes shortly after.
type Subscription struct {
	pubsub *redis.PubSub
	events chan Event
	cancel context.CancelFunc
}

// Events yields decoded change events until the subscription closes.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close tears down the Redis subscription and drains the event channel.
func (s *Subscription) Close() error {
	s.cancel()
	return s.pubsub.Close()
}

// Subscribe opens a live feed of order changes. Malformed payloads on the
// channel are logged and skipped.
func (f *Feed) Subscribe(ctx context.Context) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := f.rdb.Subscribe(ctx, Channel)

	// Force the subscription onto the wire before returning so callers
	// can publish immediately after.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("orderfeed: subscribe: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan Event, 16),
		cancel: cancel,
	}

	go func() {
		defer close(sub.events)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("order feed: bad payload", slog.Any("error", err))
					continue
				}
				select {
				case sub.events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}
