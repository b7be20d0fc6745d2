package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultStream is the Redis stream carrying job events
	DefaultStream = "ccf:events"
	// DefaultGroup is the consumer group shared by all controller replicas
	DefaultGroup = "lifecycle-controller"

	eventField = "event"
)

// RedisOption configures a RedisBroker
type RedisOption func(*RedisBroker)

// WithStream sets the stream name
func WithStream(stream string) RedisOption {
	return func(b *RedisBroker) {
		b.stream = stream
	}
}

// WithGroup sets the consumer group name
func WithGroup(group string) RedisOption {
	return func(b *RedisBroker) {
		b.group = group
	}
}

// WithConsumer sets the name of this consumer within the group
func WithConsumer(consumer string) RedisOption {
	return func(b *RedisBroker) {
		b.consumer = consumer
	}
}

// WithClaimIdle sets how long an entry stays pending before another
// consumer claims it
func WithClaimIdle(d time.Duration) RedisOption {
	return func(b *RedisBroker) {
		b.claimIdle = d
	}
}

// WithBlock sets how long a read waits for new entries
func WithBlock(d time.Duration) RedisOption {
	return func(b *RedisBroker) {
		b.block = d
	}
}

// WithMaxLen caps the approximate stream length
func WithMaxLen(n int64) RedisOption {
	return func(b *RedisBroker) {
		b.maxLen = n
	}
}

// RedisBroker is a feed on a Redis stream. Subscribers read through a
// consumer group and acknowledge entries after they were handled; entries of
// crashed consumers are reclaimed once idle for the claim period.
type RedisBroker struct {
	client    redis.UniversalClient
	stream    string
	group     string
	consumer  string
	block     time.Duration
	claimIdle time.Duration
	count     int64
	maxLen    int64
}

var _ Broker = (*RedisBroker)(nil)

// NewRedisBroker creates a broker on client
func NewRedisBroker(client redis.UniversalClient, opts ...RedisOption) *RedisBroker {
	b := &RedisBroker{
		client:    client,
		stream:    DefaultStream,
		group:     DefaultGroup,
		consumer:  "controller",
		block:     5 * time.Second,
		claimIdle: time.Minute,
		count:     16,
		maxLen:    100000,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish appends an event to the stream
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{eventField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe reads the stream through the consumer group until ctx is
// cancelled
func (b *RedisBroker) Subscribe(ctx context.Context, handler Handler) error {
	if err := b.ensureGroup(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Subscribed to event stream", "stream", b.stream, "group", b.group, "consumer", b.consumer)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := b.claimStale(ctx, handler); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "Failed to claim pending events", "error", err)
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    b.count,
			Block:    b.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "Failed to read event stream", "error", err)
			if !sleep(ctx, b.block) {
				return ctx.Err()
			}
			continue
		}

		for _, stream := range streams {
			b.deliver(ctx, stream.Messages, handler)
		}
	}
}

func (b *RedisBroker) ensureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", b.group, err)
	}
	return nil
}

func (b *RedisBroker) claimStale(ctx context.Context, handler Handler) error {
	start := "0-0"
	for {
		messages, next, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   b.stream,
			Group:    b.group,
			Consumer: b.consumer,
			MinIdle:  b.claimIdle,
			Start:    start,
			Count:    b.count,
		}).Result()
		if err != nil {
			return err
		}
		b.deliver(ctx, messages, handler)
		if next == "0-0" || len(messages) == 0 {
			return nil
		}
		start = next
	}
}

// deliver hands messages to handler and acknowledges the handled ones.
// Undecodable entries are acknowledged so they do not block the group.
func (b *RedisBroker) deliver(ctx context.Context, messages []redis.XMessage, handler Handler) {
	for _, msg := range messages {
		event, err := decodeMessage(msg)
		if err != nil {
			slog.ErrorContext(ctx, "Dropping malformed event", "id", msg.ID, "error", err)
			b.ack(ctx, msg.ID)
			continue
		}
		if err := handler(ctx, event); err != nil {
			slog.WarnContext(ctx, "Event handling failed, leaving it pending",
				"id", msg.ID, "key", event.Key, "status", event.Status, "error", err)
			continue
		}
		b.ack(ctx, msg.ID)
	}
}

func (b *RedisBroker) ack(ctx context.Context, id string) {
	if err := b.client.XAck(ctx, b.stream, b.group, id).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to acknowledge event", "id", id, "error", err)
	}
}

func decodeMessage(msg redis.XMessage) (Event, error) {
	var event Event
	raw, ok := msg.Values[eventField]
	if !ok {
		return event, fmt.Errorf("missing %q field", eventField)
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return event, fmt.Errorf("unexpected %q field type %T", eventField, raw)
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("failed to decode event: %w", err)
	}
	return event, nil
}

// Close closes the Redis client
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
