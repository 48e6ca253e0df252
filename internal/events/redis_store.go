package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "checkout:events"

// RedisStore appends events to a capped Redis stream.
type RedisStore struct {
	Client *redis.Client
	Stream string
	MaxLen int64
}

func (s RedisStore) stream() string {
	if s.Stream == "" {
		return DefaultStream
	}
	return s.Stream
}

// Append implements Store.
func (s RedisStore) Append(ctx context.Context, ev Event) error {
	if s.Client == nil {
		return nil
	}
	maxLen := s.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return s.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream(),
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{
			"id":           ev.ID,
			"topic":        ev.Topic,
			"aggregate_id": ev.AggregateID,
			"payload":      string(ev.Payload),
			"occurred_at":  ev.OccurredAt.UnixMilli(),
		},
	}).Err()
}

// Recent returns up to count of the newest events, newest first.
func (s RedisStore) Recent(ctx context.Context, count int64) ([]Event, error) {
	msgs, err := s.Client.XRevRangeN(ctx, s.stream(), "+", "-", count).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := eventFromValues(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("events: decode stream entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func eventFromValues(values map[string]any) (Event, error) {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}
	payload := str("payload")
	if !json.Valid([]byte(payload)) {
		return Event{}, errors.New("invalid payload")
	}
	ev := Event{
		ID:          str("id"),
		Topic:       str("topic"),
		AggregateID: str("aggregate_id"),
		Payload:     json.RawMessage(payload),
	}
	if ms, err := strconv.ParseInt(str("occurred_at"), 10, 64); err == nil {
		ev.OccurredAt = time.UnixMilli(ms).UTC()
	}
	return ev, nil
}
