package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

type RedisTransport struct {
	rdb *redis.Client
}

func NewRedisTransport(rdb *redis.Client) *RedisTransport {
	return &RedisTransport{
		rdb: rdb,
	}
}

func (t *RedisTransport) GetMessageStream(id string) (MessageStream, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("invalid stream ID")
	}
	rs := &RedisStream{
		id:          id,
		lastRedisID: "0",
		rdb:         t.rdb,
	}
	return rs, nil
}

func (t *RedisTransport) SetTrace(ctx context.Context, trace *RequestTrace) error {
	key := traceKey(trace.ID)
	if err := t.rdb.HSet(ctx, key, trace).Err(); err != nil {
		return err
	}
	return t.rdb.Expire(ctx, key, TraceExpiry).Err()
}

func (t *RedisTransport) GetTrace(ctx context.Context, traceId string) (*RequestTrace, error) {
	res := t.rdb.HGetAll(ctx, traceKey(traceId))
	if err := res.Err(); err != nil {
		return nil, err
	}

	vals, err := res.Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("trace '%s' does not exist", traceId)
	}

	var trace RequestTrace
	if err := res.Scan(&trace); err != nil {
		return nil, err
	}
	return &trace, nil
}

func traceKey(id string) string {
	return "trace:" + id
}

type RedisStream struct {
	id          string
	lastRedisID string

	rdb *redis.Client
}

func (s *RedisStream) Send(ctx context.Context, event StreamEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.id,
		ID:     "*",
		Values: map[string]any{
			"event": string(eventJSON),
		},
	}).Err()
	if err != nil {
		return err
	}

	return s.rdb.Expire(ctx, s.id, TraceExpiry).Err()
}

func (s *RedisStream) Recv(ctx context.Context) (*StreamEvent, error) {
	rstreams, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.id, s.lastRedisID},
		Count:   1,
		Block:   0,
	}).Result()
	if err != nil {
		return nil, err
	}

	msg := rstreams[0].Messages[0]
	s.lastRedisID = msg.ID

	return decodeStreamMessage(msg)
}

func (s *RedisStream) Text(ctx context.Context) (string, error) {
	msgs, err := s.rdb.XRange(ctx, s.id, "-", "+").Result()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, msg := range msgs {
		event, err := decodeStreamMessage(msg)
		if err != nil {
			slog.Warn("skipping undecodable stream message", "stream", s.id, "err", err)
			continue
		}
		if event.Type == EventTypeData {
			sb.WriteString(event.Content)
		}
	}

	return sb.String(), nil
}

func (s *RedisStream) GetID() string {
	return s.id
}

func decodeStreamMessage(msg redis.XMessage) (*StreamEvent, error) {
	eventJSON, ok := msg.Values["event"].(string)
	if !ok {
		return nil, fmt.Errorf("failed to read event from stream message")
	}

	var event StreamEvent
	if err := json.Unmarshal([]byte(eventJSON), &event); err != nil {
		return nil, fmt.Errorf("failed to deserialize stream event")
	}

	return &event, nil
}
