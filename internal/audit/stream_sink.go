package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamSink mirrors entries onto a Redis stream for downstream consumers.
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamSink(client *redis.Client, stream string) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: 100000}
}

func (s *StreamSink) Name() string { return "stream" }

func (s *StreamSink) Write(ctx context.Context, e Entry) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return err
	}

	values := map[string]any{
		"operation":     e.Operation,
		"resource_type": e.ResourceType,
		"detail":        string(detail),
		"ip_address":    e.IPAddress,
		"user_agent":    e.UserAgent,
		"at":            e.At.Format(time.RFC3339Nano),
	}
	if e.UserID != nil {
		values["user_id"] = strconv.FormatUint(*e.UserID, 10)
	}
	if e.ResourceID != nil {
		values["resource_id"] = strconv.FormatUint(*e.ResourceID, 10)
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}
