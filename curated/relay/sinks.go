// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"strconv"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/websockets"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// SinkRedis is the cursor name of the redis stream sink.
	SinkRedis = "redis"

	// SinkWebsocket is the cursor name of the websocket sink.
	SinkWebsocket = "websocket"
)

// RedisSink appends events to a redis stream. The stream is trimmed to
// approximately maxLen entries when maxLen is greater than zero.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink returns a sink for the redis server at url.
func NewRedisSink(url, stream string, maxLen int64) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return &RedisSink{
		client: redis.NewClient(opts),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

// Ping verifies the redis connection.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Name satisfies the Sink interface.
func (s *RedisSink) Name() string {
	return SinkRedis
}

// xaddArgs returns the stream entry of an event.
func xaddArgs(stream string, maxLen int64, e v1.Event) *redis.XAddArgs {
	a := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"seq":       strconv.FormatUint(e.Seq, 10),
			"id":        e.ID,
			"type":      e.Type,
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
			"payload":   string(e.Payload),
		},
	}
	if maxLen > 0 {
		a.MaxLen = maxLen
		a.Approx = true
	}
	return a
}

// Publish appends the events to the stream in a single pipeline.
//
// This function satisfies the Sink interface.
func (s *RedisSink) Publish(ctx context.Context, events []v1.Event) error {
	pipe := s.client.Pipeline()
	for _, e := range events {
		pipe.XAdd(ctx, xaddArgs(s.stream, s.maxLen, e))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// WSSink pushes events to the subscribed websocket clients. Clients that are
// not connected miss the events and replay them from the events route.
type WSSink struct {
	m *websockets.Manager
}

// NewWSSink returns a new WSSink.
func NewWSSink(m *websockets.Manager) *WSSink {
	return &WSSink{m: m}
}

// Name satisfies the Sink interface.
func (s *WSSink) Name() string {
	return SinkWebsocket
}

// Publish satisfies the Sink interface.
func (s *WSSink) Publish(ctx context.Context, events []v1.Event) error {
	s.m.Broadcast(events)
	return nil
}
