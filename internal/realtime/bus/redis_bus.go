package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime"
)

// DefaultPrefix namespaces the Redis topics; each SSE channel gets its own
// topic "<prefix>:<channel>", e.g. "vibecode-sse:project:42".
const DefaultPrefix = "vibecode-sse"

var errNotInitialized = errors.New("redis SSE bus not initialized")

type redisBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewRedisBus connects to addr and verifies the connection with a ping.
func NewRedisBus(log *logger.Logger, addr, prefix string) (Bus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return newRedisBus(log, rdb, prefix), nil
}

func newRedisBus(log *logger.Logger, rdb *goredis.Client, prefix string) *redisBus {
	if log == nil {
		log = logger.Nop()
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &redisBus{log: log.With("service", "ProgressBus"), rdb: rdb, prefix: prefix}
}

func (b *redisBus) topic(channel string) string { return b.prefix + ":" + channel }

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return errNotInitialized
	}
	if msg.Channel == "" {
		return errors.New("progress message has no channel")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}
	return b.rdb.Publish(ctx, b.topic(msg.Channel), raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, h Handler) error {
	if b == nil || b.rdb == nil {
		return errNotInitialized
	}
	if h == nil {
		return errors.New("forwarder handler required")
	}
	pattern := b.topic("*")
	sub := b.rdb.PSubscribe(ctx, pattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe %s: %w", pattern, err)
	}
	b.log.Info("progress forwarder subscribed", "pattern", pattern)

	go func() {
		defer sub.Close()
		delivered := 0
		defer func() { b.log.Info("progress forwarder stopped", "delivered", delivered) }()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-sub.Channel():
				if !ok {
					return
				}
				msg, err := b.decode(m)
				if err != nil {
					b.log.Warn("dropping progress message", "topic", m.Channel, "error", err)
					continue
				}
				h(msg)
				delivered++
			}
		}
	}()
	return nil
}

// decode rejects payloads whose channel disagrees with the topic they arrived on.
func (b *redisBus) decode(m *goredis.Message) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	if m == nil {
		return msg, errors.New("nil message")
	}
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		return msg, err
	}
	if b.topic(msg.Channel) != m.Channel {
		return msg, fmt.Errorf("channel %q does not match topic", msg.Channel)
	}
	return msg, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
