package redistier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/observe"
)

// message is the wire form of an invalidation broadcast.
type message struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

// Invalidator broadcasts removed keys over Redis pub/sub and delivers
// broadcasts from other processes to a handler.
type Invalidator struct {
	rdb    redis.UniversalClient
	ks     keyspace
	origin string
	logger observe.Logger
}

// NewInvalidator creates an Invalidator with a fresh process origin id.
func NewInvalidator(rdb redis.UniversalClient, prefix string, logger observe.Logger) *Invalidator {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Invalidator{
		rdb:    rdb,
		ks:     prefixOf(prefix),
		origin: uuid.NewString(),
		logger: logger,
	}
}

// Origin returns the id stamped on messages published by this process.
func (inv *Invalidator) Origin() string { return inv.origin }

// Publish broadcasts keys to every subscriber.
func (inv *Invalidator) Publish(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	payload, err := json.Marshal(message{Origin: inv.origin, Keys: keys})
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	return inv.rdb.Publish(ctx, inv.ks.channel(), payload).Err()
}

// Subscribe delivers keys published by other processes to handle until
// ctx ends. It returns once the subscription is confirmed and the
// delivery loop has started; the returned stop function closes it.
func (inv *Invalidator) Subscribe(ctx context.Context, handle func(ctx context.Context, keys []string)) (stop func() error, err error) {
	ps := inv.rdb.Subscribe(ctx, inv.ks.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", inv.ks.channel(), err)
	}

	ch := ps.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = ps.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				inv.deliver(ctx, msg.Payload, handle)
			}
		}
	}()
	return ps.Close, nil
}

func (inv *Invalidator) deliver(ctx context.Context, payload string, handle func(context.Context, []string)) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		inv.logger.Warn(ctx, "discarding malformed invalidation", observe.F("error", err))
		return
	}
	if m.Origin == inv.origin || len(m.Keys) == 0 {
		return
	}
	handle(ctx, m.Keys)
}

var _ cache.Invalidator = (*Invalidator)(nil)
