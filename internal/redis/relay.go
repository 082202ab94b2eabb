package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrSubscriptionClosed = errors.New("redis subscription closed")

// Relay moves hub frames between instances over pub/sub, one channel per room.
type Relay struct {
	client *redis.Client
	prefix string
}

func NewRelay(r *redis.Client, prefix string) *Relay {
	return &Relay{client: r, prefix: prefix}
}

func (r *Relay) channel(room string) string { return fmt.Sprintf("%s:room:%s", r.prefix, room) }

func (r *Relay) Publish(ctx context.Context, room string, frame []byte) error {
	return r.client.Publish(ctx, r.channel(room), frame).Err()
}

// Subscribe blocks until ctx is done or the subscription drops.
func (r *Relay) Subscribe(ctx context.Context, deliver func(frame []byte)) error {
	pubsub := r.client.PSubscribe(ctx, r.channel("*"))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return ErrSubscriptionClosed
			}
			deliver([]byte(msg.Payload))
		}
	}
}
