package feed

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/meinhoongagan/tutor-sessions/store"
)

// Redis relays changes between service instances over Redis pub/sub, one
// channel per entity. Each instance holds a single subscription and fans it
// out locally.
type Redis struct {
	client *redis.Client
	pubsub *redis.PubSub
	local  *Local
	stop   context.CancelFunc
}

var _ Bus = (*Redis)(nil)

func NewRedis(ctx context.Context, client *redis.Client) (*Redis, error) {
	channels := make([]string, 0, len(entities))
	for _, e := range entities {
		channels = append(channels, channelFor(e))
	}
	ps := client.Subscribe(ctx, channels...)
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	runCtx, stop := context.WithCancel(context.Background())
	r := &Redis{client: client, pubsub: ps, local: NewLocal(), stop: stop}
	go r.run(runCtx)
	return r, nil
}

func (r *Redis) run(ctx context.Context) {
	ch := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c, err := decode([]byte(msg.Payload))
			if err != nil {
				log.Warnf("feed: dropping message on %s: %v", msg.Channel, err)
				continue
			}
			_ = r.local.Publish(ctx, c)
		}
	}
}

func (r *Redis) Publish(ctx context.Context, c store.Change) error {
	payload, err := encode(c)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelFor(c.Entity), payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, f store.Filter, onChange func(store.Change)) (func(), error) {
	return r.local.Subscribe(ctx, f, onChange)
}

func (r *Redis) Close() error {
	r.stop()
	r.local.Close()
	return r.pubsub.Close()
}
