package bus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Relay mirrors locally-originated events to a Redis Pub/Sub channel and
// re-injects inbound events from other processes. Origin filtering on both
// sides prevents echo loops.
type Relay struct {
	rdb         *redis.Client
	bus         *Bus
	channel     string
	log         *logrus.Logger
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewRelay wires bus onto the given Redis channel and starts the inbound
// consumer. A nil client returns a nil relay; all Relay methods are nil-safe
// so single-process deployments skip Redis entirely.
func NewRelay(rdb *redis.Client, b *Bus, channel string, log *logrus.Logger) *Relay {
	if rdb == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		rdb:     rdb,
		bus:     b,
		channel: channel,
		log:     log,
		cancel:  cancel,
	}

	r.unsubscribe = b.Subscribe(func(evt Event) {
		if evt.Origin != b.Origin() {
			return
		}
		raw, err := json.Marshal(evt)
		if err != nil {
			log.WithError(err).WithField("event", evt.Type).Warn("relay marshal failed")
			return
		}
		if err := rdb.Publish(ctx, channel, raw).Err(); err != nil {
			log.WithError(err).WithField("event", evt.Type).Warn("relay publish failed")
		}
	})

	go r.consume(ctx)
	return r
}

func (r *Relay) consume(ctx context.Context) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				r.log.WithError(err).Warn("relay received malformed event")
				continue
			}
			if evt.Origin == r.bus.Origin() {
				continue
			}
			r.bus.Inject(evt)
		}
	}
}

func (r *Relay) Close() {
	if r == nil {
		return
	}
	r.unsubscribe()
	r.cancel()
}
