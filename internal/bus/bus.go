// Package bus is the in-process event fabric. Every successful mutation on
// the ledger publishes a typed event here; interested parties (the websocket
// hub, the redis relay, peer links) subscribe and fan out.
package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/domain"
)

const (
	EventItemChanged     = "item-changed"
	EventShiftChanged    = "shift-changed"
	EventCustomerChanged = "customer-changed"
	EventExpenseAdded    = "expense-added"
	EventSupplyAdded     = "supply-added"
	EventDebtChanged     = "debt-changed"
	EventAdminLogAdded   = "admin-log-added"
	EventPeerJoined      = "peer-joined"
	EventPeerLeft        = "peer-left"
)

// Event is one propagated change. Origin identifies the publishing process
// so relays can suppress their own echoes.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Section domain.Section `json:"section,omitempty"`
	Payload any            `json:"payload,omitempty"`
	Origin  string         `json:"origin"`
	At      time.Time      `json:"at"`
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

// Bus delivers events to subscribers in publish order. Each subscriber gets
// its own goroutine and buffered channel, so one slow or panicking callback
// never stalls the others. With zero subscribers Publish is a no-op.
type Bus struct {
	log    *logrus.Logger
	origin string

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func New(log *logrus.Logger) *Bus {
	return &Bus{
		log:    log,
		origin: uuid.NewString(),
		subs:   make(map[int]*subscriber),
	}
}

// Origin is this process's publisher identity.
func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers fn for every subsequent event. The returned function
// unsubscribes; calling it more than once is safe.
func (b *Bus) Subscribe(fn func(Event)) func() {
	sub := &subscriber{
		ch:   make(chan Event, 64),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go b.pump(sub, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

func (b *Bus) pump(sub *subscriber, fn func(Event)) {
	for {
		select {
		case evt := <-sub.ch:
			b.deliver(fn, evt)
		case <-sub.done:
			return
		}
	}
}

func (b *Bus) deliver(fn func(Event), evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{"event": evt.Type, "panic": r}).
				Error("event subscriber panicked")
		}
	}()
	fn(evt)
}

// Publish emits a new locally-originated event. It never returns an error
// and never blocks: propagation is best-effort by contract, and a subscriber
// whose buffer is full loses the event rather than stalling the mutation
// that produced it.
func (b *Bus) Publish(eventType string, section domain.Section, payload any) {
	b.Inject(Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Section: section,
		Payload: payload,
		Origin:  b.origin,
		At:      time.Now().UTC(),
	})
}

// Inject delivers an already-formed event, preserving its origin. Relays use
// it to re-publish inbound remote events without claiming authorship.
func (b *Bus) Inject(evt Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- evt:
		case <-sub.done:
		default:
			b.log.WithField("event", evt.Type).Warn("subscriber buffer full, dropping event")
		}
	}
}

// Close drops all subscribers. Subsequent publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[int]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
}
