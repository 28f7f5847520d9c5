package bus

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/domain"
)

func newTestBus() *Bus {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	var mu sync.Mutex
	var got []string
	b.Subscribe(func(evt Event) {
		mu.Lock()
		got = append(got, evt.Type)
		mu.Unlock()
	})

	b.Publish(EventItemChanged, domain.SectionStore, nil)
	b.Publish(EventShiftChanged, domain.SectionStore, nil)
	b.Publish(EventDebtChanged, domain.SectionSupplement, nil)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, "expected 3 events")

	mu.Lock()
	defer mu.Unlock()
	want := []string{EventItemChanged, EventShiftChanged, EventDebtChanged}
	for i, typ := range want {
		if got[i] != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, got[i])
		}
	}
}

func TestPublishStampsOrigin(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	ch := make(chan Event, 1)
	b.Subscribe(func(evt Event) { ch <- evt })

	b.Publish(EventItemChanged, domain.SectionStore, map[string]string{"id": "it-1"})

	select {
	case evt := <-ch:
		if evt.Origin != b.Origin() {
			t.Fatalf("expected origin %s, got %s", b.Origin(), evt.Origin)
		}
		if evt.ID == "" || evt.At.IsZero() {
			t.Fatal("event missing id or timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestInjectPreservesRemoteOrigin(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	ch := make(chan Event, 1)
	b.Subscribe(func(evt Event) { ch <- evt })

	remote := Event{ID: "ev-1", Type: EventShiftChanged, Section: domain.SectionStore, Origin: "node-other", At: time.Now()}
	b.Inject(remote)

	select {
	case evt := <-ch:
		if evt.Origin != "node-other" {
			t.Fatalf("inject must keep the remote origin, got %s", evt.Origin)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	var mu sync.Mutex
	count := 0
	unsubscribe := b.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(EventItemChanged, domain.SectionStore, nil)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, "first event not delivered")

	unsubscribe()
	unsubscribe() // safe to call twice

	b.Publish(EventItemChanged, domain.SectionStore, nil)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected 1 delivery after unsubscribe, got %d", count)
	}
}

func TestPanickingSubscriberDoesNotAffectOthers(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	b.Subscribe(func(Event) { panic("boom") })

	ch := make(chan Event, 2)
	b.Subscribe(func(evt Event) { ch <- evt })

	b.Publish(EventItemChanged, domain.SectionStore, nil)
	b.Publish(EventShiftChanged, domain.SectionStore, nil)

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("healthy subscriber missed event %d", i)
		}
	}
}

func TestStalledSubscriberDoesNotBlockPublish(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	// This subscriber never returns, so its buffer fills and stays full.
	block := make(chan struct{})
	defer close(block)
	b.Subscribe(func(Event) { <-block })

	var mu sync.Mutex
	healthy := 0
	b.Subscribe(func(Event) {
		mu.Lock()
		healthy++
		mu.Unlock()
	})

	// Well past the subscriber buffer size.
	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < 200; i++ {
			b.Publish(EventItemChanged, domain.SectionStore, nil)
		}
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return healthy > 0
	}, "healthy subscriber starved")
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	b := newTestBus()

	delivered := make(chan Event, 1)
	b.Subscribe(func(evt Event) { delivered <- evt })
	b.Close()

	b.Publish(EventItemChanged, domain.SectionStore, nil)

	select {
	case <-delivered:
		t.Fatal("closed bus must not deliver")
	case <-time.After(50 * time.Millisecond):
	}
}
