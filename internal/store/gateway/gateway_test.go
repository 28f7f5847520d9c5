package gateway

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/bus"
	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/store/memory"
)

// faultyRepo wraps a working repository and fails selected calls with an
// infrastructure error once armed.
type faultyRepo struct {
	store.Repository
	armed bool
}

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func (f *faultyRepo) SaveItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if f.armed {
		return nil, errConnRefused
	}
	return f.Repository.SaveItem(ctx, item)
}

func (f *faultyRepo) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	if f.armed {
		return nil, errConnRefused
	}
	return f.Repository.GetItem(ctx, id)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testItem(name string) domain.Item {
	return domain.Item{
		Name:          name,
		SellPrice:     decimal.NewFromInt(10),
		CostPrice:     decimal.NewFromInt(8),
		CurrentAmount: 5,
		Section:       domain.SectionStore,
	}
}

func TestRemoteFailureDegradesAndServesLocal(t *testing.T) {
	remote := &faultyRepo{Repository: memory.New()}
	local := memory.New()
	gw := New(remote, local, nil, quietLogger())
	ctx := context.Background()

	// Online: the write lands remotely and is mirrored locally.
	saved, err := gw.SaveItem(ctx, testItem("Rice"))
	if err != nil {
		t.Fatalf("save while online: %v", err)
	}
	if gw.Degraded() {
		t.Fatal("gateway must stay online after a successful call")
	}
	if _, err := local.GetItem(ctx, saved.ID); err != nil {
		t.Fatalf("successful remote write must be mirrored locally: %v", err)
	}

	// The remote goes away: the same call degrades and is replayed locally.
	remote.armed = true
	second, err := gw.SaveItem(ctx, testItem("Sugar"))
	if err != nil {
		t.Fatalf("save during outage: %v", err)
	}
	if !gw.Degraded() {
		t.Fatal("infrastructure failure must flip the degraded flag")
	}
	if gw.Mode() != ModeDegraded {
		t.Fatalf("expected mode %s, got %s", ModeDegraded, gw.Mode())
	}

	// Degraded is sticky: even with the remote healthy again, reads come
	// from the local store.
	remote.armed = false
	if _, err := gw.GetItem(ctx, second.ID); err != nil {
		t.Fatalf("read after degrade: %v", err)
	}
	if _, err := remote.Repository.GetItem(ctx, second.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("degraded write must not reach the remote, got %v", err)
	}
}

func TestDomainErrorsPassThroughWithoutDegrading(t *testing.T) {
	remote := memory.New()
	gw := New(remote, memory.New(), nil, quietLogger())
	ctx := context.Background()

	if _, err := gw.GetItem(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if gw.Degraded() {
		t.Fatal("a domain rejection must not degrade the gateway")
	}

	if _, err := gw.CreateShift(ctx, domain.Shift{Section: domain.SectionStore, Operator: "A"}); err != nil {
		t.Fatalf("first shift: %v", err)
	}
	if _, err := gw.CreateShift(ctx, domain.Shift{Section: domain.SectionStore, Operator: "B"}); !errors.Is(err, store.ErrShiftActive) {
		t.Fatalf("expected ErrShiftActive, got %v", err)
	}
	if gw.Degraded() {
		t.Fatal("ErrShiftActive must not degrade the gateway")
	}
}

func TestSuccessfulWritePublishesEvent(t *testing.T) {
	events := bus.New(quietLogger())
	defer events.Close()

	ch := make(chan bus.Event, 4)
	events.Subscribe(func(evt bus.Event) { ch <- evt })

	gw := New(memory.New(), memory.New(), events, quietLogger())
	if _, err := gw.SaveItem(context.Background(), testItem("Rice")); err != nil {
		t.Fatalf("save item: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != bus.EventItemChanged {
			t.Fatalf("expected %s, got %s", bus.EventItemChanged, evt.Type)
		}
		if evt.Section != domain.SectionStore {
			t.Fatalf("expected store section, got %s", evt.Section)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

func TestFailedWritePublishesNothing(t *testing.T) {
	events := bus.New(quietLogger())
	defer events.Close()

	ch := make(chan bus.Event, 4)
	events.Subscribe(func(evt bus.Event) { ch <- evt })

	gw := New(memory.New(), memory.New(), events, quietLogger())
	if _, err := gw.GetItem(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("expected ErrNotFound")
	}

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %s", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
