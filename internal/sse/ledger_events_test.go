package sse_test

import (
	"context"
	"testing"
	"time"

	"ms-ordering/internal/models"
	"ms-ordering/internal/sse"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeReceivesAllEvents(t *testing.T) {
	emitter := sse.NewLedgerEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := emitter.Subscribe(ctx)

	emitter.Emit(models.LedgerEvent{Type: models.EventOrderCreated, TableID: "t1"})
	emitter.Emit(models.LedgerEvent{Type: models.EventSessionSettled, TableID: "t2"})

	first := <-events
	second := <-events
	assert.Equal(t, models.EventOrderCreated, first.Type)
	assert.Equal(t, models.EventSessionSettled, second.Type)
}

func TestSubscribeToTableFiltersByTable(t *testing.T) {
	emitter := sse.NewLedgerEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := emitter.SubscribeToTable(ctx, "t1")

	emitter.Emit(models.LedgerEvent{Type: models.EventOrderCreated, TableID: "t2"})
	emitter.Emit(models.LedgerEvent{Type: models.EventOrderCreated, TableID: "t1"})

	got := <-events
	assert.Equal(t, "t1", got.TableID)

	select {
	case extra := <-events:
		t.Fatalf("unexpected event for table %s", extra.TableID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitSkipsSlowClients(t *testing.T) {
	emitter := sse.NewLedgerEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitter.Subscribe(ctx) // never drained

	// Past the channel buffer, emits must drop rather than block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			emitter.Emit(models.LedgerEvent{Type: models.EventOrderCreated, TableID: "t1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow client")
	}
}
