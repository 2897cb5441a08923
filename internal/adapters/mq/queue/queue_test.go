package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/footsteps/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	n1 := model.Notification{ID: "n1", Kind: model.KindMove, Move: model.MoveNotification{TokenID: "tok-1"}}
	if !q.Enqueue(ctx, n1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "n1" || got.Move.TokenID != "tok-1" {
		t.Errorf("expected n1 for tok-1, got %+v", got)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.Notification{ID: "n1", Kind: model.KindTurnChange}) {
		t.Error("expected first enqueue to succeed")
	}
	if !q.Enqueue(ctx, model.Notification{ID: "n2", Kind: model.KindTurnChange}) {
		t.Error("expected second enqueue to succeed")
	}
	if q.Enqueue(ctx, model.Notification{ID: "n3", Kind: model.KindTurnChange}) {
		t.Error("expected enqueue to fail on a full queue")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	kinds := []model.Kind{model.KindMove, model.KindTurnChange, model.KindEncounterEnd}
	for i, k := range kinds {
		if !q.Enqueue(ctx, model.Notification{ID: fmt.Sprintf("n%d", i), Kind: k}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	ch := q.Dequeue(ctx)
	for i, k := range kinds {
		got := <-ch
		if got.Kind != k || got.ID != fmt.Sprintf("n%d", i) {
			t.Errorf("position %d: expected %s, got %s (%s)", i, k, got.Kind, got.ID)
		}
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.Notification{ID: "before-close", Kind: model.KindEncounterEnd}) {
		t.Fatal("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, model.Notification{ID: "after-close"}) {
		t.Error("expected enqueue after close to fail")
	}

	var ids []string
	for n := range q.Dequeue(ctx) {
		ids = append(ids, n.ID)
	}
	if len(ids) != 1 || ids[0] != "before-close" {
		t.Errorf("expected queued notification to drain after close, got %v", ids)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, model.Notification{ID: "n1"}) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 10, 10
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				n := model.Notification{
					ID:   fmt.Sprintf("n-%d-%d", p, j),
					Kind: model.KindMove,
					Move: model.MoveNotification{TokenID: fmt.Sprintf("tok-%d", p)},
				}
				if !q.Enqueue(ctx, n) {
					t.Errorf("enqueue %s failed", n.ID)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Fatalf("expected %d queued, got %d", producers*perProducer, l)
	}

	seen := make(map[string]bool)
	ch := q.Dequeue(ctx)
	for i := 0; i < producers*perProducer; i++ {
		n := <-ch
		if seen[n.ID] {
			t.Errorf("duplicate delivery of %s", n.ID)
		}
		seen[n.ID] = true
	}
}
