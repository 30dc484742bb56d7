package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestDue(t *testing.T) {
	tests := []struct {
		processed, total int
		want             bool
	}{
		{10, 100, true},
		{20, 100, true},
		{7, 100, false},
		{100, 100, true},
		{99, 99, true}, // final item always due
		{1, 100, false},
	}
	for _, tt := range tests {
		if got := Due(tt.processed, tt.total); got != tt.want {
			t.Errorf("Due(%d, %d) = %v, want %v", tt.processed, tt.total, got, tt.want)
		}
	}
}

func TestReporter_DeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int

	r := NewReporter(context.Background(), func(_ context.Context, processed int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, processed)
		return nil
	}, 8, zap.NewNop())

	for _, p := range []int{10, 20, 30} {
		r.Report(p)
	}
	r.Close()

	if len(got) != 3 || got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Errorf("delivered = %v, want [10 20 30]", got)
	}
}

func TestReporter_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	var mu sync.Mutex
	applied := 0

	r := NewReporter(context.Background(), func(_ context.Context, _ int) error {
		<-block
		mu.Lock()
		applied++
		mu.Unlock()
		return nil
	}, 1, zap.NewNop())

	// First fills the consumer, second fills the queue, rest are dropped.
	for i := 1; i <= 10; i++ {
		r.Report(i)
	}
	close(block)
	r.Close()

	mu.Lock()
	defer mu.Unlock()
	if applied > 2 {
		t.Errorf("applied %d updates, want at most 2 with a full queue", applied)
	}
	if applied == 0 {
		t.Error("expected at least one applied update")
	}
}

func TestReporter_ApplyErrorDoesNotStopConsumer(t *testing.T) {
	var mu sync.Mutex
	var got []int

	r := NewReporter(context.Background(), func(_ context.Context, processed int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, processed)
		if processed == 10 {
			return errors.New("metadata store down")
		}
		return nil
	}, 8, zap.NewNop())

	r.Report(10)
	r.Report(20)
	r.Close()

	if len(got) != 2 {
		t.Errorf("delivered %v, want both updates despite the error", got)
	}
}

func TestReporter_CloseIsIdempotent(t *testing.T) {
	r := NewReporter(context.Background(), func(context.Context, int) error { return nil }, 4, zap.NewNop())
	r.Close()
	r.Close() // must not panic
}
