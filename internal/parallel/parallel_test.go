package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	inputs := []string{"a", "b", "c", "d"}
	results, err := Map(context.Background(), 2, inputs, func(_ context.Context, i int, in string) (string, error) {
		return fmt.Sprintf("%d:%s", i, in), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"0:a", "1:b", "2:c", "3:d"}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %q, want %q", i, results[i], want[i])
		}
	}
}

func TestMapOutOfOrderCompletion(t *testing.T) {
	// Gate each call on the completion of the next index, forcing
	// strictly reversed completion order. Results must still come back
	// in input order.
	const n = 4
	gates := make([]chan struct{}, n)
	for i := range gates {
		gates[i] = make(chan struct{})
	}
	var mu sync.Mutex
	var completed []int

	inputs := []int{10, 20, 30, 40}
	results, err := Map(context.Background(), 0, inputs, func(_ context.Context, i int, in int) (int, error) {
		if i < n-1 {
			<-gates[i]
		}
		mu.Lock()
		completed = append(completed, i)
		mu.Unlock()
		if i > 0 {
			close(gates[i-1])
		}
		return in * 2, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, in := range inputs {
		if results[i] != in*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], in*2)
		}
	}
	wantOrder := []int{3, 2, 1, 0}
	for i := range wantOrder {
		if completed[i] != wantOrder[i] {
			t.Fatalf("completion order = %v, want %v", completed, wantOrder)
		}
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	const workers = 2
	var active, peak atomic.Int32

	inputs := make([]int, 8)
	_, err := Map(context.Background(), workers, inputs, func(_ context.Context, i int, _ int) (int, error) {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return 0, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency = %d, want at most %d", got, workers)
	}
}

func TestMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	results, err := Map(context.Background(), 1, []int{0, 1, 2}, func(_ context.Context, i int, _ int) (int, error) {
		if i == 1 {
			return 0, boom
		}
		return i, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if results != nil {
		t.Errorf("results = %v, want nil on error", results)
	}
}

func TestMapCancelsRemainingOnError(t *testing.T) {
	boom := errors.New("boom")
	var canceled atomic.Bool

	_, err := Map(context.Background(), 1, []int{0, 1}, func(ctx context.Context, i int, _ int) (int, error) {
		if i == 0 {
			return 0, boom
		}
		if ctx.Err() != nil {
			canceled.Store(true)
		}
		return 0, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !canceled.Load() {
		t.Error("context not canceled for the call after the failure")
	}
}

func TestMapEmptyInput(t *testing.T) {
	results, err := Map(context.Background(), 4, nil, func(_ context.Context, _ int, _ string) (string, error) {
		t.Error("fn called for empty input")
		return "", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
