package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if cap(b.sem) != 4 {
		t.Errorf("MaxConcurrent default = %d, want 4", cap(b.sem))
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() = %v", err)
	}
	defer b.Release()

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("second Acquire() = %v, want ErrBulkheadFull", err)
	}
	if b.Rejected() != 1 {
		t.Errorf("Rejected() = %d, want 1", b.Rejected())
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Release()
	}()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("waiting Acquire() = %v, want nil after release", err)
	}
	b.Release()
}

func TestBulkhead_Do_LimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2, MaxWait: time.Second})

	var mu sync.Mutex
	active, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Do(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestBulkhead_ReleaseWithoutAcquire(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})

	// Must not panic or corrupt the slot count.
	b.Release()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after spurious Release() = %v", err)
	}
	if b.Active() != 1 {
		t.Errorf("Active() = %d, want 1", b.Active())
	}
}
