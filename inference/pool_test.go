package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// stubPool builds a pool of sessions without a backing model. They can be
// acquired, released and closed but not run.
func stubPool(size int) *Pool {
	p := newPool(size)
	for i := 0; i < size; i++ {
		p.sessions <- &Session{io: detectorIO}
	}
	return p
}

func TestNewPool_ModelNotFound(t *testing.T) {
	_, err := NewPool("../testdata/nonexistent.onnx", detectorIO, 2)
	if err == nil {
		t.Error("expected error for non-existent model file")
	}
}

func TestNewPool_InvalidSize(t *testing.T) {
	modelPath := testModelPath(t)

	for _, size := range []int{0, -5} {
		pool, err := NewPool(modelPath, detectorIO, size)
		if err != nil {
			if isORTUnavailableError(err) {
				t.Skipf("Skipping: ONNX runtime not available: %v", err)
			}
			t.Fatalf("NewPool failed: %v", err)
		}
		if pool.Size() != 1 {
			t.Errorf("expected size 1 for %d, got %d", size, pool.Size())
		}
		_ = pool.Close()
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	pool := stubPool(2)
	defer func() { _ = pool.Close() }()

	ctx := context.Background()

	s1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1 failed: %v", err)
	}
	s2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 2 failed: %v", err)
	}

	// Third acquire should block - test with timeout
	ctx3, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = pool.Acquire(ctx3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}

	pool.Release(s1)

	s3, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 3 failed: %v", err)
	}

	pool.Release(s2)
	pool.Release(s3)
}

func TestPool_ReleaseNil(t *testing.T) {
	pool := stubPool(1)
	defer func() { _ = pool.Close() }()

	// Should not panic when releasing nil
	pool.Release(nil)
}

func TestPool_ReleaseExcess(t *testing.T) {
	pool := stubPool(1)
	defer func() { _ = pool.Close() }()

	extra := &Session{io: detectorIO}
	pool.Release(extra)
	if !extra.closed {
		t.Error("expected excess session to be closed")
	}
}

func TestPool_Close_Idempotent(t *testing.T) {
	pool := stubPool(2)

	if err := pool.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestPool_AcquireAfterClose(t *testing.T) {
	pool := stubPool(1)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := pool.Acquire(context.Background())
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
	if _, err := pool.Run(context.Background(), pixels(2, 2)); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed from Run, got %v", err)
	}
}

func TestPool_ReleaseAfterClose(t *testing.T) {
	pool := stubPool(1)

	session, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Release should close the session instead of returning it to pool
	pool.Release(session)
	if !session.closed {
		t.Error("expected released session to be closed")
	}
}

func TestPool_AcquireContextCancellation(t *testing.T) {
	pool := stubPool(1)
	defer func() { _ = pool.Close() }()

	ctx := context.Background()
	s1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1 failed: %v", err)
	}
	defer pool.Release(s1)

	cancelledCtx, cancel := context.WithCancel(ctx)
	cancel()

	_, err = pool.Acquire(cancelledCtx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	pool := stubPool(3)
	defer func() { _ = pool.Close() }()

	ctx := context.Background()
	numGoroutines := 10
	numIterations := 5

	var wg sync.WaitGroup
	var successCount int64
	var errCount int64

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				acquireCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
				session, err := pool.Acquire(acquireCtx)
				cancel()

				if err != nil {
					atomic.AddInt64(&errCount, 1)
					continue
				}

				time.Sleep(time.Millisecond)

				pool.Release(session)
				atomic.AddInt64(&successCount, 1)
			}
		}()
	}

	wg.Wait()

	if successCount == 0 {
		t.Error("expected at least some successful acquire/release cycles")
	}
	if pool.Size() != 3 {
		t.Errorf("Size() = %d, want 3", pool.Size())
	}

	t.Logf("Concurrent test completed: %d successes, %d timeouts", successCount, errCount)
}
