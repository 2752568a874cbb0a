package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadLimiterAcquireRelease(t *testing.T) {
	ctx := context.Background()
	l := newLoadLimiter(2, time.Second)

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	l.release()
	l.release()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	l.release()
}

func TestLoadLimiterRejectsWhenFull(t *testing.T) {
	ctx := context.Background()
	l := newLoadLimiter(1, 20*time.Millisecond)

	if err := l.acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.release()

	err := l.acquire(ctx)
	if !errors.Is(err, ErrTooManyLoads) {
		t.Errorf("error = %v, want ErrTooManyLoads", err)
	}
}

func TestLoadLimiterCanceledContext(t *testing.T) {
	l := newLoadLimiter(1, time.Minute)

	ctx := context.Background()
	if err := l.acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.release()

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.acquire(canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoadLimiterDefaults(t *testing.T) {
	l := newLoadLimiter(0, 0)
	if l.maxWait != DefaultLoadWait {
		t.Errorf("maxWait = %v, want %v", l.maxWait, DefaultLoadWait)
	}

	ctx := context.Background()
	for i := 0; i < DefaultMaxConcurrentLoads; i++ {
		if err := l.acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	for i := 0; i < DefaultMaxConcurrentLoads; i++ {
		l.release()
	}
}
