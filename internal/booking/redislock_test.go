package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLocker(rdb, "test", ttl)
	l.retry = 2 * time.Millisecond
	return l, m
}

func TestRedisLockerExcludesSameKey(t *testing.T) {
	l, m := newTestRedisLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "slot:1", "quota:2")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Exists("test:slot:1") || !m.Exists("test:quota:2") {
		t.Fatalf("expected both keys held, got %v", m.Keys())
	}
	if ttl := m.TTL("test:slot:1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within (0, 1m], got %v", ttl)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "quota:2"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded while held, got %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), "quota:2")
		if err != nil {
			t.Errorf("lock after release: %v", err)
			close(acquired)
			return
		}
		u()
		close(acquired)
	}()

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired after unlock")
	}
	if len(m.Keys()) != 0 {
		t.Fatalf("expected no keys left, got %v", m.Keys())
	}
}

func TestRedisLockerReleaseChecksToken(t *testing.T) {
	l, m := newTestRedisLocker(t, time.Second)

	unlock, err := l.Lock(context.Background(), "slot:1")
	if err != nil {
		t.Fatal(err)
	}
	// The hold expires and someone else takes the slot.
	m.FastForward(2 * time.Second)
	if m.Exists("test:slot:1") {
		t.Fatal("expected key to expire")
	}
	if err := m.Set("test:slot:1", "other-holder"); err != nil {
		t.Fatal(err)
	}

	unlock()
	got, err := m.Get("test:slot:1")
	if err != nil || got != "other-holder" {
		t.Fatalf("release removed a key it no longer owns: %q, %v", got, err)
	}
}

func TestRedisLockerCancelReleasesPartialHold(t *testing.T) {
	l, m := newTestRedisLocker(t, time.Minute)

	if err := m.Set("test:slot:b", "elsewhere"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := l.Lock(ctx, "slot:b", "slot:a")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
	if m.Exists("test:slot:a") {
		t.Fatal("key taken before the failure was not released")
	}
	if got, _ := m.Get("test:slot:b"); got != "elsewhere" {
		t.Fatalf("foreign key changed: %q", got)
	}
}

func TestRedisLockerUnlockAfterRequestDone(t *testing.T) {
	l, m := newTestRedisLocker(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	unlock, err := l.Lock(ctx, "slot:1", "quota:1")
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	unlock()
	unlock()
	if len(m.Keys()) != 0 {
		t.Fatalf("expected keys released after cancel, got %v", m.Keys())
	}
}

func TestRedisLockerSerializesHolders(t *testing.T) {
	l, _ := newTestRedisLocker(t, time.Minute)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "slot:shared")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if overlap {
		t.Fatal("two holders inside the critical section at once")
	}
}
