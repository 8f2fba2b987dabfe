package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Locker provides mutual exclusion over a set of string keys.  Lock
// acquires every key or none; the returned function releases them and
// may be called more than once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// SlotKey names the lock guarding one (room, day, hour) slot.
func SlotKey(roomID uint64, day time.Time, hour int) string {
	return fmt.Sprintf("slot:%d:%s:%d", roomID, DayKey(day), hour)
}

// QuotaKey names the lock guarding one student's hours on a day.
func QuotaKey(studentID uint64, day time.Time) string {
	return fmt.Sprintf("quota:%d:%s", studentID, DayKey(day))
}

// sortedKeys returns keys deduplicated and in ascending order.  Every
// Locker acquires in this order so two overlapping bookings cannot
// deadlock.
func sortedKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyedMutex is an in-process Locker.  Entries are reference counted and
// dropped once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (m *KeyedMutex) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = sortedKeys(keys)
	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := m.acquire(ctx, k); err != nil {
			m.release(held)
			return nil, err
		}
		held = append(held, k)
	}
	var once sync.Once
	return func() { once.Do(func() { m.release(held) }) }, nil
}

func (m *KeyedMutex) acquire(ctx context.Context, key string) error {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		m.unref(key, l)
		m.mu.Unlock()
		return ctx.Err()
	}
}

func (m *KeyedMutex) release(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(keys) - 1; i >= 0; i-- {
		l := m.locks[keys[i]]
		<-l.ch
		m.unref(keys[i], l)
	}
}

func (m *KeyedMutex) unref(key string, l *keyLock) {
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Held returns the number of keys currently tracked, held or awaited.
func (m *KeyedMutex) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
