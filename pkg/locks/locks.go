package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL      = 10 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// ErrLockTimeout is returned when the context ends before the lock is granted.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Unlock releases a lock obtained from a Locker. It is safe to call once.
type Unlock func()

// Locker serializes work per key. Callers must release the lock before
// acquiring another one for the same key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// MutexLocker is an in-process Locker backed by one channel semaphore per key.
// Entries are dropped once no goroutine holds or waits on them.
type MutexLocker struct {
	mu      sync.Mutex
	entries map[string]*mutexEntry
}

type mutexEntry struct {
	sem  chan struct{}
	refs int
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{entries: make(map[string]*mutexEntry)}
}

func (l *MutexLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	entry := l.ref(key)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.unref(key)
		})
	}, nil
}

func (l *MutexLocker) ref(key string) *mutexEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &mutexEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *MutexLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

// redisStore defines the operations used by RedisLocker.
type redisStore interface {
	AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, token string) (bool, error)
}

// RedisLocker implements Locker with SET NX PX and a token-checked release,
// so several API replicas can share the same per-customer serialization.
type RedisLocker struct {
	client       redisStore
	ttl          time.Duration
	pollInterval time.Duration
}

// NewRedisLocker constructs a Redis-backed locker. ttl bounds how long a crashed
// holder can block others.
func NewRedisLocker(client redisStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for locker")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, pollInterval: defaultPollInterval}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.AcquireLock(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, _ = l.client.ReleaseLock(releaseCtx, key, token)
		})
	}, nil
}
