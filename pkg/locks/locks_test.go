package locks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLockerSerializesSameKey(t *testing.T) {
	locker := NewMutexLocker()
	var (
		wg      sync.WaitGroup
		active  int32
		maxSeen int32
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "0812")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()
			now := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if now <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, locker.entries, "entries should be released after use")
}

func TestMutexLockerIndependentKeys(t *testing.T) {
	locker := NewMutexLocker()
	unlockA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMutexLockerHonoursContext(t *testing.T) {
	locker := NewMutexLocker()
	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))

	unlock()
	unlock()
	assert.Empty(t, locker.entries)
}

type fakeRedisStore struct {
	mu       sync.Mutex
	holders  map[string]string
	released []string
}

func (f *fakeRedisStore) AcquireLock(_ context.Context, name, token string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.holders[name]; held {
		return false, nil
	}
	f.holders[name] = token
	return true, nil
}

func (f *fakeRedisStore) ReleaseLock(_ context.Context, name, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holders[name] != token {
		return false, nil
	}
	delete(f.holders, name)
	f.released = append(f.released, name)
	return true, nil
}

func TestRedisLockerWaitsForRelease(t *testing.T) {
	store := &fakeRedisStore{holders: map[string]string{}}
	locker, err := NewRedisLocker(store, time.Second)
	require.NoError(t, err)
	locker.pollInterval = time.Millisecond

	unlock, err := locker.Lock(context.Background(), "wallet:0812")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), "wallet:0812")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(10 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
	assert.Len(t, store.released, 2)
}

func TestRedisLockerTimeout(t *testing.T) {
	store := &fakeRedisStore{holders: map[string]string{"busy": "someone"}}
	locker, err := NewRedisLocker(store, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, locker.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestNewRedisLockerRequiresClient(t *testing.T) {
	_, err := NewRedisLocker(nil, time.Second)
	require.Error(t, err)
}
