package syncutil

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
)

// ContextShardedMutex provides a fixed-size pool of channel-based mutexes
// that support context cancellation: callers can bail out if their context
// is cancelled while waiting to acquire a lock.
type ContextShardedMutex struct {
	shards [256]chanMutex
	once   sync.Once
}

// chanMutex is a mutex implemented via a buffered channel, allowing select{}
// with a context cancellation channel.
type chanMutex struct {
	ch chan struct{}
}

// NewContextShardedMutex creates a new context-aware sharded mutex.
func NewContextShardedMutex() *ContextShardedMutex {
	m := &ContextShardedMutex{}
	m.init()
	return m
}

func (m *ContextShardedMutex) init() {
	m.once.Do(func() {
		for i := range m.shards {
			m.shards[i].ch = make(chan struct{}, 1)
			m.shards[i].ch <- struct{}{} // Start unlocked.
		}
	})
}

// LockContext acquires the mutex for the given key, respecting context
// cancellation. On success, returns an unlock function and nil error. The
// caller MUST call the unlock function when done.
// On context cancellation, returns nil and the context error.
func (m *ContextShardedMutex) LockContext(ctx context.Context, key string) (func(), error) {
	m.init()
	return m.lockShards(ctx, []uint32{m.shardIdx(key)})
}

// LockContextMany acquires the mutexes for all given keys. Keys hashing to
// the same shard are deduplicated, and shards are always acquired in
// ascending index order, so concurrent callers locking overlapping key sets
// cannot deadlock. Returns a single unlock function releasing every shard.
func (m *ContextShardedMutex) LockContextMany(ctx context.Context, keys ...string) (func(), error) {
	m.init()

	seen := make(map[uint32]struct{}, len(keys))
	shards := make([]uint32, 0, len(keys))
	for _, key := range keys {
		idx := m.shardIdx(key)
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		shards = append(shards, idx)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })

	return m.lockShards(ctx, shards)
}

// lockShards acquires the given shard indices in order, rolling back on
// cancellation mid-acquisition.
func (m *ContextShardedMutex) lockShards(ctx context.Context, shards []uint32) (func(), error) {
	acquired := make([]uint32, 0, len(shards))
	release := func() {
		for _, idx := range acquired {
			m.shards[idx].ch <- struct{}{}
		}
	}

	for _, idx := range shards {
		select {
		case <-m.shards[idx].ch:
			acquired = append(acquired, idx)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (m *ContextShardedMutex) shardIdx(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % 256
}
