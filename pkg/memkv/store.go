package memkv

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

type Options struct {
	Shards        int           // shard count (default 16)
	SweepInterval time.Duration // background expiry sweep (default 1m, <0 disables)
	MaxKeys       int           // Set refuses new keys beyond this (0 = unlimited)
}

func (o Options) withDefaults() Options {
	if o.Shards <= 0 {
		o.Shards = 16
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = time.Minute
	}
	return o
}

// Store maps string keys to values of type V.
type Store[V any] struct {
	opts   Options
	shards []shard[V]
	nowFn  func() time.Time

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	keys    atomic.Int64
	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]entry[V]
}

type entry[V any] struct {
	val      V
	expireAt int64 // unix nano; 0 = never
}

func (e entry[V]) expiredAt(now int64) bool { return e.expireAt != 0 && now >= e.expireAt }

func New[V any](opts Options) *Store[V] {
	opts = opts.withDefaults()
	s := &Store[V]{
		opts:    opts,
		shards:  make([]shard[V], opts.Shards),
		nowFn:   time.Now,
		closeCh: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i].m = make(map[string]entry[V])
	}
	if opts.SweepInterval > 0 {
		s.wg.Add(1)
		go s.sweeper(opts.SweepInterval)
	}
	return s
}

// Close stops the sweeper. The store stays usable.
func (s *Store[V]) Close() {
	s.closeOnce.Do(func() { close(s.closeCh) })
	s.wg.Wait()
}

func (s *Store[V]) shardFor(key string) *shard[V] {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return &s.shards[h.Sum64()%uint64(len(s.shards))]
}

func (s *Store[V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.nowFn().Add(ttl).UnixNano()
}

// Set stores val under key; ttl <= 0 means no expiry. It reports false when
// the key is new and MaxKeys is reached.
func (s *Store[V]) Set(key string, val V, ttl time.Duration) bool {
	sh := s.shardFor(key)
	exp := s.deadline(ttl)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[key]; !ok {
		if s.opts.MaxKeys > 0 && s.keys.Load() >= int64(s.opts.MaxKeys) {
			return false
		}
		s.keys.Add(1)
	}
	sh.m[key] = entry[V]{val: val, expireAt: exp}
	return true
}

func (s *Store[V]) Get(key string) (V, bool) {
	sh := s.shardFor(key)
	now := s.nowFn().UnixNano()
	sh.mu.RLock()
	e, ok := sh.m[key]
	sh.mu.RUnlock()
	if !ok || e.expiredAt(now) {
		s.misses.Add(1)
		var zero V
		return zero, false
	}
	s.hits.Add(1)
	return e.val, true
}

// TTL returns the remaining lifetime; ok is false for missing keys and
// remaining is 0 for keys without expiry.
func (s *Store[V]) TTL(key string) (remaining time.Duration, ok bool) {
	sh := s.shardFor(key)
	now := s.nowFn().UnixNano()
	sh.mu.RLock()
	e, found := sh.m[key]
	sh.mu.RUnlock()
	if !found || e.expiredAt(now) {
		return 0, false
	}
	if e.expireAt == 0 {
		return 0, true
	}
	return time.Duration(e.expireAt - now), true
}

func (s *Store[V]) Delete(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[key]; !ok {
		return false
	}
	delete(sh.m, key)
	s.keys.Add(-1)
	return true
}

// Len counts stored keys, including expired ones not yet swept.
func (s *Store[V]) Len() int { return int(s.keys.Load()) }

// Sweep removes expired keys and returns how many were removed.
func (s *Store[V]) Sweep() int {
	now := s.nowFn().UnixNano()
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, e := range sh.m {
			if e.expiredAt(now) {
				delete(sh.m, k)
				n++
			}
		}
		sh.mu.Unlock()
	}
	if n > 0 {
		s.keys.Add(int64(-n))
		s.expired.Add(uint64(n))
	}
	return n
}

func (s *Store[V]) sweeper(every time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

type Stats struct {
	Keys    int
	Hits    uint64
	Misses  uint64
	Expired uint64
}

func (s *Store[V]) Stats() Stats {
	return Stats{
		Keys:    s.Len(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Expired: s.expired.Load(),
	}
}
