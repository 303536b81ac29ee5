package files

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntryLimit is the largest payload CachedRepository keeps.
const DefaultCacheEntryLimit = 4 << 20

// CachedRepository serves repeated reads of the same blob (export, bridge
// previews) from memory. Put and Delete write through and keep the cache
// coherent. Returned slices are shared with the cache and must not be
// modified.
//
// Every write bumps a generation counter; a read only fills the cache when no
// write happened while it was reading the inner store.
type CachedRepository struct {
	Repository
	cache      *lru.Cache[string, []byte]
	entryLimit int

	mu  sync.Mutex
	gen uint64
}

// NewCachedRepository wraps inner with an LRU of at most size entries.
// A non-positive size disables caching and returns inner unchanged.
func NewCachedRepository(inner Repository, size int) Repository {
	if size <= 0 {
		return inner
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return inner
	}
	return &CachedRepository{Repository: inner, cache: cache, entryLimit: DefaultCacheEntryLimit}
}

func (r *CachedRepository) Put(ctx context.Context, id string, blob []byte) error {
	r.invalidate(id)
	err := r.Repository.Put(ctx, id, blob)
	gen := r.invalidate(id)
	if err != nil {
		return err
	}
	r.remember(id, blob, gen)
	return nil
}

func (r *CachedRepository) Get(ctx context.Context, id string) ([]byte, error) {
	if b, ok := r.cache.Get(id); ok {
		return b, nil
	}
	gen := r.generation()
	b, err := r.Repository.Get(ctx, id)
	if err != nil || b == nil {
		return b, err
	}
	r.remember(id, b, gen)
	return b, nil
}

func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	r.invalidate(id)
	err := r.Repository.Delete(ctx, id)
	r.invalidate(id)
	return err
}

func (r *CachedRepository) Close() error {
	r.cache.Purge()
	return r.Repository.Close()
}

// Len reports the number of cached payloads.
func (r *CachedRepository) Len() int {
	return r.cache.Len()
}

func (r *CachedRepository) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// invalidate drops id from the cache and starts a new generation.
func (r *CachedRepository) invalidate(id string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.cache.Remove(id)
	return r.gen
}

// remember caches blob unless a write happened after gen was taken.
func (r *CachedRepository) remember(id string, blob []byte, gen uint64) {
	if len(blob) > r.entryLimit {
		return
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.cache.Add(id, cp)
}
