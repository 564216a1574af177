package imagecache

// Package imagecache caches spot imagery on disk, with a byte-budgeted
// in-memory tier in front. Image keys are content-addressed by the backend
// (same key always means the same bytes), so entries never need
// revalidation; they only age out after a 30-day window. Memory pressure
// evicts least-recently-used memory entries while keeping the disk copy.

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"golang.org/x/sync/singleflight"
)

// Images are immutable by contract, so the expiry is just a hedge against
// the backend ever breaking that contract.
const DefaultExpiry = 30 * 24 * time.Hour

// Fetch retrieves an image from the network on a cache miss.
type Fetch func(ctx context.Context) ([]byte, error)

type memEntry struct {
	data      []byte
	lastUsed  int64
	fetchedAt time.Time
}

type ImageCache struct {
	log       logs.Log
	root      string
	maxMemory int64
	expiry    time.Duration

	lock     sync.Mutex
	mem      map[string]*memEntry
	memBytes int64
	tick     int64

	flight singleflight.Group

	now func() time.Time
}

func NewImageCache(log logs.Log, root string, maxMemoryBytes int64) (*ImageCache, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, err
	}
	return &ImageCache{
		log:       log,
		root:      root,
		maxMemory: maxMemoryBytes,
		expiry:    DefaultExpiry,
		mem:       map[string]*memEntry{},
		now:       time.Now,
	}, nil
}

// Get returns the cached bytes without fetching, from memory or disk.
func (c *ImageCache) Get(key string) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.getLocked(key)
}

func (c *ImageCache) getLocked(key string) ([]byte, bool) {
	if e, ok := c.mem[key]; ok {
		// The memory tier enforces the same age window as disk, so an entry
		// pinned in memory cannot outlive its disk copy.
		if c.now().Sub(e.fetchedAt) >= c.expiry {
			c.memBytes -= int64(len(e.data))
			delete(c.mem, key)
		} else {
			e.lastUsed = c.tick
			c.tick++
			return e.data, true
		}
	}
	data, fetchedAt, ok := c.readDisk(key)
	if !ok {
		return nil, false
	}
	c.addToMemoryLocked(key, data, fetchedAt)
	return data, true
}

// GetOrFetch returns the cached image, or runs fetch and stores the result
// in both tiers. Concurrent misses on the same key share one fetch.
func (c *ImageCache) GetOrFetch(ctx context.Context, key string, fetch Fetch) ([]byte, error) {
	c.lock.Lock()
	data, ok := c.getLocked(key)
	c.lock.Unlock()
	if ok {
		return data, nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		c.lock.Lock()
		data, ok := c.getLocked(key)
		c.lock.Unlock()
		if ok {
			return data, nil
		}
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Put stores image bytes in both tiers. Used directly when spot lists carry
// embedded thumbnails.
func (c *ImageCache) Put(key string, data []byte) {
	if err := c.writeDisk(key, data); err != nil {
		// A failed disk write degrades us to memory-only for this key
		c.log.Warnf("Failed to write image %v to disk cache: %v", key, err)
	}
	c.lock.Lock()
	c.addToMemoryLocked(key, data, c.now())
	c.lock.Unlock()
}

// Evict removes a key from both tiers. Callers use this when cached bytes
// turn out to be corrupt, so the next access is a clean miss.
func (c *ImageCache) Evict(key string) {
	c.lock.Lock()
	if e, ok := c.mem[key]; ok {
		c.memBytes -= int64(len(e.data))
		delete(c.mem, key)
	}
	c.lock.Unlock()
	os.Remove(c.diskPath(key))
}

// PurgeMemory drops the entire in-memory tier (memory pressure response).
// Disk copies are retained.
func (c *ImageCache) PurgeMemory() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.mem = map[string]*memEntry{}
	c.memBytes = 0
}

// Clear wipes both tiers. Logout path.
func (c *ImageCache) Clear() {
	c.PurgeMemory()
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.Remove(filepath.Join(c.root, e.Name()))
	}
}

// MemoryBytes returns the current size of the in-memory tier.
func (c *ImageCache) MemoryBytes() int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.memBytes
}

func (c *ImageCache) addToMemoryLocked(key string, data []byte, fetchedAt time.Time) {
	if old, ok := c.mem[key]; ok {
		c.memBytes -= int64(len(old.data))
	}
	c.mem[key] = &memEntry{data: data, lastUsed: c.tick, fetchedAt: fetchedAt}
	c.tick++
	c.memBytes += int64(len(data))
	c.purgeOverBudgetLocked()
}

// purgeOverBudgetLocked evicts least-recently-used memory entries until
// we're back under budget. Disk copies stay.
func (c *ImageCache) purgeOverBudgetLocked() {
	if c.memBytes <= c.maxMemory {
		return
	}
	entries := make([]string, 0, len(c.mem))
	for k := range c.mem {
		entries = append(entries, k)
	}
	sort.Slice(entries, func(i, j int) bool {
		return c.mem[entries[i]].lastUsed < c.mem[entries[j]].lastUsed
	})
	for _, k := range entries {
		if c.memBytes <= c.maxMemory {
			break
		}
		c.memBytes -= int64(len(c.mem[k].data))
		delete(c.mem, k)
	}
}

// readDisk returns the bytes and the file's write time, which the memory
// tier inherits so promotion never resets the age window.
func (c *ImageCache) readDisk(key string) ([]byte, time.Time, bool) {
	path := c.diskPath(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	if c.now().Sub(info.ModTime()) >= c.expiry {
		// Aged out; remove so the directory doesn't accumulate fossils
		os.Remove(path)
		return nil, time.Time{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	return data, info.ModTime(), true
}

func (c *ImageCache) writeDisk(key string, data []byte) error {
	path := c.diskPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// diskPath maps a cache key to a filename. Keys are backend identifiers like
// "spot_pipeline_thumb"; anything outside a conservative character set is
// escaped so a key can never traverse out of the cache root.
func (c *ImageCache) diskPath(key string) string {
	safe := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, key)
	if safe == "" || safe == "." || safe == ".." {
		safe = "_" + safe
	}
	return filepath.Join(c.root, safe)
}
