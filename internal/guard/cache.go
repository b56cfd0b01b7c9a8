package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"layout-translator/internal/lang"
)

// CacheEntry is one memoized guard result.
type CacheEntry struct {
	Hash      string        `json:"hash"`
	Target    lang.Language `json:"target"`
	Result    Result        `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
}

// cacheFile is the on-disk form of a Cache.
type cacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// Cache is a size-bounded LRU memo of guard results keyed by normalized
// source text and target language. It can be persisted between runs.
type Cache struct {
	path   string
	items  *lru.Cache[string, CacheEntry]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache holding at most size entries. path may be empty
// to disable persistence.
func NewCache(size int, path string) (*Cache, error) {
	items, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create translation cache: %w", err)
	}
	return &Cache{path: path, items: items}, nil
}

// Key hashes the normalized text together with the target language.
func Key(text string, target lang.Language) string {
	h := sha256.Sum256([]byte(string(target) + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Get returns the memoized result for text in target.
func (c *Cache) Get(text string, target lang.Language) (Result, bool) {
	e, ok := c.items.Get(Key(text, target))
	if !ok {
		c.misses.Add(1)
		return Result{}, false
	}
	c.hits.Add(1)
	return e.Result, true
}

// Put memoizes r for text in target.
func (c *Cache) Put(text string, target lang.Language, r Result) {
	k := Key(text, target)
	c.items.Add(k, CacheEntry{Hash: k, Target: target, Result: r, CreatedAt: time.Now()})
}

// Len is the number of entries held.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Stats reports hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Load reads persisted entries. A missing file is not an error.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for _, e := range f.Entries {
		c.items.Add(e.Hash, e)
	}
	return nil
}

// Save writes the entries, oldest first, so a later Load keeps recency.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	keys := c.items.Keys()
	f := cacheFile{Version: "1", Entries: make([]CacheEntry, 0, len(keys))}
	for _, k := range keys {
		if e, ok := c.items.Peek(k); ok {
			f.Entries = append(f.Entries, e)
		}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}
