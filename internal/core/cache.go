package core

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docshield/docshield/internal/analysis"
)

// ResultCache remembers scan results by content digest, so re-uploading the
// same bytes skips the scanners. Verdicts are not cached.
type ResultCache struct {
	entries *lru.Cache[string, *analysis.Result]
}

// NewResultCache returns nil when size is zero or negative; a nil cache
// is valid and never hits.
func NewResultCache(size int) *ResultCache {
	if size <= 0 {
		return nil
	}
	entries, err := lru.New[string, *analysis.Result](size)
	if err != nil {
		return nil
	}
	return &ResultCache{entries: entries}
}

// Digest is the cache key for a document's bytes and format.
func Digest(format analysis.Format, data []byte) string {
	sum := sha256.Sum256(data)
	return format.String() + ":" + hex.EncodeToString(sum[:])
}

func (c *ResultCache) Get(key string) (*analysis.Result, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

func (c *ResultCache) Add(key string, r *analysis.Result) {
	if c == nil {
		return
	}
	c.entries.Add(key, r)
}

// Len is the number of cached results.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
