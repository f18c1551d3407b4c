package scanner

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"

	"compgraph/internal/engine/parser"
)

type cacheEntry struct {
	sum    [sha256.Size]byte
	result parser.ParseResult
}

// ParseCache keeps recent parse results keyed by absolute path. An entry is
// only served while the file content hashes to the same value.
type ParseCache struct {
	inner *lru.Cache[string, cacheEntry]
}

func NewParseCache(size int) (*ParseCache, error) {
	if size <= 0 {
		return nil, nil
	}
	inner, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{inner: inner}, nil
}

func (c *ParseCache) Get(path string, content []byte) (parser.ParseResult, bool) {
	if c == nil {
		return parser.ParseResult{}, false
	}
	entry, ok := c.inner.Get(path)
	if !ok || entry.sum != sha256.Sum256(content) {
		return parser.ParseResult{}, false
	}
	return entry.result, true
}

func (c *ParseCache) Put(path string, content []byte, res parser.ParseResult) {
	if c == nil {
		return
	}
	c.inner.Add(path, cacheEntry{sum: sha256.Sum256(content), result: res})
}

func (c *ParseCache) Invalidate(paths ...string) {
	if c == nil {
		return
	}
	for _, p := range paths {
		c.inner.Remove(p)
	}
}

func (c *ParseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.inner.Len()
}
