package filter

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes parsed filters by their source text. Only successful parses
// are cached. A Cache is safe for concurrent use; the nil *Cache parses
// every time.
type Cache struct {
	lru *lru.Cache[string, *Filter]
}

// NewCache returns a cache holding up to size filters. A size of zero or
// less disables caching.
func NewCache(size int) *Cache {
	if size <= 0 {
		return &Cache{}
	}

	c, err := lru.New[string, *Filter](size)
	if err != nil {
		return &Cache{}
	}

	return &Cache{lru: c}
}

// Parse returns the cached filter for text or parses and caches it.
func (c *Cache) Parse(text string) (*Filter, error) {
	if c == nil || c.lru == nil {
		return Parse(text)
	}

	if f, ok := c.lru.Get(text); ok {
		return f, nil
	}

	f, err := Parse(text)
	if err != nil {
		return nil, err
	}

	c.lru.Add(text, f)

	return f, nil
}

// Len returns the number of cached filters.
func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}

	return c.lru.Len()
}
