package program

import (
	"github.com/ethereum/go-ethereum/common/lru"
)

// Cache keeps compiled programs across queries for the lifetime of a store.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	cache *lru.Cache[[32]byte, *Program]
}

// NewCache returns nil when size <= 0, which disables store-lifetime caching.
func NewCache(size int) *Cache {
	if size <= 0 {
		return nil
	}
	return &Cache{
		cache: lru.NewCache[[32]byte, *Program](size),
	}
}

func (c *Cache) Add(key [32]byte, p *Program) {
	if c == nil {
		return
	}
	c.cache.Add(key, p)
}

func (c *Cache) Get(key [32]byte) (*Program, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}
