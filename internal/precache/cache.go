package precache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/stocklink/stocklink/internal/domain"
)

// metaCache holds remote metadata snapshots (vocabulary lists, attribute
// metadata, custom-entity elements) for the duration of one batch run. The
// TTL is a safety net; Reset between runs is what actually bounds staleness.
type metaCache struct {
	lru *expirable.LRU[string, []domain.Entity]
}

func newMetaCache(size int, ttl time.Duration) *metaCache {
	return &metaCache{
		lru: expirable.NewLRU[string, []domain.Entity](size, nil, ttl),
	}
}

func (c *metaCache) get(accountID, endpoint string) ([]domain.Entity, bool) {
	return c.lru.Get(accountID + "|" + endpoint)
}

func (c *metaCache) set(accountID, endpoint string, rows []domain.Entity) {
	c.lru.Add(accountID+"|"+endpoint, rows)
}

// dropAccount evicts every snapshot of one account. Another pair sharing
// the account takes a cache miss on its next fetch, nothing worse.
func (c *metaCache) dropAccount(accountID string) {
	prefix := accountID + "|"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}
