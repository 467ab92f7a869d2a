package deviceauth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// NonceStore is the anti-replay cache. Scoped to a single authoritative
// process; swapping in a shared cache only requires another implementation.
type NonceStore interface {
	Seen(nonce string) bool
	Remember(nonce string)
}

// nonceCache is a go-cache backed NonceStore. Entries live for the freshness
// window and the cache janitor purges expired ones on its own interval, so
// memory stays bounded by the window's worth of traffic.
type nonceCache struct {
	c *cache.Cache
}

// NewNonceCache creates a NonceStore whose entries expire after window and
// are purged every purgeInterval.
func NewNonceCache(window, purgeInterval time.Duration) NonceStore {
	return &nonceCache{c: cache.New(window, purgeInterval)}
}

func (n *nonceCache) Seen(nonce string) bool {
	_, found := n.c.Get(nonce)
	return found
}

func (n *nonceCache) Remember(nonce string) {
	n.c.SetDefault(nonce, time.Now())
}
