package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nci/gomemcache/memcache"
)

// cached documents age out on their own so entries from an abandoned
// generation do not linger in memcached
const docCacheExpiry = 3600

// DocCache memoises assembled capability documents in memcached so
// repeated GetCapabilities requests skip document assembly. With no
// memcache URI configured every lookup misses and the cache is a
// no-op.
type DocCache struct {
	mc      *memcache.Client
	verbose bool
	gen     uint64
}

func NewDocCache(memcacheURI string, verbose bool) *DocCache {
	// the generation is seeded from the clock so a restarted server
	// never picks up documents written by a previous incarnation
	cache := &DocCache{verbose: verbose, gen: uint64(time.Now().UnixNano())}
	if len(memcacheURI) > 0 {
		// lazy connection; errors surface in Get
		cache.mc = memcache.New(memcacheURI)
	}
	return cache
}

// Key derives a cache key from the request facts a document depends
// on, typically namespace, service and base URL. The generation set
// at construction keeps keys from colliding across config reloads,
// which rebuild the cache.
func (c *DocCache) Key(parts ...string) string {
	buff := md5.Sum([]byte(fmt.Sprintf("%d|%s", c.gen, strings.Join(parts, "|"))))
	return hex.EncodeToString(buff[:])
}

func (c *DocCache) Get(key string) (string, bool) {
	if c.mc == nil {
		return "", false
	}
	item, err := c.mc.Get(key)
	if err != nil {
		return "", false
	}
	return string(item.Value), true
}

func (c *DocCache) Put(key string, value string) {
	if c.mc == nil {
		return
	}
	// don't care about errors; memcache may not necessarily retain
	// this anyway
	if err := c.mc.Set(&memcache.Item{Key: key, Value: []byte(value), Expiration: docCacheExpiry}); err != nil && c.verbose {
		log.Printf("OWS: doc cache set failed: %v\n", err)
	}
}
