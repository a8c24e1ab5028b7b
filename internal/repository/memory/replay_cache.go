package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// ReplayCache remembers recently committed webhook event keys so redeliveries
// can be acknowledged without opening a transaction. The webhook_events table
// stays authoritative.
type ReplayCache struct {
	cache *cache.Cache
}

func NewReplayCache(ttl time.Duration) *ReplayCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ReplayCache{
		cache: cache.New(ttl, ttl/3),
	}
}

func ReplayKey(provider, eventId string) string {
	return provider + "|" + eventId
}

func (r *ReplayCache) MarkProcessed(provider, eventId string) {
	r.cache.Set(ReplayKey(provider, eventId), struct{}{}, cache.DefaultExpiration)
}

func (r *ReplayCache) Seen(provider, eventId string) bool {
	_, found := r.cache.Get(ReplayKey(provider, eventId))
	return found
}

func (r *ReplayCache) Forget(provider, eventId string) {
	r.cache.Delete(ReplayKey(provider, eventId))
}
