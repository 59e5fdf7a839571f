package review

import (
	"github.com/MD412/project-arceus/internal/model"
	gocache "github.com/patrickmn/go-cache"
)

// InboxKey is the cache key of the pending scan list.
const InboxKey = "inbox"

// DetectionsKey returns the cache key of one scan's detections.
func DetectionsKey(scanID string) string {
	return "detections:" + scanID
}

// QueryCache memoizes backend reads until they are invalidated.
type QueryCache struct {
	store *gocache.Cache
}

// NewQueryCache creates an empty cache. Entries never expire on their own.
func NewQueryCache() *QueryCache {
	return &QueryCache{store: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the value stored under key.
func (c *QueryCache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores value under key, replacing any previous value.
func (c *QueryCache) Set(key string, value any) {
	c.store.Set(key, value, gocache.NoExpiration)
}

// Invalidate drops key so the next read goes to the backend.
func (c *QueryCache) Invalidate(key string) {
	c.store.Delete(key)
}

// Inbox returns the cached pending scan list.
func (c *QueryCache) Inbox() ([]model.InboxEntry, bool) {
	v, ok := c.Get(InboxKey)
	if !ok {
		return nil, false
	}
	entries, ok := v.([]model.InboxEntry)
	return entries, ok
}

// Detections returns the cached detections of a scan.
func (c *QueryCache) Detections(scanID string) ([]model.Detection, bool) {
	v, ok := c.Get(DetectionsKey(scanID))
	if !ok {
		return nil, false
	}
	detections, ok := v.([]model.Detection)
	return detections, ok
}
