package services

import (
	"fmt"
	"sync"

	"mathboard/backend/gamification"

	lru "github.com/hashicorp/golang-lru"
)

type cachedProfile struct {
	summary  ProfileSummary
	revision int64
}

// ProfileCache holds computed profile summaries keyed by user ID. An entry
// is only valid for the day it was computed on, and an older revision never
// replaces a newer one.
type ProfileCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func NewProfileCache(size int) (*ProfileCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return &ProfileCache{cache: cache}, nil
}

func (c *ProfileCache) Get(userID string, today gamification.DateKey) (ProfileSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(userID)
	if !ok {
		return ProfileSummary{}, false
	}
	entry := v.(cachedProfile)
	if entry.summary.Today != today {
		c.cache.Remove(userID)
		return ProfileSummary{}, false
	}
	return entry.summary, true
}

// Store caches summary unless a newer revision is already cached. It
// reports whether the entry was written.
func (c *ProfileCache) Store(userID string, revision int64, summary ProfileSummary) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.cache.Peek(userID); ok {
		if v.(cachedProfile).revision > revision {
			return false
		}
	}
	c.cache.Add(userID, cachedProfile{summary: summary, revision: revision})
	return true
}

func (c *ProfileCache) Len() int {
	return c.cache.Len()
}
