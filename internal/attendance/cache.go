package attendance

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"presenca-bot/internal/common/clock"
	"presenca-bot/internal/models"
)

const cacheKey = "participants"

type loadFunc func(ctx context.Context) ([]models.Participant, error)

// readCache memoizes the participant list for ttl. Concurrent misses share a
// single load. A load that started before invalidate never repopulates the cache.
type readCache struct {
	ttl   time.Duration
	clock clock.Clock
	group singleflight.Group

	mu       sync.RWMutex
	rows     []models.Participant
	loadedAt time.Time
	valid    bool
	gen      uint64
}

func newReadCache(ttl time.Duration, c clock.Clock) *readCache {
	return &readCache{ttl: ttl, clock: c}
}

func (c *readCache) get(ctx context.Context, load loadFunc) ([]models.Participant, error) {
	if c.ttl <= 0 {
		return load(ctx)
	}

	c.mu.RLock()
	if c.valid && c.clock.Now().Sub(c.loadedAt) < c.ttl {
		rows := cloneParticipants(c.rows)
		c.mu.RUnlock()
		return rows, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	// the load is shared, so one caller giving up must not fail the others
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		rows, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.rows = rows
			c.loadedAt = c.clock.Now()
			c.valid = true
		}
		c.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneParticipants(v.([]models.Participant)), nil
}

func (c *readCache) invalidate() {
	c.mu.Lock()
	c.rows = nil
	c.valid = false
	c.gen++
	c.mu.Unlock()
	c.group.Forget(cacheKey)
}

func cloneParticipants(in []models.Participant) []models.Participant {
	out := make([]models.Participant, len(in))
	copy(out, in)
	return out
}
