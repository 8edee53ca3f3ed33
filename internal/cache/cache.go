package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"clima/internal/models"
)

// Store caches readings by lookup key. Misses and backend failures both
// report ok=false; callers then go to the provider.
type Store interface {
	Get(ctx context.Context, key string) (models.Reading, bool)
	Set(ctx context.Context, key string, r models.Reading)
}

func CoordsKey(lat, lon float64) string { return fmt.Sprintf("coords:%.2f,%.2f", lat, lon) }

func CityKey(city string) string {
	return "city:" + strings.ToLower(strings.Join(strings.Fields(city), " "))
}

type entry struct {
	data      models.Reading
	expiresAt time.Time
}

type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{items: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (c *Cache) Get(_ context.Context, key string) (models.Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		return models.Reading{}, false
	}
	return e.data, true
}

func (c *Cache) Set(_ context.Context, key string, data models.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
	c.items[key] = entry{data: data, expiresAt: now.Add(c.ttl)}
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (models.Reading, bool) { return models.Reading{}, false }
func (Nop) Set(context.Context, string, models.Reading)        {}
