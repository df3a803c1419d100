// Package cache keeps hot App rows out of the database. Apps are
// immutable for the gateway's purposes, so a short TTL is safe.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jhalloran/linkgate/internal/models"
)

// AppSource is the backing lookup the cache reads through to.
type AppSource interface {
	GetByID(ctx context.Context, id string) (*models.App, error)
}

// AppCache is a read-through TTL cache over an AppSource. Lookup
// failures are not cached; every miss retries the source.
type AppCache struct {
	source AppSource
	store  *gocache.Cache
}

// NewAppCache creates a new AppCache
func NewAppCache(source AppSource, ttl time.Duration) *AppCache {
	return &AppCache{
		source: source,
		store:  gocache.New(ttl, 2*ttl),
	}
}

// GetByID returns the cached App or loads it from the source.
func (c *AppCache) GetByID(ctx context.Context, id string) (*models.App, error) {
	if cached, found := c.store.Get(id); found {
		return cached.(*models.App), nil
	}

	app, err := c.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store.Set(id, app, gocache.DefaultExpiration)
	return app, nil
}

// Invalidate drops one App from the cache.
func (c *AppCache) Invalidate(id string) {
	c.store.Delete(id)
}
