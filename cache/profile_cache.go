package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/reviewdesk/domain"
)

// ProfileCache caches the connected account profile per tenant and provider.
// A cache miss is never an error.
type ProfileCache interface {
	Get(ctx context.Context, key string) (*domain.UserProfile, bool)
	Set(ctx context.Context, key string, profile *domain.UserProfile) error
	Delete(ctx context.Context, key string) error
}

// ProfileKey builds the cache key of a tenant's provider profile.
func ProfileKey(provider, tenantID string) string {
	return provider + ":" + tenantID
}

// MemoryProfileCache implements ProfileCache using ttlcache.
type MemoryProfileCache struct {
	cache *ttlcache.Cache[string, domain.UserProfile]
}

// NewMemoryProfileCache creates an in-process cache whose entries live for ttl.
// Call Stop to end the expiry loop.
func NewMemoryProfileCache(ttl time.Duration) *MemoryProfileCache {
	c := ttlcache.New(
		ttlcache.WithTTL[string, domain.UserProfile](ttl),
		ttlcache.WithDisableTouchOnHit[string, domain.UserProfile](),
	)

	go c.Start()

	return &MemoryProfileCache{cache: c}
}

// Get implements ProfileCache.Get.
func (s *MemoryProfileCache) Get(_ context.Context, key string) (*domain.UserProfile, bool) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, false
	}
	profile := item.Value()
	return &profile, true
}

// Set implements ProfileCache.Set.
func (s *MemoryProfileCache) Set(_ context.Context, key string, profile *domain.UserProfile) error {
	s.cache.Set(key, *profile, ttlcache.DefaultTTL)
	return nil
}

// Delete implements ProfileCache.Delete.
func (s *MemoryProfileCache) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len returns the number of cached profiles.
func (s *MemoryProfileCache) Len() int {
	return s.cache.Len()
}

// Stop ends the background expiry loop.
func (s *MemoryProfileCache) Stop() {
	s.cache.Stop()
}
