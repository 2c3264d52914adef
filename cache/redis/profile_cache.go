package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/reviewdesk/cache"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ProfileCache implements cache.ProfileCache on Redis so that every
// service instance shares the cached profiles.
type ProfileCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewProfileCache creates a ProfileCache. Keys are namespaced with prefix.
func NewProfileCache(client *redis.Client, prefix string, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// redisKey returns the Redis key for a cache key.
func (r *ProfileCache) redisKey(key string) string {
	return fmt.Sprintf("%s:profile:%s", r.prefix, key)
}

// Get implements cache.ProfileCache.Get.
func (r *ProfileCache) Get(ctx context.Context, key string) (*domain.UserProfile, bool) {
	raw, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read profile from Redis")
		}
		return nil, false
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding malformed cached profile")
		return nil, false
	}
	return &profile, true
}

// Set implements cache.ProfileCache.Set.
func (r *ProfileCache) Set(ctx context.Context, key string, profile *domain.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := r.client.Set(ctx, r.redisKey(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set profile in Redis: %w", err)
	}
	return nil
}

// Delete implements cache.ProfileCache.Delete.
func (r *ProfileCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete profile from Redis: %w", err)
	}
	return nil
}

var _ cache.ProfileCache = (*ProfileCache)(nil)
