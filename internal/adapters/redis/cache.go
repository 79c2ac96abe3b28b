package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sportshub/venue-booking/internal/domain"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	val, err := c.client.Get(ctx, "venue:"+id.String()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var venue domain.Venue
	err = json.Unmarshal(val, &venue)
	return &venue, err
}

func (c *Cache) SetVenue(ctx context.Context, venue domain.Venue, ttl time.Duration) error {
	data, err := json.Marshal(venue)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "venue:"+venue.ID.String(), data, ttl).Err()
}

// VenueSource is whatever authoritative registry backs the cache.
type VenueSource interface {
	Venue(ctx context.Context, id uuid.UUID) (*domain.Venue, error)
}

// CachedVenueRegistry fronts the registry on the verify path, where venue
// reads dominate. Cache errors fall through to the source.
type CachedVenueRegistry struct {
	cache  *Cache
	source VenueSource
	ttl    time.Duration
}

func NewCachedVenueRegistry(cache *Cache, source VenueSource, ttl time.Duration) *CachedVenueRegistry {
	return &CachedVenueRegistry{cache: cache, source: source, ttl: ttl}
}

func (r *CachedVenueRegistry) Venue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	if cached, err := r.cache.GetVenue(ctx, id); err == nil && cached != nil {
		return cached, nil
	}
	venue, err := r.source.Venue(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetVenue(ctx, *venue, r.ttl)
	return venue, nil
}
