package repository

import (
	"RNChatMedia/internal/adapter"
)

type Repository struct {
	RateLimit *RateLimitRepository
}

// NewRepository returns nil when Redis is not configured; nothing else in
// the service keeps state outside the storage root.
func NewRepository(redisAdapter *adapter.RedisAdapter) *Repository {
	if redisAdapter == nil {
		return nil
	}
	return &Repository{
		RateLimit: NewRateLimitRepository(redisAdapter),
	}
}
