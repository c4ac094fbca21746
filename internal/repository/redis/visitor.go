package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	visitorKeyPrefix = "cart:visitor:"
	stateKeyPrefix   = "oauth:state:"
)

// VisitorRepository implements repository.VisitorCartRepository.
type VisitorRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewVisitorRepository creates a Redis-backed visitor binding store.
func NewVisitorRepository(client redis.UniversalClient, ttl time.Duration) *VisitorRepository {
	return &VisitorRepository{client: client, ttl: ttl}
}

// Get returns the cart id bound to the visitor, or "".
func (r *VisitorRepository) Get(ctx context.Context, visitorID string) (string, error) {
	id, err := r.client.Get(ctx, visitorKeyPrefix+visitorID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get visitor cart: %w", err)
	}
	return id, nil
}

// Bind records the visitor's cart id.
func (r *VisitorRepository) Bind(ctx context.Context, visitorID, cartID string) error {
	if err := r.client.Set(ctx, visitorKeyPrefix+visitorID, cartID, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis bind visitor cart: %w", err)
	}
	return nil
}

// Unbind forgets the visitor's cart id.
func (r *VisitorRepository) Unbind(ctx context.Context, visitorID string) error {
	if err := r.client.Del(ctx, visitorKeyPrefix+visitorID).Err(); err != nil {
		return fmt.Errorf("redis unbind visitor cart: %w", err)
	}
	return nil
}

// StateStore implements repository.StateStore.
type StateStore struct {
	client redis.UniversalClient
}

// NewStateStore creates a Redis-backed OAuth nonce store.
func NewStateStore(client redis.UniversalClient) *StateStore {
	return &StateStore{client: client}
}

// Consume marks the nonce as used; a second call within ttl returns false.
func (s *StateStore) Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, stateKeyPrefix+nonce, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis consume oauth state: %w", err)
	}
	return ok, nil
}
