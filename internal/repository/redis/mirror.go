package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/calm-headless/internal/domain"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

const mirrorKeyPrefix = "cart:mirror:"

// MirrorRepository implements repository.CartMirrorRepository using Redis.
type MirrorRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewMirrorRepository creates a Redis-backed cart mirror repository. Mirrors
// expire ttl after their last save.
func NewMirrorRepository(client redis.UniversalClient, ttl time.Duration) *MirrorRepository {
	return &MirrorRepository{client: client, ttl: ttl}
}

// Get retrieves the mirror of a cart.
func (r *MirrorRepository) Get(ctx context.Context, cartID string) (*domain.CartMirror, error) {
	data, err := r.client.Get(ctx, mirrorKeyPrefix+cartID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart mirror", cartID)
		}
		return nil, fmt.Errorf("redis get cart mirror: %w", err)
	}

	var m domain.CartMirror
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal cart mirror: %w", err)
	}
	return &m, nil
}

// Save persists the mirror with the configured TTL.
func (r *MirrorRepository) Save(ctx context.Context, m *domain.CartMirror) error {
	if m.CartID == "" {
		return apperrors.InvalidInput("cart mirror has no cart id")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal cart mirror: %w", err)
	}
	if err := r.client.Set(ctx, mirrorKeyPrefix+m.CartID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart mirror: %w", err)
	}
	return nil
}

// Delete removes the mirror of a cart.
func (r *MirrorRepository) Delete(ctx context.Context, cartID string) error {
	if err := r.client.Del(ctx, mirrorKeyPrefix+cartID).Err(); err != nil {
		return fmt.Errorf("redis del cart mirror: %w", err)
	}
	return nil
}
