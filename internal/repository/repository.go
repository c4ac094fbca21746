package repository

import (
	"context"
	"time"

	"github.com/utafrali/calm-headless/internal/domain"
)

// CartMirrorRepository persists the server-held copy of each cart, keyed by
// the remote cart id.
type CartMirrorRepository interface {
	// Get returns the mirror for cartID, or a not-found error.
	Get(ctx context.Context, cartID string) (*domain.CartMirror, error)

	// Save overwrites the mirror for m.CartID.
	Save(ctx context.Context, m *domain.CartMirror) error

	// Delete removes the mirror. Deleting a missing mirror is not an error.
	Delete(ctx context.Context, cartID string) error
}

// CartLocker serializes mutations on one key across goroutines and, for the
// Redis implementation, across processes.
type CartLocker interface {
	// Lock blocks until the lock for key is held or the wait expires. The
	// returned func releases it; calling it again is a no-op.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// VisitorCartRepository binds an anonymous visitor to the cart created for
// it, so concurrent first adds from two tabs share one cart.
type VisitorCartRepository interface {
	// Get returns the bound cart id, or "" when the visitor has none.
	Get(ctx context.Context, visitorID string) (string, error)

	// Bind records cartID for the visitor.
	Bind(ctx context.Context, visitorID, cartID string) error

	// Unbind forgets the visitor's cart.
	Unbind(ctx context.Context, visitorID string) error
}

// StateStore records OAuth state nonces that have been consumed.
type StateStore interface {
	// Consume marks nonce as used. It returns false when the nonce was
	// already consumed within ttl.
	Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}
