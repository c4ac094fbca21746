package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/event"
	"github.com/utafrali/calm-headless/internal/repository"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

// ErrNoCart is returned by operations that need a cart when the session has
// none.
var ErrNoCart = &apperrors.AppError{
	Code:    "NO_CART",
	Message: "no cart exists for this session",
	Status:  http.StatusNotFound,
	Err:     apperrors.ErrNotFound,
}

// CartIdentity is the per-request view of the visitor's cart cookie.
type CartIdentity interface {
	CartID() string
	SetCartID(id string)
	ClearCartID()
	VisitorID() string
}

// CartAPI is the remote cart surface of the storefront.
type CartAPI interface {
	Cart(ctx context.Context, cartID string) (*domain.Cart, error)
	CartCreate(ctx context.Context, lines []domain.LineInput) (*domain.Cart, error)
	CartLinesAdd(ctx context.Context, cartID string, lines []domain.LineInput) (*domain.Cart, error)
	CartLinesUpdate(ctx context.Context, cartID string, lines []domain.LineUpdate) (*domain.Cart, error)
	CartLinesRemove(ctx context.Context, cartID string, lineIDs []string) (*domain.Cart, error)
}

// CartService keeps one mirror per remote cart and serializes every change
// to a cart through a per-cart lock.
type CartService struct {
	api      CartAPI
	mirrors  repository.CartMirrorRepository
	locker   repository.CartLocker
	visitors repository.VisitorCartRepository
	events   event.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	api CartAPI,
	mirrors repository.CartMirrorRepository,
	locker repository.CartLocker,
	visitors repository.VisitorCartRepository,
	events event.Publisher,
	logger *slog.Logger,
) *CartService {
	if events == nil {
		events = event.NopPublisher{}
	}
	return &CartService{
		api:      api,
		mirrors:  mirrors,
		locker:   locker,
		visitors: visitors,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

func cartLockKey(cartID string) string       { return "cart:" + cartID }
func visitorLockKey(visitorID string) string { return "visitor:" + visitorID }

// AddToCart adds quantity of a variant to the session cart, creating the
// cart when the session has none. The drawer is opened on success.
func (s *CartService) AddToCart(ctx context.Context, id CartIdentity, variantID string, quantity int) (domain.CartView, error) {
	if variantID == "" {
		return domain.CartView{}, apperrors.InvalidInput("variant id is required")
	}
	if quantity < 1 {
		return domain.CartView{}, apperrors.InvalidInput("quantity must be at least 1")
	}
	lines := []domain.LineInput{{MerchandiseID: variantID, Quantity: quantity}}

	// A cart that expired remotely is forgotten and replaced once.
	for attempt := 0; attempt < 2; attempt++ {
		if id.CartID() == "" {
			view, adopted, err := s.createOrAdopt(ctx, id, lines)
			if err != nil || !adopted {
				return view, err
			}
		}

		m, err := s.mutate(ctx, id, true, func(cartID string) (*domain.Cart, error) {
			return s.api.CartLinesAdd(ctx, cartID, lines)
		})
		if errors.Is(err, apperrors.ErrNotFound) && id.CartID() == "" {
			continue
		}
		return s.updated(ctx, m, err)
	}
	return domain.CartView{}, ErrNoCart
}

// createOrAdopt creates a cart holding lines for a session without one. When
// another request of the same visitor created a cart first, that cart is
// adopted instead and adopted is true; the caller still has to add lines.
func (s *CartService) createOrAdopt(ctx context.Context, id CartIdentity, lines []domain.LineInput) (view domain.CartView, adopted bool, err error) {
	visitorID := id.VisitorID()
	unlock, err := s.locker.Lock(ctx, visitorLockKey(visitorID))
	if err != nil {
		return domain.CartView{}, false, err
	}
	defer unlock()

	bound, err := s.visitors.Get(ctx, visitorID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read visitor cart binding",
			slog.String("visitor_id", visitorID),
			slog.String("error", err.Error()),
		)
	}
	if bound != "" {
		s.logger.InfoContext(ctx, "adopting cart created by a concurrent request",
			slog.String("cart_id", bound),
			slog.String("visitor_id", visitorID),
		)
		id.SetCartID(bound)
		return domain.CartView{}, true, nil
	}

	m, err := s.create(ctx, lines, true)
	if err != nil {
		return domain.CartView{}, false, err
	}
	s.bind(ctx, id, visitorID, m.CartID)
	return domain.NewCartView(m), false, nil
}

// CreateCart creates a cart for the session and persists its id, replacing
// any cart the session held.
func (s *CartService) CreateCart(ctx context.Context, id CartIdentity, lines []domain.LineInput) (domain.CartView, error) {
	visitorID := id.VisitorID()
	unlock, err := s.locker.Lock(ctx, visitorLockKey(visitorID))
	if err != nil {
		return domain.CartView{}, err
	}
	defer unlock()

	m, err := s.create(ctx, lines, false)
	if err != nil {
		return domain.CartView{}, err
	}
	s.bind(ctx, id, visitorID, m.CartID)
	return domain.NewCartView(m), nil
}

// Create creates a remote cart without touching any session.
func (s *CartService) Create(ctx context.Context, lines []domain.LineInput) (*domain.Cart, error) {
	m, err := s.create(ctx, lines, false)
	if err != nil {
		return nil, err
	}
	return m.Cart, nil
}

func (s *CartService) create(ctx context.Context, lines []domain.LineInput, open bool) (*domain.CartMirror, error) {
	cart, err := s.api.CartCreate(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	m := s.store(ctx, nil, cart, open)
	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
		slog.Int("lines", len(cart.Lines)),
	)
	s.publish(ctx, event.TypeCartCreated, cart, m.Version)
	return m, nil
}

func (s *CartService) bind(ctx context.Context, id CartIdentity, visitorID, cartID string) {
	id.SetCartID(cartID)
	if err := s.visitors.Bind(ctx, visitorID, cartID); err != nil {
		s.logger.WarnContext(ctx, "failed to bind cart to visitor",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
}

// UpdateCartItem sets the quantity of one line. Quantities below 1 are
// rejected before any remote call.
func (s *CartService) UpdateCartItem(ctx context.Context, id CartIdentity, lineID string, quantity int) (domain.CartView, error) {
	if lineID == "" {
		return domain.CartView{}, apperrors.InvalidInput("line id is required")
	}
	if quantity < 1 {
		return domain.CartView{}, apperrors.InvalidInput("quantity must be at least 1")
	}
	m, err := s.mutate(ctx, id, false, func(cartID string) (*domain.Cart, error) {
		return s.api.CartLinesUpdate(ctx, cartID, []domain.LineUpdate{{ID: lineID, Quantity: quantity}})
	})
	return s.updated(ctx, m, err)
}

// RemoveFromCart removes one line.
func (s *CartService) RemoveFromCart(ctx context.Context, id CartIdentity, lineID string) (domain.CartView, error) {
	if lineID == "" {
		return domain.CartView{}, apperrors.InvalidInput("line id is required")
	}
	m, err := s.mutate(ctx, id, false, func(cartID string) (*domain.Cart, error) {
		return s.api.CartLinesRemove(ctx, cartID, []string{lineID})
	})
	return s.updated(ctx, m, err)
}

// ClearCart removes every line of the session cart. A session without a
// cart, or an empty cart, is left as is.
func (s *CartService) ClearCart(ctx context.Context, id CartIdentity) (domain.CartView, error) {
	if id.CartID() == "" {
		return domain.CartView{Empty: true}, nil
	}

	var wasEmpty bool
	m, err := s.mutate(ctx, id, false, func(cartID string) (*domain.Cart, error) {
		cart, err := s.current(ctx, cartID)
		if err != nil {
			return nil, err
		}
		lineIDs := cart.LineIDs()
		if len(lineIDs) == 0 {
			wasEmpty = true
			return cart, nil
		}
		return s.api.CartLinesRemove(ctx, cartID, lineIDs)
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.CartView{Empty: true}, nil
	}
	if err != nil {
		return domain.CartView{}, err
	}
	if !wasEmpty {
		s.logger.InfoContext(ctx, "cart cleared", slog.String("cart_id", m.CartID))
		s.publish(ctx, event.TypeCartCleared, m.Cart, m.Version)
	}
	return domain.NewCartView(m), nil
}

// current returns the mirrored cart, fetching it when no mirror is held.
func (s *CartService) current(ctx context.Context, cartID string) (*domain.Cart, error) {
	if m := s.loadMirror(ctx, cartID); m != nil {
		return m.Cart, nil
	}
	return s.api.Cart(ctx, cartID)
}

// FetchCart refreshes the session cart from the remote API. A cart the
// remote no longer knows is forgotten and the empty view returned; any
// other failure also forgets the cart and is returned.
func (s *CartService) FetchCart(ctx context.Context, id CartIdentity) (domain.CartView, error) {
	cartID := id.CartID()
	if cartID == "" {
		return domain.CartView{Empty: true}, nil
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(cartID))
	if err != nil {
		return domain.CartView{}, err
	}
	defer unlock()

	prev := s.loadMirror(ctx, cartID)
	cart, err := s.api.Cart(ctx, cartID)
	if err != nil {
		s.forget(ctx, id, cartID)
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "persisted cart no longer exists", slog.String("cart_id", cartID))
			return domain.CartView{Empty: true}, nil
		}
		return domain.CartView{Empty: true}, fmt.Errorf("fetch cart: %w", err)
	}

	m := s.store(ctx, prev, cart, prev != nil && prev.Open)
	return domain.NewCartView(m), nil
}

// SetOpen sets the drawer flag of the session cart. Without a cart the flag
// is echoed back and nothing is stored.
func (s *CartService) SetOpen(ctx context.Context, id CartIdentity, open bool) (domain.CartView, error) {
	return s.setOpen(ctx, id, func(bool) bool { return open })
}

// ToggleOpen flips the drawer flag of the session cart.
func (s *CartService) ToggleOpen(ctx context.Context, id CartIdentity) (domain.CartView, error) {
	return s.setOpen(ctx, id, func(open bool) bool { return !open })
}

func (s *CartService) setOpen(ctx context.Context, id CartIdentity, next func(bool) bool) (domain.CartView, error) {
	cartID := id.CartID()
	if cartID == "" {
		return domain.CartView{Empty: true, Open: next(false)}, nil
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(cartID))
	if err != nil {
		return domain.CartView{}, err
	}
	defer unlock()

	prev := s.loadMirror(ctx, cartID)
	var cart *domain.Cart
	if prev != nil {
		cart = prev.Cart
	} else {
		cart, err = s.api.Cart(ctx, cartID)
		if errors.Is(err, apperrors.ErrNotFound) {
			s.forget(ctx, id, cartID)
			return domain.CartView{Empty: true, Open: next(false)}, nil
		}
		if err != nil {
			return domain.CartView{}, fmt.Errorf("fetch cart: %w", err)
		}
	}

	m := s.store(ctx, prev, cart, next(prev != nil && prev.Open))
	return domain.NewCartView(m), nil
}

// mutate runs fn under the lock of the session cart and replaces the mirror
// with its result. A cart the remote reports missing is forgotten.
func (s *CartService) mutate(ctx context.Context, id CartIdentity, open bool, fn func(cartID string) (*domain.Cart, error)) (*domain.CartMirror, error) {
	cartID := id.CartID()
	if cartID == "" {
		return nil, ErrNoCart
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(cartID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	prev := s.loadMirror(ctx, cartID)
	cart, err := fn(cartID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.forget(ctx, id, cartID)
		}
		return nil, err
	}
	return s.store(ctx, prev, cart, open || (prev != nil && prev.Open)), nil
}

// updated publishes cart.updated for a successful mutation and renders it.
func (s *CartService) updated(ctx context.Context, m *domain.CartMirror, err error) (domain.CartView, error) {
	if err != nil {
		return domain.CartView{}, err
	}
	s.publish(ctx, event.TypeCartUpdated, m.Cart, m.Version)
	return domain.NewCartView(m), nil
}

// Get fetches a cart by id, refreshing its mirror when one is held.
func (s *CartService) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.raw(ctx, cartID, "", func() (*domain.Cart, error) {
		return s.api.Cart(ctx, cartID)
	})
}

// AddLines adds lines to a cart by id.
func (s *CartService) AddLines(ctx context.Context, cartID string, lines []domain.LineInput) (*domain.Cart, error) {
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("at least one line is required")
	}
	return s.raw(ctx, cartID, event.TypeCartUpdated, func() (*domain.Cart, error) {
		return s.api.CartLinesAdd(ctx, cartID, lines)
	})
}

// UpdateLines sets line quantities of a cart by id.
func (s *CartService) UpdateLines(ctx context.Context, cartID string, lines []domain.LineUpdate) (*domain.Cart, error) {
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("at least one line is required")
	}
	return s.raw(ctx, cartID, event.TypeCartUpdated, func() (*domain.Cart, error) {
		return s.api.CartLinesUpdate(ctx, cartID, lines)
	})
}

// RemoveLines removes lines from a cart by id.
func (s *CartService) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (*domain.Cart, error) {
	if len(lineIDs) == 0 {
		return nil, apperrors.InvalidInput("at least one line id is required")
	}
	return s.raw(ctx, cartID, event.TypeCartUpdated, func() (*domain.Cart, error) {
		return s.api.CartLinesRemove(ctx, cartID, lineIDs)
	})
}

// raw runs a call addressed by cart id rather than by session. Only an
// existing mirror is refreshed; eventType "" publishes nothing.
func (s *CartService) raw(ctx context.Context, cartID, eventType string, fn func() (*domain.Cart, error)) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(cartID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := fn()
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.deleteMirror(ctx, cartID)
		}
		return nil, err
	}

	version := 0
	if prev := s.loadMirror(ctx, cartID); prev != nil {
		version = s.store(ctx, prev, cart, prev.Open).Version
	}
	if eventType != "" {
		s.publish(ctx, eventType, cart, version)
	}
	return cart, nil
}

// loadMirror returns the held mirror of cartID, or nil. A mirror that does
// not belong to cartID is dropped. Store failures degrade to a miss.
func (s *CartService) loadMirror(ctx context.Context, cartID string) *domain.CartMirror {
	m, err := s.mirrors.Get(ctx, cartID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to load cart mirror",
				slog.String("cart_id", cartID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	if !m.Matches(cartID) {
		s.deleteMirror(ctx, cartID)
		return nil
	}
	return m
}

// store replaces the mirror of cart.ID, one version after prev.
func (s *CartService) store(ctx context.Context, prev *domain.CartMirror, cart *domain.Cart, open bool) *domain.CartMirror {
	m := &domain.CartMirror{
		CartID:    cart.ID,
		Cart:      cart,
		Open:      open,
		Version:   1,
		UpdatedAt: s.now().UTC(),
	}
	if prev != nil && prev.CartID == cart.ID {
		m.Version = prev.Version + 1
	}
	if err := s.mirrors.Save(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "failed to save cart mirror",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
	return m
}

func (s *CartService) deleteMirror(ctx context.Context, cartID string) {
	if err := s.mirrors.Delete(ctx, cartID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete cart mirror",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
}

// forget drops every trace of cartID from the session.
func (s *CartService) forget(ctx context.Context, id CartIdentity, cartID string) {
	id.ClearCartID()
	s.deleteMirror(ctx, cartID)

	visitorID := id.VisitorID()
	bound, err := s.visitors.Get(ctx, visitorID)
	if err == nil && bound == cartID {
		err = s.visitors.Unbind(ctx, visitorID)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to unbind visitor cart",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) publish(ctx context.Context, eventType string, cart *domain.Cart, version int) {
	var err error
	switch eventType {
	case event.TypeCartCreated:
		err = s.events.PublishCartCreated(ctx, cart, version)
	case event.TypeCartCleared:
		err = s.events.PublishCartCleared(ctx, cart.ID, version)
	default:
		err = s.events.PublishCartUpdated(ctx, cart, version)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart event",
			slog.String("event_type", eventType),
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}
