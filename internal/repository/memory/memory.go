// Package memory holds in-process implementations of the repository
// interfaces. They back single-instance deployments and the service tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/utafrali/calm-headless/internal/domain"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
)

// MirrorRepository keeps cart mirrors in a map. Values are stored as JSON so
// callers never share memory with the store.
type MirrorRepository struct {
	mu      sync.RWMutex
	mirrors map[string][]byte
}

// NewMirrorRepository creates an empty mirror store.
func NewMirrorRepository() *MirrorRepository {
	return &MirrorRepository{mirrors: make(map[string][]byte)}
}

func (r *MirrorRepository) Get(_ context.Context, cartID string) (*domain.CartMirror, error) {
	r.mu.RLock()
	data, ok := r.mirrors[cartID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("cart mirror", cartID)
	}
	var m domain.CartMirror
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal cart mirror: %w", err)
	}
	return &m, nil
}

func (r *MirrorRepository) Save(_ context.Context, m *domain.CartMirror) error {
	if m.CartID == "" {
		return apperrors.InvalidInput("cart mirror has no cart id")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal cart mirror: %w", err)
	}
	r.mu.Lock()
	r.mirrors[m.CartID] = data
	r.mu.Unlock()
	return nil
}

func (r *MirrorRepository) Delete(_ context.Context, cartID string) error {
	r.mu.Lock()
	delete(r.mirrors, cartID)
	r.mu.Unlock()
	return nil
}

// Locker hands out one buffered channel per key; holding the lock means
// holding the channel's only slot. A slot lives while anyone holds or waits
// for it.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
	wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocker creates a process-local locker that gives up after wait.
func NewLocker(wait time.Duration) *Locker {
	return &Locker{slots: make(map[string]*lockSlot), wait: wait}
}

func (l *Locker) acquire(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locker) release(key string, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquire(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	case <-timer.C:
		l.release(key, s)
		return nil, apperrors.Conflict("another request is updating this cart")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

// VisitorRepository maps visitor ids to cart ids.
type VisitorRepository struct {
	mu    sync.RWMutex
	carts map[string]string
}

// NewVisitorRepository creates an empty visitor binding store.
func NewVisitorRepository() *VisitorRepository {
	return &VisitorRepository{carts: make(map[string]string)}
}

func (r *VisitorRepository) Get(_ context.Context, visitorID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.carts[visitorID], nil
}

func (r *VisitorRepository) Bind(_ context.Context, visitorID, cartID string) error {
	r.mu.Lock()
	r.carts[visitorID] = cartID
	r.mu.Unlock()
	return nil
}

func (r *VisitorRepository) Unbind(_ context.Context, visitorID string) error {
	r.mu.Lock()
	delete(r.carts, visitorID)
	r.mu.Unlock()
	return nil
}

// StateStore remembers consumed nonces until they expire.
type StateStore struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// NewStateStore creates an empty nonce store.
func NewStateStore() *StateStore {
	return &StateStore{used: make(map[string]time.Time), now: time.Now}
}

func (s *StateStore) Consume(_ context.Context, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for n, exp := range s.used {
		if now.After(exp) {
			delete(s.used, n)
		}
	}
	if _, ok := s.used[nonce]; ok {
		return false, nil
	}
	s.used[nonce] = now.Add(ttl)
	return true, nil
}
