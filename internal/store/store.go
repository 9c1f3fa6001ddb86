// Package store holds the in-memory cart state for every active session and
// serializes mutations against the persistence backend. Each user gets an
// independent serialization domain, so one user's slow update never blocks
// another's.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/internal/gateway"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
)

// ErrCartBusy is returned when an add is attempted while another mutation on
// the same cart is still in flight. Callers should retry after the current
// operation settles.
var ErrCartBusy = apperrors.Conflict("cart update already in progress")

// AddStatus reports the outcome of an AddItem call.
type AddStatus int

const (
	// StatusAdded means a new line was created.
	StatusAdded AddStatus = iota

	// StatusAlreadyInCart means the product was already present. The cart
	// is unchanged; the caller decides how to surface this.
	StatusAlreadyInCart
)

// AddResult carries the add outcome together with the refreshed cart.
type AddResult struct {
	Status AddStatus
	Cart   *domain.Cart
}

// EventSink receives cart change notifications. Publishing is best effort;
// implementations must not block mutations on delivery.
type EventSink interface {
	CartUpdated(ctx context.Context, cart *domain.Cart)
	CartCleared(ctx context.Context, userID string)
}

// noopSink discards all events.
type noopSink struct{}

func (noopSink) CartUpdated(context.Context, *domain.Cart) {}
func (noopSink) CartCleared(context.Context, string)       {}

// cartState is one user's serialization domain.
type cartState struct {
	// op serializes mutations. AddItem uses TryLock so a second add is
	// rejected instead of queued; other mutations wait their turn.
	op sync.Mutex

	// mu guards the snapshot.
	mu   sync.RWMutex
	cart *domain.Cart
}

func (s *cartState) snapshot() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

func (s *cartState) setSnapshot(c *domain.Cart) {
	s.mu.Lock()
	s.cart = c
	s.mu.Unlock()
}

// Store manages cart state for all active sessions.
type Store struct {
	gw        gateway.CartGateway
	events    EventSink
	logger    *slog.Logger
	opTimeout time.Duration

	mu    sync.Mutex
	carts map[string]*cartState
}

// Option configures a Store.
type Option func(*Store)

// WithEventSink sets the sink notified after successful mutations.
func WithEventSink(sink EventSink) Option {
	return func(s *Store) { s.events = sink }
}

// WithOperationTimeout bounds each backend round trip. The timeout keeps a
// hung gateway call from wedging the per-cart mutation lock forever.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Store) { s.opTimeout = d }
}

// New creates a cart store backed by the given gateway.
func New(gw gateway.CartGateway, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		gw:        gw,
		events:    noopSink{},
		logger:    logger,
		opTimeout: 10 * time.Second,
		carts:     make(map[string]*cartState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) state(userID string) *cartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.carts[userID]
	if !ok {
		st = &cartState{}
		s.carts[userID] = st
	}
	return st
}

// Get returns the user's current cart snapshot, loading it from the backend
// on first access.
func (s *Store) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	st := s.state(userID)
	if c := st.snapshot(); c != nil {
		return c, nil
	}

	st.op.Lock()
	defer st.op.Unlock()

	if c := st.snapshot(); c != nil {
		return c, nil
	}
	return s.reloadLocked(ctx, st, userID)
}

// Reload fetches the cart wholesale from the backend and replaces the
// snapshot. It waits for any in-flight mutation to finish first.
func (s *Store) Reload(ctx context.Context, userID string) (*domain.Cart, error) {
	st := s.state(userID)
	st.op.Lock()
	defer st.op.Unlock()
	return s.reloadLocked(ctx, st, userID)
}

// reloadLocked performs the get-or-create fetch. Callers hold st.op.
func (s *Store) reloadLocked(ctx context.Context, st *cartState, userID string) (*domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	cart, err := s.gw.GetCartByUser(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		cart, err = s.gw.CreateCart(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load cart for user %s: %w", userID, err)
	}

	items, err := s.gw.ListLineItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart items for user %s: %w", userID, err)
	}
	cart.Items = items

	st.setSnapshot(cart)
	return cart, nil
}

// AddItem adds a product to the cart. If another mutation is already in
// flight the call is rejected immediately with ErrCartBusy rather than
// queued. Adding a product already in the cart leaves the cart untouched
// and reports StatusAlreadyInCart.
func (s *Store) AddItem(ctx context.Context, userID, productID string, quantity int) (AddResult, error) {
	if quantity < 1 {
		return AddResult{}, apperrors.InvalidInput("quantity must be at least 1")
	}

	st := s.state(userID)
	if !st.op.TryLock() {
		return AddResult{}, ErrCartBusy
	}
	defer st.op.Unlock()

	cart, err := s.currentLocked(ctx, st, userID)
	if err != nil {
		return AddResult{}, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	_, err = s.gw.InsertLineItem(opCtx, cart.ID, productID, quantity)
	cancel()

	if errors.Is(err, apperrors.ErrAlreadyExists) {
		return AddResult{Status: StatusAlreadyInCart, Cart: cart}, nil
	}
	if err != nil {
		return AddResult{}, fmt.Errorf("add item to cart: %w", err)
	}

	cart, err = s.reloadLocked(ctx, st, userID)
	if err != nil {
		return AddResult{}, err
	}

	s.events.CartUpdated(ctx, cart)
	return AddResult{Status: StatusAdded, Cart: cart}, nil
}

// RemoveItem deletes a line from the cart. Removing a line that is already
// gone is a successful no-op, so retries are safe.
func (s *Store) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	st := s.state(userID)
	st.op.Lock()
	defer st.op.Unlock()

	if _, err := s.currentLocked(ctx, st, userID); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err := s.gw.DeleteLineItem(opCtx, itemID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("remove item from cart: %w", err)
	}

	cart, err := s.reloadLocked(ctx, st, userID)
	if err != nil {
		return nil, err
	}

	s.events.CartUpdated(ctx, cart)
	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1
// are rejected; removal is a separate operation.
func (s *Store) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	st := s.state(userID)
	st.op.Lock()
	defer st.op.Unlock()

	if _, err := s.currentLocked(ctx, st, userID); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err := s.gw.UpdateLineItemQuantity(opCtx, itemID, quantity)
	cancel()
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart item", itemID)
		}
		return nil, fmt.Errorf("update item quantity: %w", err)
	}

	cart, err := s.reloadLocked(ctx, st, userID)
	if err != nil {
		return nil, err
	}

	s.events.CartUpdated(ctx, cart)
	return cart, nil
}

// Clear removes every line from the cart. Clearing an already empty cart is
// a no-op and publishes nothing.
func (s *Store) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	st := s.state(userID)
	st.op.Lock()
	defer st.op.Unlock()

	cart, err := s.currentLocked(ctx, st, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return cart, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err = s.gw.DeleteAllLineItems(opCtx, cart.ID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	cart, err = s.reloadLocked(ctx, st, userID)
	if err != nil {
		return nil, err
	}

	s.events.CartCleared(ctx, userID)
	return cart, nil
}

// Evict drops the user's in-memory cart state on sign-out. The persisted
// cart is untouched and no backend calls are made.
func (s *Store) Evict(userID string) {
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()

	s.logger.Debug("cart state evicted", slog.String("user_id", userID))
}

// ActiveSessions returns the number of users with cart state in memory.
func (s *Store) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// currentLocked returns the cached snapshot, loading it if absent. Callers
// hold st.op.
func (s *Store) currentLocked(ctx context.Context, st *cartState, userID string) (*domain.Cart, error) {
	if c := st.snapshot(); c != nil {
		return c, nil
	}
	return s.reloadLocked(ctx, st, userID)
}
