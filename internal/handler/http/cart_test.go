package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tausif706/FreshMart/internal/checkout"
	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/internal/session"
	"github.com/Tausif706/FreshMart/internal/store"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
	"github.com/Tausif706/FreshMart/pkg/health"
	"github.com/Tausif706/FreshMart/pkg/middleware"
)

const (
	productApples = "5f2b1c1e-9a54-4a0b-8f51-92f1a91e1a01"
	productMilk   = "0c0a3d8e-7a2f-4f7e-b7de-5bb0a3f1c222"
)

// memGateway is an in-memory cart backend for handler tests.
type memGateway struct {
	mu     sync.Mutex
	carts  map[string]*domain.Cart
	nextID int
}

func newMemGateway() *memGateway {
	return &memGateway{carts: map[string]*domain.Cart{}}
}

func (m *memGateway) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memGateway) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &domain.Cart{ID: c.ID, UserID: c.UserID}, nil
}

func (m *memGateway) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &domain.Cart{ID: m.id("cart"), UserID: userID, CreatedAt: time.Now()}
	m.carts[userID] = c
	return &domain.Cart{ID: c.ID, UserID: userID}, nil
}

func (m *memGateway) find(cartID string) *domain.Cart {
	for _, c := range m.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (m *memGateway) ListLineItems(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(cartID)
	if c == nil {
		return nil, apperrors.ErrNotFound
	}
	out := make([]domain.LineItem, len(c.Items))
	copy(out, c.Items)
	return out, nil
}

func (m *memGateway) GetLineItemByProduct(ctx context.Context, cartID, productID string) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(cartID)
	if c != nil {
		for _, li := range c.Items {
			if li.ProductID == productID {
				return &li, nil
			}
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memGateway) InsertLineItem(ctx context.Context, cartID, productID string, quantity int) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(cartID)
	if c == nil {
		return nil, apperrors.ErrNotFound
	}
	for _, li := range c.Items {
		if li.ProductID == productID {
			return nil, apperrors.ErrAlreadyExists
		}
	}
	li := domain.LineItem{
		ID:        m.id("li"),
		ProductID: productID,
		Quantity:  quantity,
		Product:   domain.ProductSnapshot{Name: "Groceries", Price: 2500},
	}
	c.Items = append(c.Items, li)
	return &li, nil
}

func (m *memGateway) UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].Quantity = quantity
				return nil
			}
		}
	}
	return apperrors.ErrNotFound
}

func (m *memGateway) DeleteLineItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *memGateway) DeleteAllLineItems(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.find(cartID); c != nil {
		c.Items = nil
	}
	return nil
}

type memUsers struct{ address string }

func (m *memUsers) GetUserAddress(ctx context.Context, userID string) (string, error) {
	return m.address, nil
}

type memOrders struct {
	mu     sync.Mutex
	orders []*domain.Order
}

func (m *memOrders) CreateOrder(ctx context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

func (m *memOrders) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	return []string{"admin-1"}, nil
}

// staticVerifier accepts one token.
type staticVerifier struct{ identity session.Identity }

func (s *staticVerifier) Verify(ctx context.Context, token string) (*session.Identity, error) {
	if token != "good-token" {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}
	id := s.identity
	return &id, nil
}

type testEnv struct {
	router http.Handler
	gw     *memGateway
	orders *memOrders
	users  *memUsers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	gw := newMemGateway()
	carts := store.New(gw, logger)
	users := &memUsers{address: "1 Main St"}
	orders := &memOrders{}
	svc := checkout.NewService(carts, users, orders, logger)

	observer := session.NewObserver()
	verifier := &staticVerifier{identity: session.Identity{UserID: "user-1", Email: "a@example.com", Role: "customer"}}

	router := NewRouter(RouterConfig{
		Carts:       carts,
		Checkout:    svc,
		Health:      health.NewHandler(),
		Validate:    NewTokenValidator(verifier, observer),
		CORS:        middleware.DefaultCORSConfig(),
		Logger:      logger,
		ServiceName: "cart",
	})

	return &testEnv{router: router, gw: gw, orders: orders, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestGetCart_AnonymousGetsInertEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Empty(t, data["items"])
	totals := data["totals"].(map[string]any)
	assert.EqualValues(t, 0, totals["subtotal"])
	assert.EqualValues(t, 0, totals["shipping"])
}

func TestMutationsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart", "", "bad-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItem_FirstAddCreatesLine(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`","quantity":2}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "added", data["status"])
	cart := data["cart"].(map[string]any)
	items := cart["items"].([]any)
	require.Len(t, items, 1)
}

func TestAddItem_DuplicateReportsAlreadyInCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "good-token")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "already_in_cart", data["status"])
	cart := data["cart"].(map[string]any)
	items := cart["items"].([]any)
	require.Len(t, items, 1, "duplicate add must never create a second line")
	line := items[0].(map[string]any)
	assert.EqualValues(t, 1, line["quantity"], "duplicate add must not increment")
}

func TestAddItem_RejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"product_id":"not-a-uuid"}`, "good-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestUpdateAndRemoveItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData(t, rec)
	cart := data["cart"].(map[string]any)
	itemID := cart["items"].([]any)[0].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodPut, "/api/v1/cart/items/"+itemID, `{"quantity":5}`, "good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	line := data["items"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 5, line["quantity"])

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/"+itemID, "", "good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	assert.Empty(t, data["items"])

	// Deleting again is still a success.
	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/"+itemID, "", "good-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCart_PromoQueryPricesTotals(t *testing.T) {
	env := newTestEnv(t)

	// Four units at 2500 = 10000 subtotal, free shipping.
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`","quantity":4}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/cart?promo=FRESH10", "", "good-token")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	totals := data["totals"].(map[string]any)
	assert.EqualValues(t, 10000, totals["subtotal"])
	assert.EqualValues(t, 0, totals["shipping"])
	assert.EqualValues(t, 1000, totals["discount"])
	assert.EqualValues(t, 9000, totals["total"])
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart", "", "good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Empty(t, data["items"])
}

func TestCheckout_PlacesOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`","quantity":4}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", `{"promo_code":"FRESH10"}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "pending", data["approval_status"])
	assert.EqualValues(t, 9000, data["total"])

	require.Len(t, env.orders.orders, 1)

	// Cart is empty afterwards.
	rec = env.do(t, http.MethodGet, "/api/v1/cart", "", "good-token")
	data = decodeData(t, rec)
	assert.Empty(t, data["items"])
}

func TestCheckout_MissingAddressIs422(t *testing.T) {
	env := newTestEnv(t)
	env.users.address = ""

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/checkout", "", "good-token")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "ADDRESS_REQUIRED")
}

func TestCheckout_EmptyCartIs400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", "", "good-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiterRunsAfterAuth(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	gw := newMemGateway()
	carts := store.New(gw, logger)
	svc := checkout.NewService(carts, &memUsers{address: "1 Main St"}, &memOrders{}, logger)

	var mu sync.Mutex
	var subjects []string
	recording := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			subjects = append(subjects, middleware.UserIDFromContext(r.Context()))
			mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}

	verifier := &staticVerifier{identity: session.Identity{UserID: "user-42", Role: "customer"}}
	router := NewRouter(RouterConfig{
		Carts:       carts,
		Checkout:    svc,
		Health:      health.NewHandler(),
		Validate:    NewTokenValidator(verifier, session.NewObserver()),
		RateLimiter: recording,
		CORS:        middleware.DefaultCORSConfig(),
		Logger:      logger,
		ServiceName: "cart",
	})

	send := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// Authenticated requests must reach the limiter with the user ID
	// already in context, on both the optional-auth read and the
	// auth-required mutation.
	rec := send(http.MethodGet, "/api/v1/cart", "", "good-token")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(http.MethodPost, "/api/v1/cart/items",
		`{"product_id":"`+productApples+`"}`, "good-token")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Anonymous reads still pass through the limiter, keyed by IP.
	rec = send(http.MethodGet, "/api/v1/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"user-42", "user-42", ""}, subjects)
}
