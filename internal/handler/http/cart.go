// Package http exposes the cart and checkout API over HTTP.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/internal/store"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
	"github.com/Tausif706/FreshMart/pkg/httputil"
	"github.com/Tausif706/FreshMart/pkg/middleware"
	"github.com/Tausif706/FreshMart/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	carts  *store.Store
	logger *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(carts *store.Store, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for changing a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CartResponse is the cart with its derived price breakdown.
type CartResponse struct {
	ID     string            `json:"id,omitempty"`
	UserID string            `json:"user_id,omitempty"`
	Items  []domain.LineItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
}

func cartResponse(cart *domain.Cart, promoCode string) CartResponse {
	var promo *domain.Promo
	if promoCode != "" {
		if p, ok := domain.LookupPromo(promoCode); ok {
			promo = &p
		}
	}
	return CartResponse{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  cart.Items,
		Totals: domain.ComputeTotals(cart, promo),
	}
}

// emptyCartResponse is what anonymous callers see: a cart that holds nothing
// and costs nothing.
func emptyCartResponse() CartResponse {
	return CartResponse{Items: []domain.LineItem{}}
}

// GetCart handles GET /api/v1/cart. Anonymous callers receive an empty inert
// cart rather than an error, matching the storefront's signed-out view. An
// optional promo query parameter is priced into the totals without being
// persisted.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: emptyCartResponse()})
		return
	}

	cart, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(cart, r.URL.Query().Get("promo"))})
}

// AddItem handles POST /api/v1/cart/items. Adding a product that is already
// in the cart does not create a second line or bump the quantity; the
// response reports already_in_cart so the client can tell the user.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	switch res.Status {
	case store.StatusAlreadyInCart:
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
			"status": "already_in_cart",
			"cart":   cartResponse(res.Cart, ""),
		}})
	default:
		httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: map[string]any{
			"status": "added",
			"cart":   cartResponse(res.Cart, ""),
		}})
	}
}

// UpdateQuantity handles PUT /api/v1/cart/items/{itemID}.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(cart, "")})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}. Removing a line
// that is already gone succeeds, so client retries are safe.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	cart, err := h.carts.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(cart, "")})
}

// ClearCart handles DELETE /api/v1/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	cart, err := h.carts.Clear(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(cart, "")})
}
