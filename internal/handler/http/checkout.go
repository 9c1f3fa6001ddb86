package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Tausif706/FreshMart/internal/checkout"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
	"github.com/Tausif706/FreshMart/pkg/httputil"
	"github.com/Tausif706/FreshMart/pkg/middleware"
	"github.com/Tausif706/FreshMart/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout.
type CheckoutHandler struct {
	service *checkout.Service
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout HTTP handler.
func NewCheckoutHandler(svc *checkout.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// CheckoutRequest is the JSON request body for placing an order. The body is
// optional; an empty body places the order without a promo.
type CheckoutRequest struct {
	PromoCode string `json:"promo_code" validate:"omitempty,max=32"`
}

// Checkout handles POST /api/v1/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, req.PromoCode)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
