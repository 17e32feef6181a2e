package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
)

// GetCart handles GET /api/cart.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	cart, err := h.cartService.Get(r.Context(), identity.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", cart)
}

type cartItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Weight    float64 `json:"weight"`
}

// AddCartItem handles POST /api/cart/items.
func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), identity.UserID, req.ProductID, req.Quantity, req.Weight)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "item added", cart)
}

// UpdateCartItem handles PATCH /api/cart/items.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), identity.UserID, req.ProductID, req.Quantity, req.Weight)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "item updated", cart)
}

// RemoveCartItem handles DELETE /api/cart/items/{productId}.
func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	productID := mux.Vars(r)["productId"]
	weight, _ := strconv.ParseFloat(r.URL.Query().Get("weight"), 64)

	cart, err := h.cartService.RemoveItem(r.Context(), identity.UserID, productID, weight)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "item removed", cart)
}

// ClearCart handles DELETE /api/cart.
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	if err := h.cartService.Clear(r.Context(), identity.UserID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "cart cleared", nil)
}
