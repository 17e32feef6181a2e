package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
)

type placeOrderRequest struct {
	DeliveryPin     string          `json:"delivery_pin"`
	Distance        *float64        `json:"distance"`
	ShippingCost    *float64        `json:"shipping_cost"`
	DeliveryAddress *models.Address `json:"delivery_address"`
	PaymentMethod   string          `json:"payment_method"`
}

// PlaceOrder handles POST /api/orders/place.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), services.PlaceOrderInput{
		UserID:        identity.UserID,
		Email:         identity.Email,
		DeliveryPin:   req.DeliveryPin,
		Distance:      req.Distance,
		ShippingCost:  req.ShippingCost,
		Address:       req.DeliveryAddress,
		PaymentMethod: parsePaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, "order placed", order)
}

// parsePaymentMethod accepts the frontend's "gateway" alias alongside the
// stored method names.
func parsePaymentMethod(value string) models.PaymentMethod {
	switch value {
	case "gateway", "razorpay", string(models.MethodRazorpay):
		return models.MethodRazorpay
	case "cod", string(models.MethodCOD):
		return models.MethodCOD
	case "upi", string(models.MethodUPI):
		return models.MethodUPI
	default:
		return models.PaymentMethod(value)
	}
}

// ListMyOrders handles GET /api/orders/mine.
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	page, limit := paginationParams(r)
	result, err := h.orderService.ListMine(r.Context(), identity.UserID, page, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", result)
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	orderID, err := orderIDFromPath(r)
	if err != nil {
		h.respondError(w, r, services.ErrOrderNotFound)
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), identity.UserID, orderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", order)
}

// CancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	orderID, err := orderIDFromPath(r)
	if err != nil {
		h.respondError(w, r, services.ErrOrderNotFound)
		return
	}

	order, err := h.orderService.CancelOrder(r.Context(), services.CancelOrderInput{
		UserID:  identity.UserID,
		OrderID: orderID,
		Email:   identity.Email,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "order cancelled", order)
}

// ListOrders handles the admin GET /api/orders.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := paginationParams(r)
	status := models.OrderStatus(r.URL.Query().Get("status"))

	result, err := h.orderService.List(r.Context(), status, page, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", result)
}

type updateStatusRequest struct {
	OrderStatus   string `json:"order_status"`
	PaymentStatus string `json:"payment_status"`
}

// UpdateOrderStatus handles the admin PATCH /api/orders/{id}/status.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		h.respondError(w, r, services.ErrOrderNotFound)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID,
		models.OrderStatus(req.OrderStatus), models.PaymentStatus(req.PaymentStatus))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "order updated", order)
}

type bulkUpdateStatusRequest struct {
	OrderIDs      []uuid.UUID `json:"order_ids"`
	OrderStatus   string      `json:"order_status"`
	PaymentStatus string      `json:"payment_status"`
}

// BulkUpdateOrderStatus handles the admin PATCH /api/orders/bulk-status.
func (h *Handlers) BulkUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	updated, err := h.orderService.BulkUpdateStatus(r.Context(), req.OrderIDs,
		models.OrderStatus(req.OrderStatus), models.PaymentStatus(req.PaymentStatus))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "orders updated", map[string]int64{"updated": updated})
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

func paginationParams(r *http.Request) (int, int) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	return page, limit
}
