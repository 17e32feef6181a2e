package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
)

type createPaymentOrderRequest struct {
	OrderID uuid.UUID `json:"order_id"`
	Amount  float64   `json:"amount"`
}

// CreatePaymentOrder handles POST /api/payment/create-order.
func (h *Handlers) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	var req createPaymentOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.OrderID == uuid.Nil {
		h.respondJSON(w, r, http.StatusBadRequest, "order_id is required", nil)
		return
	}

	result, err := h.paymentService.CreatePaymentOrder(r.Context(), identity.UserID, req.OrderID, req.Amount)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "payment order created", result)
}

type verifyPaymentRequest struct {
	OrderID           uuid.UUID `json:"order_id"`
	RazorpayOrderID   string    `json:"razorpay_order_id"`
	RazorpayPaymentID string    `json:"razorpay_payment_id"`
	RazorpaySignature string    `json:"razorpay_signature"`
}

// VerifyPayment handles POST /api/payment/verify.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	order, err := h.paymentService.VerifyPayment(r.Context(), services.VerifyPaymentInput{
		OrderID:          req.OrderID,
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "payment verified", order)
}

type paymentFailedRequest struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// PaymentFailed handles POST /api/payment/failed.
func (h *Handlers) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	var req paymentFailedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.paymentService.RecordFailure(r.Context(), identity.UserID, req.OrderID, req.Reason); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "payment failure recorded", nil)
}

type processCODRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

// ProcessCOD handles POST /api/payment/cod/process.
func (h *Handlers) ProcessCOD(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	var req processCODRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	order, err := h.paymentService.ProcessCOD(r.Context(), identity.UserID, req.OrderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "cash on delivery selected", order)
}

// PaymentStatus handles GET /api/payment/status/{orderId}.
func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, r, services.ErrUnauthenticated)
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderId"])
	if err != nil {
		h.respondError(w, r, services.ErrOrderNotFound)
		return
	}

	state, err := h.paymentService.Status(r.Context(), identity.UserID, orderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", state)
}
