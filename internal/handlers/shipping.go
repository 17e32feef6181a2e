package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type calculateShippingRequest struct {
	DeliveryPin string   `json:"delivery_pin"`
	Weight      float64  `json:"weight"`
	Distance    *float64 `json:"distance"`
}

// CalculateShipping handles POST /api/shipping/calculate.
func (h *Handlers) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req calculateShippingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	quote, err := h.shippingService.Estimate(r.Context(), req.DeliveryPin, req.Weight, req.Distance)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", quote)
}

// CheckServiceability handles GET /api/shipping/serviceability/{pin}.
func (h *Handlers) CheckServiceability(w http.ResponseWriter, r *http.Request) {
	result, err := h.shippingService.CheckServiceability(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", result)
}

// ShippingCharges handles GET /api/shipping/charges.
func (h *Handlers) ShippingCharges(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	weight, _ := strconv.ParseFloat(query.Get("weight"), 64)

	quote, err := h.shippingService.Charges(r.Context(), query.Get("pin"), weight, query.Get("payment_type"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", quote)
}

// TrackShipment handles GET /api/shipping/track/{waybill}.
func (h *Handlers) TrackShipment(w http.ResponseWriter, r *http.Request) {
	payload, err := h.shippingService.Track(r.Context(), mux.Vars(r)["waybill"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, "", payload)
}
