package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/config"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireAuth)
	api.Use(h.MetricsContext)

	// Cart
	api.HandleFunc("/cart", h.GetCart).Methods("GET").Name("cart.get")
	api.HandleFunc("/cart", h.ClearCart).Methods("DELETE").Name("cart.clear")
	api.HandleFunc("/cart/items", h.AddCartItem).Methods("POST").Name("cart.items.add")
	api.HandleFunc("/cart/items", h.UpdateCartItem).Methods("PATCH").Name("cart.items.update")
	api.HandleFunc("/cart/items/{productId}", h.RemoveCartItem).Methods("DELETE").Name("cart.items.remove")

	// Orders
	api.HandleFunc("/orders/place", h.PlaceOrder).Methods("POST").Name("orders.place")
	api.HandleFunc("/orders/mine", h.ListMyOrders).Methods("GET").Name("orders.mine")
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("orders.get")
	api.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods("POST").Name("orders.cancel")

	// Payment
	api.HandleFunc("/payment/create-order", h.CreatePaymentOrder).Methods("POST").Name("payment.create_order")
	api.HandleFunc("/payment/verify", h.VerifyPayment).Methods("POST").Name("payment.verify")
	api.HandleFunc("/payment/failed", h.PaymentFailed).Methods("POST").Name("payment.failed")
	api.HandleFunc("/payment/cod/process", h.ProcessCOD).Methods("POST").Name("payment.cod")
	api.HandleFunc("/payment/status/{orderId}", h.PaymentStatus).Methods("GET").Name("payment.status")

	// Shipping
	api.HandleFunc("/shipping/calculate", h.CalculateShipping).Methods("POST").Name("shipping.calculate")
	api.HandleFunc("/shipping/serviceability/{pin}", h.CheckServiceability).Methods("GET").Name("shipping.serviceability")
	api.HandleFunc("/shipping/charges", h.ShippingCharges).Methods("GET").Name("shipping.charges")
	api.HandleFunc("/shipping/track/{waybill}", h.TrackShipment).Methods("GET").Name("shipping.track")

	// Admin order management
	api.Handle("/orders", h.RequireAdmin(http.HandlerFunc(h.ListOrders))).Methods("GET").Name("orders.list")
	api.Handle("/orders/bulk-status", h.RequireAdmin(http.HandlerFunc(h.BulkUpdateOrderStatus))).Methods("PATCH").Name("orders.bulk_status")
	api.Handle("/orders/{id}/status", h.RequireAdmin(http.HandlerFunc(h.UpdateOrderStatus))).Methods("PATCH").Name("orders.update_status")

	return r
}
