package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/auth"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/cache"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/config"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/logging"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the JSON API request handlers.
type Handlers struct {
	config          *config.Config
	db              *pgxpool.Pool
	cacheProvider   cache.Provider
	tokenManager    *auth.TokenManager
	orderService    *services.OrderService
	paymentService  *services.PaymentService
	cartService     *services.CartService
	shippingService *services.ShippingService
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	CacheProvider   cache.Provider
	TokenManager    *auth.TokenManager
	OrderService    *services.OrderService
	PaymentService  *services.PaymentService
	CartService     *services.CartService
	ShippingService *services.ShippingService
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.TokenManager == nil {
		return nil, fmt.Errorf("handlers dependencies: tokenManager is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.PaymentService == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentService is required")
	}
	if deps.CartService == nil {
		return nil, fmt.Errorf("handlers dependencies: cartService is required")
	}
	if deps.ShippingService == nil {
		return nil, fmt.Errorf("handlers dependencies: shippingService is required")
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		cacheProvider:   deps.CacheProvider,
		tokenManager:    deps.TokenManager,
		orderService:    deps.OrderService,
		paymentService:  deps.PaymentService,
		cartService:     deps.CartService,
		shippingService: deps.ShippingService,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

// NotFound answers unmatched routes with the standard response envelope.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusNotFound, "not found", nil)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

// decodeJSON reads a JSON request body into dst with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
