package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/auth"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/cache"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/config"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/db"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/delhivery"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/email"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/handlers"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/logging"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/razorpay"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/warehouse"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	profile, err := warehouse.Load(cfg.WarehouseConfigPath)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to load warehouse profile: %w", err)
	}

	carrier := delhivery.NewClient(cfg.DelhiveryBaseURL, cfg.DelhiveryAPIKey)
	gateway := razorpay.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret)

	cartStore := db.NewCartStore(database)
	productStore := db.NewProductStore(database)
	orderStore := db.NewOrderStore(database)

	var orderEmailer services.OrderEmailSender
	if cfg.EmailEnabled() {
		orderEmailer = services.NewProviderOrderEmailSender(email.NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom))
	}

	orderService := services.NewOrderService(
		cartStore,
		productStore,
		orderStore,
		carrier,
		cacheProvider,
		orderEmailer,
		profile,
		cfg.PickupPin,
		cfg.DelhiveryPickupName,
		logger.With("component", "order_service"),
	)
	paymentService := services.NewPaymentService(orderStore, gateway, cfg.RazorpayKeySecret, logger.With("component", "payment_service"))
	cartService := services.NewCartService(cartStore, productStore, logger.With("component", "cart_service"))
	shippingService := services.NewShippingService(carrier, cacheProvider, cfg.PickupPin, logger.With("component", "shipping_service"))

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CacheProvider:   cacheProvider,
		TokenManager:    tokenManager,
		OrderService:    orderService,
		PaymentService:  paymentService,
		CartService:     cartService,
		ShippingService: shippingService,
		Logger:          logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
