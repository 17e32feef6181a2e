package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/cache"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/db"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/delhivery"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/logging"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/observability"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/warehouse"
)

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

const bookingIntentTTL = 24 * time.Hour

type orderCartStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID, revision int64) error
}

type orderProductStore interface {
	GetByID(ctx context.Context, productID string) (*models.Product, error)
}

type orderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByUserAndID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int, error)
	List(ctx context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, int, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) error
	BulkUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (int64, error)
}

type shipmentCarrier interface {
	CreateShipment(ctx context.Context, shipment delhivery.ShipmentRequest, pickupName string) (*delhivery.BookingResult, error)
	CancelShipment(ctx context.Context, waybill string) (*delhivery.CancelResult, error)
}

type OrderService struct {
	cartStore    orderCartStore
	productStore orderProductStore
	orderStore   orderStore
	carrier      shipmentCarrier
	intents      cache.Provider
	emailSender  OrderEmailSender
	profile      *warehouse.Profile
	pickupPin    string
	pickupName   string
	logger       *slog.Logger
}

func NewOrderService(cartStore orderCartStore, productStore orderProductStore, orderStore orderStore, carrier shipmentCarrier, intents cache.Provider, emailSender OrderEmailSender, profile *warehouse.Profile, pickupPin, pickupName string, logger *slog.Logger) *OrderService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &OrderService{
		cartStore:    cartStore,
		productStore: productStore,
		orderStore:   orderStore,
		carrier:      carrier,
		intents:      intents,
		emailSender:  emailSender,
		profile:      profile,
		pickupPin:    pickupPin,
		pickupName:   pickupName,
		logger:       logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type PlaceOrderInput struct {
	UserID        uuid.UUID
	Email         string
	DeliveryPin   string
	Distance      *float64
	ShippingCost  *float64
	Address       *models.Address
	PaymentMethod models.PaymentMethod
}

// PlaceOrder runs the full placement workflow: precondition checks, cart
// resolution, pricing, shipment booking and persistence. The shipment is
// booked before the order row is written so an order without a shipment can
// never exist; the reverse (a booked shipment whose order write failed) is
// recoverable via the booking-intent token.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.place",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("PlaceOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("payment_method", string(input.PaymentMethod)))
	recordFailure := func(reason string) {
		meter.Count("order.place.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("order.place.received", 1)

	if input.UserID == uuid.Nil {
		recordFailure("unauthenticated")
		return nil, ErrUnauthenticated
	}
	if field := firstMissingPlacementField(input); field != "" {
		recordFailure("missing_field")
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if !pinPattern.MatchString(input.DeliveryPin) {
		recordFailure("invalid_pin")
		return nil, ErrInvalidPin
	}
	if !validPaymentMethod(input.PaymentMethod) {
		recordFailure("invalid_payment_method")
		return nil, fmt.Errorf("%w: payment_method", ErrMissingField)
	}

	cart, err := s.cartStore.GetByUser(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			recordFailure("cart_not_found")
			return nil, ErrCartNotFound
		}
		recordFailure("cart_load_failed")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		recordFailure("cart_empty")
		return nil, ErrCartEmpty
	}

	items, subtotal, totalWeight, err := s.resolveCartLines(ctx, cart)
	if err != nil {
		recordFailure("line_resolution_failed")
		return nil, err
	}
	if len(items) == 0 {
		recordFailure("no_valid_items")
		return nil, ErrNoValidItems
	}

	totalAmount := subtotal + *input.ShippingCost
	if math.IsNaN(totalAmount) || math.IsInf(totalAmount, 0) || totalAmount < 0 {
		recordFailure("arithmetic")
		logger.Error("computed order total is not a valid amount",
			"user_id", input.UserID, "subtotal", subtotal, "shipping_cost", *input.ShippingCost)
		return nil, ErrArithmetic
	}

	address, err := normalizeAddress(*input.Address)
	if err != nil {
		recordFailure("invalid_address")
		return nil, err
	}

	order := &models.Order{
		UserID:          input.UserID,
		OrderNumber:     newOrderNumber(),
		Items:           items,
		PickupPin:       s.pickupPin,
		DeliveryPin:     input.DeliveryPin,
		Distance:        *input.Distance,
		Subtotal:        subtotal,
		ShippingCost:    *input.ShippingCost,
		TotalAmount:     totalAmount,
		TotalWeight:     totalWeight,
		DeliveryAddress: *address,
		OrderStatus:     models.OrderConfirmed,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   input.PaymentMethod,
		ShipmentStatus:  models.ShipmentNotCreated,
	}

	// Record the booking intent before calling out so an interrupted booking
	// leaves a reconcilable trace keyed on the order number.
	intentKey := cache.BookingIntentKey(order.OrderNumber)
	if err := s.intents.Set(ctx, intentKey, "requested", bookingIntentTTL); err != nil {
		logger.Warn("failed to record booking intent", "error", err, "order_number", order.OrderNumber)
	}

	booking, err := s.carrier.CreateShipment(ctx, s.buildShipmentRequest(order), s.pickupName)
	if err != nil {
		recordFailure("carrier_transport")
		return nil, fmt.Errorf("%w: %v", ErrShipmentBookingFailed, err)
	}
	if !booking.Success {
		recordFailure("carrier_rejected")
		if booking.Remark != "" {
			return nil, fmt.Errorf("%w: %s", ErrShipmentBookingFailed, booking.Remark)
		}
		return nil, ErrShipmentBookingFailed
	}

	if err := s.intents.Set(ctx, intentKey, "booked:"+booking.Waybill, bookingIntentTTL); err != nil {
		logger.Warn("failed to update booking intent", "error", err, "order_number", order.OrderNumber)
	}

	order.Waybill = booking.Waybill
	order.ShipmentStatus = models.ShipmentManifested
	order.ShipmentResponse = booking.Raw
	order.ShipmentBookedAt = time.Now()

	if err := s.orderStore.Create(ctx, order); err != nil {
		recordFailure("order_create_failed")
		logger.Error("order write failed after shipment booking; intent token left for reconciliation",
			"error", err, "order_number", order.OrderNumber, "waybill", order.Waybill)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	meter.Count("order.placed", 1)

	if err := s.intents.Delete(ctx, intentKey); err != nil {
		logger.Warn("failed to clear booking intent", "error", err, "order_number", order.OrderNumber)
	}

	// The order already exists; a cart-clear failure is an inconsistency for
	// the logs, not a placement failure.
	if err := s.cartStore.Clear(ctx, input.UserID, cart.Revision); err != nil {
		if errors.Is(err, db.ErrCartRevisionConflict) {
			logger.Warn("cart changed during placement, leaving it untouched",
				"user_id", input.UserID, "order_number", order.OrderNumber)
		} else {
			logger.Error("failed to clear cart after placement",
				"error", err, "user_id", input.UserID, "order_number", order.OrderNumber)
		}
		meter.Count("order.cart_clear.failed", 1)
	}

	if input.Email != "" {
		if err := s.emailSender.SendOrderConfirmation(ctx, input.Email, order); err != nil {
			logger.Warn("failed to send order confirmation email", "error", err, "order_number", order.OrderNumber)
		}
	}

	logger.Info("order placed",
		"order_number", order.OrderNumber, "user_id", input.UserID,
		"total_amount", order.TotalAmount, "waybill", order.Waybill)
	return order, nil
}

func firstMissingPlacementField(input PlaceOrderInput) string {
	if strings.TrimSpace(input.DeliveryPin) == "" {
		return "delivery_pin"
	}
	if input.Distance == nil {
		return "distance"
	}
	if input.ShippingCost == nil {
		return "shipping_cost"
	}
	if input.Address == nil {
		return "delivery_address"
	}
	return ""
}

func validPaymentMethod(method models.PaymentMethod) bool {
	switch method {
	case models.MethodCOD, models.MethodUPI, models.MethodRazorpay:
		return true
	}
	return false
}

// resolveCartLines snapshots each cart line against the live catalog. Lines
// whose product no longer exists are skipped; every other catalog fault aborts
// the placement.
func (s *OrderService) resolveCartLines(ctx context.Context, cart *models.Cart) ([]models.OrderItem, float64, float64, error) {
	logger := s.loggerFromContext(ctx)

	var (
		items       []models.OrderItem
		subtotal    float64
		totalWeight float64
	)
	for _, line := range cart.Items {
		product, err := s.productStore.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Warn("skipping cart line for deleted product",
					"product_id", line.ProductID, "user_id", cart.UserID)
				continue
			}
			return nil, 0, 0, fmt.Errorf("failed to resolve product %s: %w", line.ProductID, err)
		}

		item := models.OrderItem{
			ProductID: product.ID,
			Title:     product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Weight:    line.Weight,
			Image:     product.Image,
		}
		items = append(items, item)

		// Price is per unit-weight-unit, so weight multiplies into the line
		// total alongside quantity.
		subtotal += item.Price * float64(item.Quantity) * item.Weight
		totalWeight += item.Weight * float64(item.Quantity)
	}
	return items, subtotal, totalWeight, nil
}

func normalizeAddress(address models.Address) (*models.Address, error) {
	normalized := models.Address{
		FullName:     strings.TrimSpace(address.FullName),
		Phone:        strings.TrimSpace(address.Phone),
		AddressLine1: strings.TrimSpace(address.AddressLine1),
		AddressLine2: strings.TrimSpace(address.AddressLine2),
		City:         strings.TrimSpace(address.City),
		State:        strings.TrimSpace(address.State),
		Pincode:      strings.TrimSpace(address.Pincode),
		AddressType:  strings.ToLower(strings.TrimSpace(address.AddressType)),
	}
	if !models.ValidAddressType(normalized.AddressType) {
		normalized.AddressType = "home"
	}

	required := []struct {
		field string
		value string
	}{
		{"full_name", normalized.FullName},
		{"phone", normalized.Phone},
		{"address_line1", normalized.AddressLine1},
		{"city", normalized.City},
		{"state", normalized.State},
		{"pincode", normalized.Pincode},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, r.field)
		}
	}
	return &normalized, nil
}

// newOrderNumber builds the human-readable order reference handed to the
// carrier: a millisecond timestamp plus a random suffix.
func newOrderNumber() string {
	return fmt.Sprintf("ORD%d%03d", time.Now().UnixMilli(), rand.IntN(1000))
}

func (s *OrderService) buildShipmentRequest(order *models.Order) delhivery.ShipmentRequest {
	paymentMode := "Prepaid"
	codAmount := 0.0
	if order.PaymentMethod == models.MethodCOD {
		paymentMode = "COD"
		codAmount = order.TotalAmount
	}

	quantity := 0
	for _, item := range order.Items {
		quantity += item.Quantity
	}

	address := order.DeliveryAddress.AddressLine1
	if order.DeliveryAddress.AddressLine2 != "" {
		address += ", " + order.DeliveryAddress.AddressLine2
	}

	return delhivery.ShipmentRequest{
		Name:    order.DeliveryAddress.FullName,
		Address: address,
		Pin:     order.DeliveryPin,
		City:    order.DeliveryAddress.City,
		State:   order.DeliveryAddress.State,
		Country: "India",
		Phone:   order.DeliveryAddress.Phone,

		Order: order.OrderNumber,

		PaymentMode: paymentMode,
		CODAmount:   codAmount,
		TotalAmount: order.TotalAmount,

		ProductsDesc: s.profile.ProductsDesc,

		SellerName:    s.profile.SellerName,
		SellerAddress: s.profile.SellerAddress,
		SellerInvoice: s.profile.SellerInvoice,

		ReturnName:    s.profile.Return.Name,
		ReturnAddress: s.profile.Return.Address,
		ReturnPin:     s.profile.Return.Pin,
		ReturnCity:    s.profile.Return.City,
		ReturnState:   s.profile.Return.State,
		ReturnCountry: s.profile.Return.Country,
		ReturnPhone:   s.profile.Return.Phone,

		Quantity: quantity,

		ShipmentWidth:  "10",
		ShipmentHeight: "10",
		ShipmentLength: "10",

		Weight: strconv.FormatInt(int64(math.Round(order.TotalWeight*1000)), 10),

		ShippingMode: "Surface",
		AddressType:  order.DeliveryAddress.AddressType,
	}
}

type CancelOrderInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Email   string
}

// CancelOrder cancels a pending or confirmed order. When a waybill exists the
// carrier must confirm its cancellation first; the local record never reads
// Cancelled while the shipment is still live.
func (s *OrderService) CancelOrder(ctx context.Context, input CancelOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.cancel",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("CancelOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	recordFailure := func(reason string) {
		meter.Count("order.cancel.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("order.cancel.received", 1)

	if input.UserID == uuid.Nil {
		recordFailure("unauthenticated")
		return nil, ErrUnauthenticated
	}

	order, err := s.orderStore.GetByUserAndID(ctx, input.UserID, input.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			recordFailure("order_not_found")
			return nil, ErrOrderNotFound
		}
		recordFailure("order_load_failed")
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !order.Cancellable() {
		recordFailure("not_cancellable")
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, order.OrderStatus)
	}

	if order.Waybill != "" {
		result, err := s.carrier.CancelShipment(ctx, order.Waybill)
		if err != nil {
			recordFailure("carrier_transport")
			return nil, fmt.Errorf("%w: %v", ErrCarrierCancelFailed, err)
		}
		if !result.Success {
			recordFailure("carrier_rejected")
			if result.Message != "" {
				return nil, fmt.Errorf("%w: %s", ErrCarrierCancelFailed, result.Message)
			}
			return nil, ErrCarrierCancelFailed
		}
	}

	if err := s.orderStore.MarkCancelled(ctx, order.ID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			recordFailure("not_cancellable")
			return nil, fmt.Errorf("%w: %v", ErrNotCancellable, err)
		}
		recordFailure("order_update_failed")
		return nil, fmt.Errorf("failed to mark order cancelled: %w", err)
	}
	meter.Count("order.cancelled", 1)

	order.OrderStatus = models.OrderCancelled
	order.ShipmentStatus = models.ShipmentCancelled
	order.CancelledAt = time.Now()

	if input.Email != "" {
		if err := s.emailSender.SendOrderCancellation(ctx, input.Email, order); err != nil {
			logger.Warn("failed to send order cancellation email", "error", err, "order_number", order.OrderNumber)
		}
	}

	logger.Info("order cancelled", "order_number", order.OrderNumber, "user_id", input.UserID, "waybill", order.Waybill)
	return order, nil
}

// GetOrder loads a single order scoped to its owner.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	order, err := s.orderStore.GetByUserAndID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// OrderPage is one page of an order listing.
type OrderPage struct {
	Orders []*models.Order `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, page, limit int) (*OrderPage, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	page, limit = normalizePage(page, limit)

	orders, total, err := s.orderStore.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// List returns the admin order listing, optionally filtered by order status.
func (s *OrderService) List(ctx context.Context, status models.OrderStatus, page, limit int) (*OrderPage, error) {
	if status != "" && !validOrderStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	page, limit = normalizePage(page, limit)

	orders, total, err := s.orderStore.List(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus applies an admin edit to one order's order/payment status.
// Empty values leave the corresponding field untouched.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (*models.Order, error) {
	if orderStatus == "" && paymentStatus == "" {
		return nil, fmt.Errorf("%w: status", ErrMissingField)
	}
	if orderStatus != "" && !validOrderStatus(orderStatus) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, orderStatus)
	}
	if paymentStatus != "" && !validPaymentStatus(paymentStatus) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, paymentStatus)
	}

	if err := s.orderStore.UpdateStatus(ctx, orderID, orderStatus, paymentStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order, err := s.orderStore.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return order, nil
}

// BulkUpdateStatus applies an admin status edit to many orders and returns how
// many rows changed.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, fmt.Errorf("%w: order_ids", ErrMissingField)
	}
	if orderStatus == "" && paymentStatus == "" {
		return 0, fmt.Errorf("%w: status", ErrMissingField)
	}
	if orderStatus != "" && !validOrderStatus(orderStatus) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStatus, orderStatus)
	}
	if paymentStatus != "" && !validPaymentStatus(paymentStatus) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStatus, paymentStatus)
	}

	updated, err := s.orderStore.BulkUpdateStatus(ctx, orderIDs, orderStatus, paymentStatus)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update order status: %w", err)
	}
	return updated, nil
}

func validOrderStatus(status models.OrderStatus) bool {
	switch status {
	case models.OrderPending, models.OrderConfirmed, models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		return true
	}
	return false
}

func validPaymentStatus(status models.PaymentStatus) bool {
	switch status {
	case models.PaymentPending, models.PaymentPaid, models.PaymentFailed:
		return true
	}
	return false
}
