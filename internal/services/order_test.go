package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/cache"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/db"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/delhivery"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/warehouse"
)

type fakeCartStore struct {
	cart     *models.Cart
	getErr   error
	saveErr  error
	clearErr error

	cleared         bool
	clearedRevision int64
	saveCalls       int
}

func (f *fakeCartStore) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.cart == nil {
		return nil, pgx.ErrNoRows
	}
	return f.cart, nil
}

func (f *fakeCartStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.cart == nil {
		f.cart = &models.Cart{ID: uuid.New(), UserID: userID, Items: []models.CartItem{}}
	}
	return f.cart, nil
}

func (f *fakeCartStore) Save(ctx context.Context, cart *models.Cart) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	cart.Revision++
	f.cart = cart
	return nil
}

func (f *fakeCartStore) Clear(ctx context.Context, userID uuid.UUID, revision int64) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	if f.cart != nil && f.cart.Revision != revision {
		return db.ErrCartRevisionConflict
	}
	f.cleared = true
	f.clearedRevision = revision
	return nil
}

type fakeProductStore struct {
	products map[string]*models.Product
}

func (f *fakeProductStore) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	product, ok := f.products[productID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return product, nil
}

type fakeOrderStore struct {
	orders    map[uuid.UUID]*models.Order
	createErr error

	created *models.Order

	markPaidCalls   int
	gatewayOrderID  string
	failureReason   string
	codCalls        int
	bulkUpdated     []uuid.UUID
	updatedStatuses map[uuid.UUID]models.OrderStatus
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	store := &fakeOrderStore{
		orders:          make(map[uuid.UUID]*models.Order),
		updatedStatuses: make(map[uuid.UUID]models.OrderStatus),
	}
	for _, order := range orders {
		store.orders[order.ID] = order
	}
	return store
}

func (f *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	f.orders[order.ID] = order
	f.created = order
	return nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return order, nil
}

func (f *fakeOrderStore) GetByUserAndID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return order, nil
}

func (f *fakeOrderStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int, error) {
	var orders []*models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, len(orders), nil
}

func (f *fakeOrderStore) List(ctx context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, int, error) {
	var orders []*models.Order
	for _, order := range f.orders {
		if status == "" || order.OrderStatus == status {
			orders = append(orders, order)
		}
	}
	return orders, len(orders), nil
}

func (f *fakeOrderStore) MarkCancelled(ctx context.Context, orderID uuid.UUID) error {
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !order.Cancellable() {
		return db.ErrInvalidStatusTransition
	}
	order.OrderStatus = models.OrderCancelled
	order.ShipmentStatus = models.ShipmentCancelled
	order.CancelledAt = time.Now()
	return nil
}

func (f *fakeOrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) error {
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	if orderStatus != "" {
		order.OrderStatus = orderStatus
		f.updatedStatuses[orderID] = orderStatus
	}
	if paymentStatus != "" {
		order.PaymentStatus = paymentStatus
	}
	return nil
}

func (f *fakeOrderStore) BulkUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (int64, error) {
	var updated int64
	for _, id := range orderIDs {
		if err := f.UpdateStatus(ctx, id, orderStatus, paymentStatus); err == nil {
			f.bulkUpdated = append(f.bulkUpdated, id)
			updated++
		}
	}
	return updated, nil
}

func (f *fakeOrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	if order.PaymentStatus == models.PaymentPaid || order.OrderStatus == models.OrderCancelled {
		return db.ErrInvalidStatusTransition
	}
	f.markPaidCalls++
	order.PaymentStatus = models.PaymentPaid
	order.OrderStatus = models.OrderConfirmed
	order.RazorpayOrderID = gatewayOrderID
	order.RazorpayPaymentID = gatewayPaymentID
	order.RazorpaySignature = signature
	order.PaymentDate = time.Now()
	return nil
}

func (f *fakeOrderStore) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	f.gatewayOrderID = gatewayOrderID
	order.RazorpayOrderID = gatewayOrderID
	return nil
}

func (f *fakeOrderStore) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	if order.PaymentStatus == models.PaymentPaid {
		return db.ErrInvalidStatusTransition
	}
	f.failureReason = reason
	order.PaymentStatus = models.PaymentFailed
	order.PaymentError = reason
	return nil
}

func (f *fakeOrderStore) SetCODPayment(ctx context.Context, orderID uuid.UUID) error {
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !order.Cancellable() {
		return db.ErrInvalidStatusTransition
	}
	f.codCalls++
	order.PaymentMethod = models.MethodCOD
	order.PaymentStatus = models.PaymentPending
	return nil
}

type fakeCarrier struct {
	bookResult *delhivery.BookingResult
	bookErr    error
	bookCalls  int
	lastBooked delhivery.ShipmentRequest
	lastPickup string

	cancelResult *delhivery.CancelResult
	cancelErr    error
	cancelCalls  int
	lastWaybill  string
}

func (f *fakeCarrier) CreateShipment(ctx context.Context, shipment delhivery.ShipmentRequest, pickupName string) (*delhivery.BookingResult, error) {
	f.bookCalls++
	f.lastBooked = shipment
	f.lastPickup = pickupName
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	if f.bookResult != nil {
		return f.bookResult, nil
	}
	return &delhivery.BookingResult{Success: true, Waybill: "WB123456"}, nil
}

func (f *fakeCarrier) CancelShipment(ctx context.Context, waybill string) (*delhivery.CancelResult, error) {
	f.cancelCalls++
	f.lastWaybill = waybill
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	if f.cancelResult != nil {
		return f.cancelResult, nil
	}
	return &delhivery.CancelResult{Success: true}, nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return value, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeCache) Close() error { return nil }

type fakeEmailSender struct {
	confirmations int
	cancellations int
	lastRecipient string
}

func (f *fakeEmailSender) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	f.confirmations++
	f.lastRecipient = to
	return nil
}

func (f *fakeEmailSender) SendOrderCancellation(ctx context.Context, to string, order *models.Order) error {
	f.cancellations++
	f.lastRecipient = to
	return nil
}

func testProfile() *warehouse.Profile {
	return &warehouse.Profile{
		SellerName:    "Green Farms",
		SellerAddress: "1 Farm Road, Chennai",
		ProductsDesc:  "Farm produce",
		Return: warehouse.ReturnAddress{
			Name:    "Green Farms Returns",
			Address: "1 Farm Road, Chennai",
			Pin:     "600001",
			City:    "Chennai",
			State:   "Tamil Nadu",
			Country: "India",
			Phone:   "9999999999",
		},
	}
}

type orderServiceFixture struct {
	service  *OrderService
	carts    *fakeCartStore
	products *fakeProductStore
	orders   *fakeOrderStore
	carrier  *fakeCarrier
	intents  *fakeCache
	emails   *fakeEmailSender
}

func newOrderServiceFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		carts:    &fakeCartStore{},
		products: &fakeProductStore{products: make(map[string]*models.Product)},
		orders:   newFakeOrderStore(),
		carrier:  &fakeCarrier{},
		intents:  newFakeCache(),
		emails:   &fakeEmailSender{},
	}
	f.service = NewOrderService(f.carts, f.products, f.orders, f.carrier, f.intents, f.emails, testProfile(), "600001", "Green Farms Pickup", nil)
	return f
}

func floatPtr(v float64) *float64 { return &v }

func validAddress() *models.Address {
	return &models.Address{
		FullName:     "  Asha Kumar ",
		Phone:        "9876543210",
		AddressLine1: "12 Lake View Road",
		City:         "Madurai",
		State:        "Tamil Nadu",
		Pincode:      "625001",
		AddressType:  "Office",
	}
}

func validPlacement(userID uuid.UUID) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:        userID,
		Email:         "asha@example.com",
		DeliveryPin:   "625001",
		Distance:      floatPtr(120),
		ShippingCost:  floatPtr(50),
		Address:       validAddress(),
		PaymentMethod: models.MethodRazorpay,
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	userID := uuid.New()
	f.carts.cart = &models.Cart{
		ID:       uuid.New(),
		UserID:   userID,
		Revision: 3,
		Items: []models.CartItem{
			{ProductID: "p1", Quantity: 2, Weight: 1},
		},
	}
	f.products.products["p1"] = &models.Product{ID: "p1", Name: "Organic Rice", Price: 100, Availability: true}

	order, err := f.service.PlaceOrder(context.Background(), validPlacement(userID))
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	if math.Abs(order.Subtotal-200) > 1e-6 {
		t.Errorf("Subtotal = %v, want 200", order.Subtotal)
	}
	if math.Abs(order.TotalAmount-250) > 1e-6 {
		t.Errorf("TotalAmount = %v, want 250", order.TotalAmount)
	}
	if math.Abs(order.TotalWeight-2) > 1e-6 {
		t.Errorf("TotalWeight = %v, want 2", order.TotalWeight)
	}
	if order.OrderStatus != models.OrderConfirmed {
		t.Errorf("OrderStatus = %v, want Confirmed", order.OrderStatus)
	}
	if order.Waybill != "WB123456" {
		t.Errorf("Waybill = %q, want WB123456", order.Waybill)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD") {
		t.Errorf("OrderNumber = %q, want ORD prefix", order.OrderNumber)
	}

	// Address normalization: trimmed, unknown type defaulted.
	if order.DeliveryAddress.FullName != "Asha Kumar" {
		t.Errorf("FullName = %q, want trimmed value", order.DeliveryAddress.FullName)
	}
	if order.DeliveryAddress.AddressType != "home" {
		t.Errorf("AddressType = %q, want home", order.DeliveryAddress.AddressType)
	}

	if f.orders.created == nil {
		t.Fatal("order was not persisted")
	}
	if !f.carts.cleared {
		t.Error("cart was not cleared after placement")
	}
	if f.carts.clearedRevision != 3 {
		t.Errorf("cart cleared at revision %d, want 3", f.carts.clearedRevision)
	}
	if f.emails.confirmations != 1 {
		t.Errorf("confirmation emails = %d, want 1", f.emails.confirmations)
	}
	if _, ok := f.intents.values[cache.BookingIntentKey(order.OrderNumber)]; ok {
		t.Error("booking intent token should be cleared after persistence")
	}
	if f.carrier.lastPickup != "Green Farms Pickup" {
		t.Errorf("pickup name = %q", f.carrier.lastPickup)
	}
	if f.carrier.lastBooked.PaymentMode != "Prepaid" {
		t.Errorf("payment mode = %q, want Prepaid", f.carrier.lastBooked.PaymentMode)
	}
	if f.carrier.lastBooked.Weight != "2000" {
		t.Errorf("manifest weight = %q, want 2000 grams", f.carrier.lastBooked.Weight)
	}
}

func TestPlaceOrderPreconditions(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*PlaceOrderInput)
		wantErr error
	}{
		{
			name:    "unauthenticated",
			mutate:  func(in *PlaceOrderInput) { in.UserID = uuid.Nil },
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "missing delivery pin",
			mutate:  func(in *PlaceOrderInput) { in.DeliveryPin = "" },
			wantErr: ErrMissingField,
		},
		{
			name:    "missing shipping cost",
			mutate:  func(in *PlaceOrderInput) { in.ShippingCost = nil },
			wantErr: ErrMissingField,
		},
		{
			name:    "missing distance",
			mutate:  func(in *PlaceOrderInput) { in.Distance = nil },
			wantErr: ErrMissingField,
		},
		{
			name:    "missing address",
			mutate:  func(in *PlaceOrderInput) { in.Address = nil },
			wantErr: ErrMissingField,
		},
		{
			name:    "non-numeric pin",
			mutate:  func(in *PlaceOrderInput) { in.DeliveryPin = "62500a" },
			wantErr: ErrInvalidPin,
		},
		{
			name:    "short pin",
			mutate:  func(in *PlaceOrderInput) { in.DeliveryPin = "6250" },
			wantErr: ErrInvalidPin,
		},
		{
			name:    "unknown payment method",
			mutate:  func(in *PlaceOrderInput) { in.PaymentMethod = "Barter" },
			wantErr: ErrMissingField,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newOrderServiceFixture()
			input := validPlacement(userID)
			tc.mutate(&input)

			_, err := f.service.PlaceOrder(context.Background(), input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("PlaceOrder() error = %v, want %v", err, tc.wantErr)
			}
			if f.carrier.bookCalls != 0 {
				t.Error("carrier should not be called on precondition failure")
			}
		})
	}
}

func TestPlaceOrderCartStates(t *testing.T) {
	t.Parallel()

	t.Run("no cart", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		_, err := f.service.PlaceOrder(context.Background(), validPlacement(uuid.New()))
		if !errors.Is(err, ErrCartNotFound) {
			t.Fatalf("PlaceOrder() error = %v, want ErrCartNotFound", err)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		userID := uuid.New()
		f.carts.cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}

		_, err := f.service.PlaceOrder(context.Background(), validPlacement(userID))
		if !errors.Is(err, ErrCartEmpty) {
			t.Fatalf("PlaceOrder() error = %v, want ErrCartEmpty", err)
		}
	})
}

func TestPlaceOrderSkipsDeletedProducts(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	userID := uuid.New()
	f.carts.cart = &models.Cart{
		UserID: userID,
		Items: []models.CartItem{
			{ProductID: "gone", Quantity: 1, Weight: 1},
			{ProductID: "p1", Quantity: 1, Weight: 0.5},
		},
	}
	f.products.products["p1"] = &models.Product{ID: "p1", Name: "Millet Flour", Price: 80, Availability: true}

	order, err := f.service.PlaceOrder(context.Background(), validPlacement(userID))
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("order has %d items, want 1 (deleted line skipped)", len(order.Items))
	}
	if math.Abs(order.Subtotal-40) > 1e-6 {
		t.Errorf("Subtotal = %v, want 40", order.Subtotal)
	}
}

func TestPlaceOrderNoValidItems(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	userID := uuid.New()
	f.carts.cart = &models.Cart{
		UserID: userID,
		Items:  []models.CartItem{{ProductID: "gone", Quantity: 1, Weight: 1}},
	}

	_, err := f.service.PlaceOrder(context.Background(), validPlacement(userID))
	if !errors.Is(err, ErrNoValidItems) {
		t.Fatalf("PlaceOrder() error = %v, want ErrNoValidItems", err)
	}
	if f.carrier.bookCalls != 0 {
		t.Error("carrier should not be called with nothing to ship")
	}
}

func TestPlaceOrderInvalidAddress(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	userID := uuid.New()
	f.carts.cart = &models.Cart{
		UserID: userID,
		Items:  []models.CartItem{{ProductID: "p1", Quantity: 1, Weight: 1}},
	}
	f.products.products["p1"] = &models.Product{ID: "p1", Name: "Jaggery", Price: 60, Availability: true}

	input := validPlacement(userID)
	input.Address.Phone = "   "

	_, err := f.service.PlaceOrder(context.Background(), input)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("PlaceOrder() error = %v, want ErrInvalidAddress", err)
	}
	if !strings.Contains(err.Error(), "phone") {
		t.Errorf("error %q should name the offending field", err)
	}
}

func TestPlaceOrderBookingFailureCreatesNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		carrier fakeCarrier
	}{
		{
			name:    "carrier rejection",
			carrier: fakeCarrier{bookResult: &delhivery.BookingResult{Success: false, Remark: "pin not serviceable"}},
		},
		{
			name:    "transport fault",
			carrier: fakeCarrier{bookErr: errors.New("connection reset")},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newOrderServiceFixture()
			f.carrier.bookResult = tc.carrier.bookResult
			f.carrier.bookErr = tc.carrier.bookErr

			userID := uuid.New()
			f.carts.cart = &models.Cart{
				UserID:   userID,
				Revision: 1,
				Items:    []models.CartItem{{ProductID: "p1", Quantity: 1, Weight: 1}},
			}
			f.products.products["p1"] = &models.Product{ID: "p1", Name: "Tea", Price: 150, Availability: true}

			_, err := f.service.PlaceOrder(context.Background(), validPlacement(userID))
			if !errors.Is(err, ErrShipmentBookingFailed) {
				t.Fatalf("PlaceOrder() error = %v, want ErrShipmentBookingFailed", err)
			}
			if f.orders.created != nil {
				t.Error("no order may be persisted when booking fails")
			}
			if f.carts.cleared {
				t.Error("cart must stay intact when booking fails")
			}
		})
	}
}

func TestPlaceOrderCODManifest(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	userID := uuid.New()
	f.carts.cart = &models.Cart{
		UserID: userID,
		Items:  []models.CartItem{{ProductID: "p1", Quantity: 1, Weight: 2}},
	}
	f.products.products["p1"] = &models.Product{ID: "p1", Name: "Honey", Price: 200, Availability: true}

	input := validPlacement(userID)
	input.PaymentMethod = models.MethodCOD

	order, err := f.service.PlaceOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if f.carrier.lastBooked.PaymentMode != "COD" {
		t.Errorf("payment mode = %q, want COD", f.carrier.lastBooked.PaymentMode)
	}
	if math.Abs(f.carrier.lastBooked.CODAmount-order.TotalAmount) > 1e-6 {
		t.Errorf("COD amount = %v, want %v", f.carrier.lastBooked.CODAmount, order.TotalAmount)
	}
}

func TestPlaceOrderCartClearConflictIsNonFatal(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	userID := uuid.New()
	f.carts.cart = &models.Cart{
		UserID:   userID,
		Revision: 5,
		Items:    []models.CartItem{{ProductID: "p1", Quantity: 1, Weight: 1}},
	}
	f.products.products["p1"] = &models.Product{ID: "p1", Name: "Ghee", Price: 500, Availability: true}
	f.carts.clearErr = db.ErrCartRevisionConflict

	order, err := f.service.PlaceOrder(context.Background(), validPlacement(userID))
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v (clear conflict must not fail placement)", err)
	}
	if order == nil || f.orders.created == nil {
		t.Fatal("order should still be created")
	}
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	newOrder := func(status models.OrderStatus, waybill string) *models.Order {
		return &models.Order{
			ID:          uuid.New(),
			UserID:      userID,
			OrderNumber: "ORD17001",
			OrderStatus: status,
			Waybill:     waybill,
		}
	}

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		_, err := f.service.CancelOrder(context.Background(), CancelOrderInput{UserID: userID, OrderID: uuid.New()})
		if !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("CancelOrder() error = %v, want ErrOrderNotFound", err)
		}
	})

	t.Run("other user's order is not visible", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		order := newOrder(models.OrderPending, "")
		order.UserID = uuid.New()
		f.orders.orders[order.ID] = order

		_, err := f.service.CancelOrder(context.Background(), CancelOrderInput{UserID: userID, OrderID: order.ID})
		if !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("CancelOrder() error = %v, want ErrOrderNotFound", err)
		}
	})

	for _, status := range []models.OrderStatus{models.OrderShipped, models.OrderDelivered, models.OrderCancelled} {
		status := status
		t.Run("not cancellable from "+string(status), func(t *testing.T) {
			t.Parallel()

			f := newOrderServiceFixture()
			order := newOrder(status, "WB1")
			f.orders.orders[order.ID] = order

			_, err := f.service.CancelOrder(context.Background(), CancelOrderInput{UserID: userID, OrderID: order.ID})
			if !errors.Is(err, ErrNotCancellable) {
				t.Fatalf("CancelOrder() error = %v, want ErrNotCancellable", err)
			}
			if f.carrier.cancelCalls != 0 {
				t.Error("carrier cancel must not run for a non-cancellable order")
			}
		})
	}

	t.Run("carrier refusal keeps order unchanged", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		f.carrier.cancelResult = &delhivery.CancelResult{Success: false, Message: "already in transit"}
		order := newOrder(models.OrderConfirmed, "WB77")
		f.orders.orders[order.ID] = order

		_, err := f.service.CancelOrder(context.Background(), CancelOrderInput{UserID: userID, OrderID: order.ID})
		if !errors.Is(err, ErrCarrierCancelFailed) {
			t.Fatalf("CancelOrder() error = %v, want ErrCarrierCancelFailed", err)
		}
		if order.OrderStatus != models.OrderConfirmed {
			t.Errorf("order status changed to %v despite carrier refusal", order.OrderStatus)
		}
	})

	t.Run("success with waybill", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		order := newOrder(models.OrderConfirmed, "WB42")
		f.orders.orders[order.ID] = order

		cancelled, err := f.service.CancelOrder(context.Background(), CancelOrderInput{UserID: userID, OrderID: order.ID, Email: "asha@example.com"})
		if err != nil {
			t.Fatalf("CancelOrder() error = %v", err)
		}
		if cancelled.OrderStatus != models.OrderCancelled {
			t.Errorf("OrderStatus = %v, want Cancelled", cancelled.OrderStatus)
		}
		if f.carrier.lastWaybill != "WB42" {
			t.Errorf("carrier cancelled waybill %q, want WB42", f.carrier.lastWaybill)
		}
		if f.emails.cancellations != 1 {
			t.Errorf("cancellation emails = %d, want 1", f.emails.cancellations)
		}
	})

	t.Run("success without waybill skips carrier", func(t *testing.T) {
		t.Parallel()

		f := newOrderServiceFixture()
		order := newOrder(models.OrderPending, "")
		f.orders.orders[order.ID] = order

		cancelled, err := f.service.CancelOrder(context.Background(), CancelOrderInput{UserID: userID, OrderID: order.ID})
		if err != nil {
			t.Fatalf("CancelOrder() error = %v", err)
		}
		if cancelled.OrderStatus != models.OrderCancelled {
			t.Errorf("OrderStatus = %v, want Cancelled", cancelled.OrderStatus)
		}
		if f.carrier.cancelCalls != 0 {
			t.Error("carrier should not be called without a waybill")
		}
	})
}

func TestUpdateStatusValidation(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	order := &models.Order{ID: uuid.New(), UserID: uuid.New(), OrderStatus: models.OrderConfirmed, PaymentStatus: models.PaymentPending}
	f.orders.orders[order.ID] = order

	if _, err := f.service.UpdateStatus(context.Background(), order.ID, "Teleported", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("UpdateStatus() error = %v, want ErrInvalidStatus", err)
	}
	if _, err := f.service.UpdateStatus(context.Background(), order.ID, "", ""); !errors.Is(err, ErrMissingField) {
		t.Fatalf("UpdateStatus() error = %v, want ErrMissingField", err)
	}

	updated, err := f.service.UpdateStatus(context.Background(), order.ID, models.OrderShipped, "")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.OrderStatus != models.OrderShipped {
		t.Errorf("OrderStatus = %v, want Shipped", updated.OrderStatus)
	}
	if updated.PaymentStatus != models.PaymentPending {
		t.Errorf("PaymentStatus = %v, want untouched Pending", updated.PaymentStatus)
	}
}

func TestBulkUpdateStatus(t *testing.T) {
	t.Parallel()

	f := newOrderServiceFixture()
	first := &models.Order{ID: uuid.New(), OrderStatus: models.OrderConfirmed}
	second := &models.Order{ID: uuid.New(), OrderStatus: models.OrderConfirmed}
	f.orders.orders[first.ID] = first
	f.orders.orders[second.ID] = second

	updated, err := f.service.BulkUpdateStatus(context.Background(), []uuid.UUID{first.ID, second.ID}, models.OrderShipped, "")
	if err != nil {
		t.Fatalf("BulkUpdateStatus() error = %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	if _, err := f.service.BulkUpdateStatus(context.Background(), nil, models.OrderShipped, ""); !errors.Is(err, ErrMissingField) {
		t.Fatalf("BulkUpdateStatus() with no ids error = %v, want ErrMissingField", err)
	}
}
