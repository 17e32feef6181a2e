package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, user_id, order_number, items, pickup_pin, delivery_pin, distance,
	subtotal, shipping_cost, total_amount, total_weight, delivery_address,
	order_status, payment_status, payment_method,
	razorpay_order_id, razorpay_payment_id, razorpay_signature, payment_date, payment_error,
	waybill, shipment_status, shipment_response, shipment_booked_at,
	cancelled_at, created_at, updated_at`

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("failed to encode delivery address: %w", err)
	}
	var shipmentJSON []byte
	if order.ShipmentResponse != nil {
		shipmentJSON, err = json.Marshal(order.ShipmentResponse)
		if err != nil {
			return fmt.Errorf("failed to encode shipment response: %w", err)
		}
	}

	query := `
		INSERT INTO orders (
			user_id, order_number, items, pickup_pin, delivery_pin, distance,
			subtotal, shipping_cost, total_amount, total_weight, delivery_address,
			order_status, payment_status, payment_method,
			waybill, shipment_status, shipment_response, shipment_booked_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18
		)
		RETURNING id, created_at, updated_at
	`

	waybill := pgtype.Text{String: order.Waybill, Valid: order.Waybill != ""}
	bookedAt := pgtype.Timestamptz{Time: order.ShipmentBookedAt, Valid: !order.ShipmentBookedAt.IsZero()}

	var createdAt, updatedAt pgtype.Timestamptz
	err = s.pool.QueryRow(ctx, query,
		order.UserID, order.OrderNumber, itemsJSON, order.PickupPin, order.DeliveryPin, order.Distance,
		order.Subtotal, order.ShippingCost, order.TotalAmount, order.TotalWeight, addressJSON,
		string(order.OrderStatus), string(order.PaymentStatus), string(order.PaymentMethod),
		waybill, string(order.ShipmentStatus), shipmentJSON, bookedAt,
	).Scan(&order.ID, &createdAt, &updatedAt)
	if err != nil {
		return err
	}

	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return s.scanOrder(s.pool.QueryRow(ctx, query, orderID))
}

// GetByUserAndID loads an order scoped to its owner.
func (s *OrderStore) GetByUserAndID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	return s.scanOrder(s.pool.QueryRow(ctx, query, orderID, userID))
}

func (s *OrderStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := s.collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// List returns orders for the admin view, optionally filtered by order status.
func (s *OrderStore) List(ctx context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, int, error) {
	statusFilter := pgtype.Text{String: string(status), Valid: status != ""}

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE ($1::text IS NULL OR order_status = $1)`
	if err := s.pool.QueryRow(ctx, countQuery, statusFilter).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR order_status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, statusFilter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := s.collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// MarkPaid records a verified gateway payment. Guarded so a cancelled or
// delivered order never flips to paid.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, order_status = $2,
		    razorpay_order_id = $3, razorpay_payment_id = $4, razorpay_signature = $5,
		    payment_date = NOW(), payment_error = NULL, updated_at = NOW()
		WHERE id = $6 AND payment_status IN ('Pending', 'Failed') AND order_status IN ('Pending', 'Confirmed')
	`
	cmdTag, err := s.pool.Exec(ctx, query,
		models.PaymentPaid, models.OrderConfirmed,
		gatewayOrderID, gatewayPaymentID, signature, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected a pending or confirmed unpaid order", ErrInvalidStatusTransition)
	}
	return nil
}

// SetGatewayOrderID stores the payment gateway's order reference.
func (s *OrderStore) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	query := `UPDATE orders SET razorpay_order_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, gatewayOrderID, orderID)
	return err
}

func (s *OrderStore) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, payment_error = $2, updated_at = NOW()
		WHERE id = $3 AND payment_status IN ('Pending', 'Failed')
	`
	cmdTag, err := s.pool.Exec(ctx, query, models.PaymentFailed, reason, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending/failed payment", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkCancelled moves a pending or confirmed order to Cancelled and stamps the
// cancellation time. The carrier shipment must already be cancelled.
func (s *OrderStore) MarkCancelled(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET order_status = $1, shipment_status = $2, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND order_status IN ('Pending', 'Confirmed')
	`
	cmdTag, err := s.pool.Exec(ctx, query, models.OrderCancelled, models.ShipmentCancelled, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected Pending/Confirmed", ErrInvalidStatusTransition)
	}
	return nil
}

// SetCODPayment switches the order to cash-on-delivery with payment pending.
func (s *OrderStore) SetCODPayment(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET payment_method = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3 AND order_status IN ('Pending', 'Confirmed')
	`
	cmdTag, err := s.pool.Exec(ctx, query, models.MethodCOD, models.PaymentPending, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected Pending/Confirmed", ErrInvalidStatusTransition)
	}
	return nil
}

// UpdateStatus applies an admin status edit. Empty values leave the field
// untouched.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) error {
	query := `
		UPDATE orders
		SET order_status = COALESCE(NULLIF($1, ''), order_status),
		    payment_status = COALESCE(NULLIF($2, ''), payment_status),
		    updated_at = NOW()
		WHERE id = $3
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(orderStatus), string(paymentStatus), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BulkUpdateStatus applies an admin status edit to many orders at once and
// returns the number of rows changed.
func (s *OrderStore) BulkUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (int64, error) {
	query := `
		UPDATE orders
		SET order_status = COALESCE(NULLIF($1, ''), order_status),
		    payment_status = COALESCE(NULLIF($2, ''), payment_status),
		    updated_at = NOW()
		WHERE id = ANY($3)
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(orderStatus), string(paymentStatus), orderIDs)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

type orderRow interface {
	Scan(dest ...any) error
}

func (s *OrderStore) scanOrder(row orderRow) (*models.Order, error) {
	var (
		order        models.Order
		itemsJSON    []byte
		addressJSON  []byte
		shipmentJSON []byte

		razorpayOrderID   pgtype.Text
		razorpayPaymentID pgtype.Text
		razorpaySignature pgtype.Text
		paymentDate       pgtype.Timestamptz
		paymentError      pgtype.Text
		waybill           pgtype.Text
		shipmentBookedAt  pgtype.Timestamptz
		cancelledAt       pgtype.Timestamptz
		createdAt         pgtype.Timestamptz
		updatedAt         pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID, &order.UserID, &order.OrderNumber, &itemsJSON, &order.PickupPin, &order.DeliveryPin, &order.Distance,
		&order.Subtotal, &order.ShippingCost, &order.TotalAmount, &order.TotalWeight, &addressJSON,
		&order.OrderStatus, &order.PaymentStatus, &order.PaymentMethod,
		&razorpayOrderID, &razorpayPaymentID, &razorpaySignature, &paymentDate, &paymentError,
		&waybill, &order.ShipmentStatus, &shipmentJSON, &shipmentBookedAt,
		&cancelledAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("failed to decode delivery address: %w", err)
	}
	if shipmentJSON != nil {
		if err := json.Unmarshal(shipmentJSON, &order.ShipmentResponse); err != nil {
			return nil, fmt.Errorf("failed to decode shipment response: %w", err)
		}
	}

	if razorpayOrderID.Valid {
		order.RazorpayOrderID = razorpayOrderID.String
	}
	if razorpayPaymentID.Valid {
		order.RazorpayPaymentID = razorpayPaymentID.String
	}
	if razorpaySignature.Valid {
		order.RazorpaySignature = razorpaySignature.String
	}
	if paymentDate.Valid {
		order.PaymentDate = paymentDate.Time
	}
	if paymentError.Valid {
		order.PaymentError = paymentError.String
	}
	if waybill.Valid {
		order.Waybill = waybill.String
	}
	if shipmentBookedAt.Valid {
		order.ShipmentBookedAt = shipmentBookedAt.Time
	}
	if cancelledAt.Valid {
		order.CancelledAt = cancelledAt.Time
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time

	return &order, nil
}

func (s *OrderStore) collectOrders(rows pgx.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
