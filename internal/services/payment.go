package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/db"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/logging"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/observability"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/razorpay"
)

type paymentOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByUserAndID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) error
	SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, reason string) error
	SetCODPayment(ctx context.Context, orderID uuid.UUID) error
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (*razorpay.GatewayOrder, error)
	KeyID() string
}

type PaymentService struct {
	orderStore paymentOrderStore
	gateway    paymentGateway
	secret     string
	logger     *slog.Logger
}

func NewPaymentService(orderStore paymentOrderStore, gateway paymentGateway, secret string, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		orderStore: orderStore,
		gateway:    gateway,
		secret:     secret,
		logger:     logger,
	}
}

func (s *PaymentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// toPaise converts a rupee amount to the gateway's integer minor unit.
// Comparisons happen in paise so float representation noise cannot produce a
// spurious mismatch.
func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// PaymentOrder is what the frontend checkout needs to open the gateway widget.
type PaymentOrder struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
	OrderNumber    string `json:"order_number"`
}

// CreatePaymentOrder creates a payable gateway order after re-checking the
// caller-supplied amount against the order's authoritative total. The client
// controls the amount field, so it is never trusted as-is.
func (s *PaymentService) CreatePaymentOrder(ctx context.Context, userID, orderID uuid.UUID, amount float64) (*PaymentOrder, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.create_order",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("CreatePaymentOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

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

	if toPaise(amount) != toPaise(order.TotalAmount) {
		meter.Count("payment.amount_mismatch", 1)
		s.loggerFromContext(ctx).Warn("payment amount mismatch",
			"order_number", order.OrderNumber, "claimed", amount, "actual", order.TotalAmount)
		return nil, ErrAmountMismatch
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, toPaise(order.TotalAmount), order.OrderNumber, map[string]string{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	if err != nil {
		meter.Count("payment.gateway_order.failed", 1)
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	if err := s.orderStore.SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); err != nil {
		return nil, fmt.Errorf("failed to store gateway order id: %w", err)
	}
	meter.Count("payment.gateway_order.created", 1)

	return &PaymentOrder{
		GatewayOrderID: gatewayOrder.ID,
		Amount:         gatewayOrder.Amount,
		Currency:       gatewayOrder.Currency,
		KeyID:          s.gateway.KeyID(),
		OrderNumber:    order.OrderNumber,
	}, nil
}

type VerifyPaymentInput struct {
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPayment checks the checkout confirmation signature and, on a match,
// marks the order paid. A forged or tampered confirmation leaves the order
// untouched.
func (s *PaymentService) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.verify",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("VerifyPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("payment.verify.received", 1)

	switch {
	case input.OrderID == uuid.Nil:
		return nil, fmt.Errorf("%w: order_id", ErrMissingField)
	case input.GatewayOrderID == "":
		return nil, fmt.Errorf("%w: razorpay_order_id", ErrMissingField)
	case input.GatewayPaymentID == "":
		return nil, fmt.Errorf("%w: razorpay_payment_id", ErrMissingField)
	case input.Signature == "":
		return nil, fmt.Errorf("%w: razorpay_signature", ErrMissingField)
	}

	if !razorpay.VerifySignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature, s.secret) {
		meter.Count("payment.verify.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "signature_invalid"),
		))
		s.loggerFromContext(ctx).Warn("rejected payment confirmation with invalid signature",
			"gateway_order_id", input.GatewayOrderID, "gateway_payment_id", input.GatewayPaymentID)
		return nil, ErrSignatureInvalid
	}

	order, err := s.orderStore.GetByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			meter.Count("payment.verify.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "order_not_found"),
			))
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := s.orderStore.MarkPaid(ctx, order.ID, input.GatewayOrderID, input.GatewayPaymentID, input.Signature); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			meter.Count("payment.verify.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "invalid_transition"),
			))
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	meter.Count("payment.verified", 1)

	order, err = s.orderStore.GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	s.loggerFromContext(ctx).Info("payment verified",
		"order_number", order.OrderNumber, "gateway_payment_id", input.GatewayPaymentID)
	return order, nil
}

// RecordFailure stores a gateway-reported payment failure on the order.
func (s *PaymentService) RecordFailure(ctx context.Context, userID, orderID uuid.UUID, reason string) error {
	if userID == uuid.Nil {
		return ErrUnauthenticated
	}
	if reason == "" {
		reason = "payment failed"
	}

	order, err := s.orderStore.GetByUserAndID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	if err := s.orderStore.MarkPaymentFailed(ctx, order.ID, reason); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		return fmt.Errorf("failed to record payment failure: %w", err)
	}

	observability.MeterFromContext(ctx).Count("payment.failed", 1)
	s.loggerFromContext(ctx).Info("payment failure recorded", "order_number", order.OrderNumber, "reason", reason)
	return nil
}

// ProcessCOD switches an order to cash-on-delivery.
func (s *PaymentService) ProcessCOD(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
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

	if err := s.orderStore.SetCODPayment(ctx, order.ID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		return nil, fmt.Errorf("failed to set COD payment: %w", err)
	}

	observability.MeterFromContext(ctx).Count("payment.cod.selected", 1)
	order.PaymentMethod = models.MethodCOD
	order.PaymentStatus = models.PaymentPending
	return order, nil
}

// PaymentState is the status projection returned to the frontend poller.
type PaymentState struct {
	OrderNumber   string               `json:"order_number"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	OrderStatus   models.OrderStatus   `json:"order_status"`
	PaymentError  string               `json:"payment_error,omitempty"`
}

// Status reports the payment state of an order scoped to its owner.
func (s *PaymentService) Status(ctx context.Context, userID, orderID uuid.UUID) (*PaymentState, error) {
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

	return &PaymentState{
		OrderNumber:   order.OrderNumber,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		OrderStatus:   order.OrderStatus,
		PaymentError:  order.PaymentError,
	}, nil
}
