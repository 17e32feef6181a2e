package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderConfirmed OrderStatus = "Confirmed"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

type PaymentMethod string

const (
	MethodCOD      PaymentMethod = "COD"
	MethodUPI      PaymentMethod = "UPI"
	MethodRazorpay PaymentMethod = "Razorpay"
)

type ShipmentStatus string

const (
	ShipmentNotCreated     ShipmentStatus = "Not Created"
	ShipmentManifested     ShipmentStatus = "Manifested"
	ShipmentInTransit      ShipmentStatus = "In Transit"
	ShipmentOutForDelivery ShipmentStatus = "Out for Delivery"
	ShipmentDelivered      ShipmentStatus = "Delivered"
	ShipmentRTO            ShipmentStatus = "RTO"
	ShipmentCancelled      ShipmentStatus = "Cancelled"
)

// OrderItem is a frozen snapshot of a cart line taken at placement time.
// Catalog edits after placement never alter it.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Weight    float64 `json:"weight"`
	Image     string  `json:"image"`
}

// Address is the frozen delivery address captured on the order.
type Address struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	AddressType  string `json:"address_type"`
}

type Order struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	OrderNumber string      `json:"order_number"`
	Items       []OrderItem `json:"items"`

	PickupPin   string  `json:"pickup_pin"`
	DeliveryPin string  `json:"delivery_pin"`
	Distance    float64 `json:"distance"`

	Subtotal     float64 `json:"subtotal"`
	ShippingCost float64 `json:"shipping_cost"`
	TotalAmount  float64 `json:"total_amount"`
	TotalWeight  float64 `json:"total_weight"`

	DeliveryAddress Address `json:"delivery_address"`

	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method"`

	RazorpayOrderID   string    `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string    `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string    `json:"razorpay_signature,omitempty"`
	PaymentDate       time.Time `json:"payment_date,omitzero"`
	PaymentError      string    `json:"payment_error,omitempty"`

	Waybill          string         `json:"waybill,omitempty"`
	ShipmentStatus   ShipmentStatus `json:"shipment_status"`
	ShipmentResponse map[string]any `json:"shipment_response,omitempty"`
	ShipmentBookedAt time.Time      `json:"shipment_booked_at,omitzero"`

	CancelledAt time.Time `json:"cancelled_at,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Cancellable reports whether the order may still be cancelled by the buyer.
func (o *Order) Cancellable() bool {
	return o.OrderStatus == OrderPending || o.OrderStatus == OrderConfirmed
}

var validAddressTypes = map[string]struct{}{
	"home":  {},
	"work":  {},
	"other": {},
}

// ValidAddressType reports whether value is one of home/work/other.
func ValidAddressType(value string) bool {
	_, ok := validAddressTypes[value]
	return ok
}
