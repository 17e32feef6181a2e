package services

import "errors"

// Sentinel errors returned by the order, payment and cart services. Handlers
// map these onto HTTP statuses; anything not listed here is treated as an
// internal failure.
var (
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidPin      = errors.New("delivery pin must be a 6-digit number")
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartEmpty       = errors.New("cart is empty")
	ErrNoValidItems    = errors.New("no valid items remain in the cart")
	ErrInvalidAddress  = errors.New("invalid delivery address")
	ErrArithmetic      = errors.New("order total is not a valid amount")

	ErrShipmentBookingFailed = errors.New("shipment booking failed")
	ErrCarrierCancelFailed   = errors.New("carrier refused to cancel the shipment")

	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be cancelled")

	ErrSignatureInvalid = errors.New("payment signature verification failed")
	ErrAmountMismatch   = errors.New("payment amount does not match the order total")

	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be a positive number")
	ErrItemNotInCart      = errors.New("item not found in cart")
	ErrInvalidStatus      = errors.New("invalid status value")
)
