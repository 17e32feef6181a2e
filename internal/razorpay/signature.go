package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the checkout confirmation signature: hex-encoded HMAC-SHA256
// over "orderID|paymentID" keyed with the gateway secret.
func Sign(gatewayOrderID, gatewayPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares it to the
// caller-supplied one in constant time. A match proves the confirmation came
// from the gateway and was not forged client-side.
func VerifySignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	expected := Sign(gatewayOrderID, gatewayPaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
