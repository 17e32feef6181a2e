package email

import (
	"fmt"
	"strings"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
)

// OrderConfirmation renders the post-placement notification.
func OrderConfirmation(order *models.Order) *Email {
	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "- %s × %d (%.2f kg) — ₹%.2f\n",
			item.Title, item.Quantity, item.Weight*float64(item.Quantity), item.Price*float64(item.Quantity)*item.Weight)
	}

	text := fmt.Sprintf(`Thanks for your order %s!

Items:
%s
Subtotal: ₹%.2f
Shipping: ₹%.2f
Total: ₹%.2f

Delivery to: %s, %s %s
Tracking (waybill): %s
`,
		order.OrderNumber,
		lines.String(),
		order.Subtotal, order.ShippingCost, order.TotalAmount,
		order.DeliveryAddress.FullName, order.DeliveryAddress.City, order.DeliveryAddress.Pincode,
		order.Waybill,
	)

	return &Email{
		Subject: fmt.Sprintf("Order %s confirmed", order.OrderNumber),
		Text:    text,
	}
}

// OrderCancellation renders the cancellation notice.
func OrderCancellation(order *models.Order) *Email {
	return &Email{
		Subject: fmt.Sprintf("Order %s cancelled", order.OrderNumber),
		Text: fmt.Sprintf(`Your order %s has been cancelled.

If you already paid online, the refund is handled manually by our support team.
`, order.OrderNumber),
	}
}
