package services

import (
	"context"
	"fmt"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/email"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
)

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error
	SendOrderCancellation(ctx context.Context, to string, order *models.Order) error
}

// ProviderOrderEmailSender renders lifecycle emails and hands them to the
// configured provider.
type ProviderOrderEmailSender struct {
	provider email.Provider
}

func NewProviderOrderEmailSender(provider email.Provider) *ProviderOrderEmailSender {
	return &ProviderOrderEmailSender{provider: provider}
}

func (s *ProviderOrderEmailSender) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	return s.send(ctx, to, email.OrderConfirmation(order))
}

func (s *ProviderOrderEmailSender) SendOrderCancellation(ctx context.Context, to string, order *models.Order) error {
	return s.send(ctx, to, email.OrderCancellation(order))
}

func (s *ProviderOrderEmailSender) send(ctx context.Context, to string, message *email.Email) error {
	if s == nil || s.provider == nil {
		return fmt.Errorf("email provider is not configured")
	}
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	message.To = to
	return s.provider.SendEmail(ctx, message)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, string, *models.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderCancellation(context.Context, string, *models.Order) error {
	return nil
}
