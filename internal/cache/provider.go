package cache

// Package cache backs shipment booking-intent tokens and carrier
// serviceability lookups with a pluggable key/value store.

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotFound = errors.New("key not found")

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// BookingIntentKey identifies a shipment booking attempt for an order number.
// The token is written before the carrier call so a resumed booking reuses the
// same carrier reference.
func BookingIntentKey(orderNumber string) string {
	return fmt.Sprintf("shipment:intent:%s", orderNumber)
}

// ServiceabilityKey identifies a cached carrier serviceability response for a
// pickup/delivery PIN pair.
func ServiceabilityKey(pickupPin, deliveryPin string) string {
	return fmt.Sprintf("serviceability:%s:%s", pickupPin, deliveryPin)
}
