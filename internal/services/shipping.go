package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/cache"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/delhivery"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/logging"
)

// Heuristic rate card for the local estimate shown before checkout. The
// carrier's own charge quote is authoritative when available.
const (
	baseShippingRate   = 50.0
	ratePerKg          = 10.0
	ratePerKm          = 0.5
	serviceabilityTTL  = time.Hour
	approxKmPerPinStep = 0.01
)

type shippingCarrier interface {
	CheckServiceability(ctx context.Context, originPin, destinationPin string) (*delhivery.Serviceability, error)
	GetCharges(ctx context.Context, originPin, destinationPin string, weightGrams int, paymentType string) (*delhivery.ChargeQuote, error)
	TrackShipment(ctx context.Context, waybill string) (map[string]any, error)
}

type ShippingService struct {
	carrier   shippingCarrier
	cache     cache.Provider
	pickupPin string
	logger    *slog.Logger
}

func NewShippingService(carrier shippingCarrier, cacheProvider cache.Provider, pickupPin string, logger *slog.Logger) *ShippingService {
	return &ShippingService{
		carrier:   carrier,
		cache:     cacheProvider,
		pickupPin: pickupPin,
		logger:    logger,
	}
}

func (s *ShippingService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// ShippingQuote is the locally computed estimate handed to the checkout page.
type ShippingQuote struct {
	PickupPin    string  `json:"pickup_pin"`
	DeliveryPin  string  `json:"delivery_pin"`
	Distance     float64 `json:"distance"`
	Weight       float64 `json:"weight"`
	ShippingCost float64 `json:"shipping_cost"`
}

// Estimate computes the heuristic shipping cost for a weight and lane. When no
// distance is supplied it is approximated from the numeric PIN gap, which is
// crude but stable for repeat quotes on the same lane.
func (s *ShippingService) Estimate(ctx context.Context, deliveryPin string, weightKg float64, distanceKm *float64) (*ShippingQuote, error) {
	if !pinPattern.MatchString(deliveryPin) {
		return nil, ErrInvalidPin
	}
	if weightKg <= 0 || math.IsNaN(weightKg) || math.IsInf(weightKg, 0) {
		return nil, fmt.Errorf("%w: weight", ErrMissingField)
	}

	distance := 0.0
	if distanceKm != nil {
		distance = *distanceKm
	} else {
		distance = s.approximateDistance(deliveryPin)
	}
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil, fmt.Errorf("%w: distance", ErrMissingField)
	}

	cost := baseShippingRate + weightKg*ratePerKg + distance*ratePerKm
	return &ShippingQuote{
		PickupPin:    s.pickupPin,
		DeliveryPin:  deliveryPin,
		Distance:     math.Round(distance*100) / 100,
		Weight:       weightKg,
		ShippingCost: math.Round(cost*100) / 100,
	}, nil
}

func (s *ShippingService) approximateDistance(deliveryPin string) float64 {
	origin, err := strconv.Atoi(s.pickupPin)
	if err != nil {
		return 0
	}
	destination, err := strconv.Atoi(deliveryPin)
	if err != nil {
		return 0
	}
	return math.Abs(float64(destination-origin)) * approxKmPerPinStep
}

// CheckServiceability asks the carrier whether the lane is deliverable,
// caching answers per PIN pair.
func (s *ShippingService) CheckServiceability(ctx context.Context, deliveryPin string) (*delhivery.Serviceability, error) {
	if !pinPattern.MatchString(deliveryPin) {
		return nil, ErrInvalidPin
	}

	logger := s.loggerFromContext(ctx)
	key := cache.ServiceabilityKey(s.pickupPin, deliveryPin)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var result delhivery.Serviceability
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return &result, nil
		}
		logger.Warn("discarding malformed cached serviceability entry", "key", key)
	} else if !errors.Is(err, cache.ErrNotFound) {
		logger.Warn("serviceability cache read failed", "error", err, "key", key)
	}

	result, err := s.carrier.CheckServiceability(ctx, s.pickupPin, deliveryPin)
	if err != nil {
		return nil, fmt.Errorf("serviceability check failed: %w", err)
	}

	if encoded, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded), serviceabilityTTL); err != nil {
			logger.Warn("serviceability cache write failed", "error", err, "key", key)
		}
	}
	return result, nil
}

// Charges returns the carrier's own freight quote for the lane and weight.
func (s *ShippingService) Charges(ctx context.Context, deliveryPin string, weightKg float64, paymentType string) (*delhivery.ChargeQuote, error) {
	if !pinPattern.MatchString(deliveryPin) {
		return nil, ErrInvalidPin
	}
	if weightKg <= 0 {
		return nil, fmt.Errorf("%w: weight", ErrMissingField)
	}

	weightGrams := int(math.Round(weightKg * 1000))
	quote, err := s.carrier.GetCharges(ctx, s.pickupPin, deliveryPin, weightGrams, paymentType)
	if err != nil {
		return nil, fmt.Errorf("charge lookup failed: %w", err)
	}
	return quote, nil
}

// Track returns the carrier's raw tracking payload for a waybill.
func (s *ShippingService) Track(ctx context.Context, waybill string) (map[string]any, error) {
	if waybill == "" {
		return nil, fmt.Errorf("%w: waybill", ErrMissingField)
	}

	payload, err := s.carrier.TrackShipment(ctx, waybill)
	if err != nil {
		return nil, fmt.Errorf("tracking lookup failed: %w", err)
	}
	return payload, nil
}
