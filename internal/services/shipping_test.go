package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/cache"
	"github.com/Tamilarasan-gessdemn/green-backend/internal/delhivery"
)

type fakeShippingCarrier struct {
	serviceability      *delhivery.Serviceability
	serviceabilityErr   error
	serviceabilityCalls int

	charges    *delhivery.ChargeQuote
	chargesErr error

	tracking    map[string]any
	trackingErr error
}

func (f *fakeShippingCarrier) CheckServiceability(ctx context.Context, originPin, destinationPin string) (*delhivery.Serviceability, error) {
	f.serviceabilityCalls++
	if f.serviceabilityErr != nil {
		return nil, f.serviceabilityErr
	}
	return f.serviceability, nil
}

func (f *fakeShippingCarrier) GetCharges(ctx context.Context, originPin, destinationPin string, weightGrams int, paymentType string) (*delhivery.ChargeQuote, error) {
	if f.chargesErr != nil {
		return nil, f.chargesErr
	}
	return f.charges, nil
}

func (f *fakeShippingCarrier) TrackShipment(ctx context.Context, waybill string) (map[string]any, error) {
	if f.trackingErr != nil {
		return nil, f.trackingErr
	}
	return f.tracking, nil
}

func newShippingFixture() (*ShippingService, *fakeShippingCarrier, *fakeCache) {
	carrier := &fakeShippingCarrier{}
	cacheProvider := newFakeCache()
	return NewShippingService(carrier, cacheProvider, "600001", nil), carrier, cacheProvider
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	service, _, _ := newShippingFixture()

	t.Run("with explicit distance", func(t *testing.T) {
		t.Parallel()

		quote, err := service.Estimate(context.Background(), "625001", 2, floatPtr(100))
		if err != nil {
			t.Fatalf("Estimate() error = %v", err)
		}
		// 50 base + 2kg*10 + 100km*0.5
		if math.Abs(quote.ShippingCost-120) > 1e-6 {
			t.Errorf("ShippingCost = %v, want 120", quote.ShippingCost)
		}
		if quote.PickupPin != "600001" {
			t.Errorf("PickupPin = %q", quote.PickupPin)
		}
	})

	t.Run("distance approximated from pin gap", func(t *testing.T) {
		t.Parallel()

		quote, err := service.Estimate(context.Background(), "625001", 1, nil)
		if err != nil {
			t.Fatalf("Estimate() error = %v", err)
		}
		// |625001-600001| * 0.01 = 250km → 50 + 10 + 125
		if math.Abs(quote.Distance-250) > 1e-6 {
			t.Errorf("Distance = %v, want 250", quote.Distance)
		}
		if math.Abs(quote.ShippingCost-185) > 1e-6 {
			t.Errorf("ShippingCost = %v, want 185", quote.ShippingCost)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()

		if _, err := service.Estimate(context.Background(), "6250", 1, nil); !errors.Is(err, ErrInvalidPin) {
			t.Errorf("short pin error = %v, want ErrInvalidPin", err)
		}
		if _, err := service.Estimate(context.Background(), "625001", 0, nil); !errors.Is(err, ErrMissingField) {
			t.Errorf("zero weight error = %v, want ErrMissingField", err)
		}
		if _, err := service.Estimate(context.Background(), "625001", 1, floatPtr(math.Inf(1))); !errors.Is(err, ErrMissingField) {
			t.Errorf("infinite distance error = %v, want ErrMissingField", err)
		}
	})
}

func TestCheckServiceability(t *testing.T) {
	t.Parallel()

	t.Run("caches carrier answers per lane", func(t *testing.T) {
		t.Parallel()

		service, carrier, _ := newShippingFixture()
		carrier.serviceability = &delhivery.Serviceability{Deliverable: true, ExpectedDays: 3}

		first, err := service.CheckServiceability(context.Background(), "625001")
		if err != nil {
			t.Fatalf("CheckServiceability() error = %v", err)
		}
		second, err := service.CheckServiceability(context.Background(), "625001")
		if err != nil {
			t.Fatalf("CheckServiceability() error = %v", err)
		}

		if carrier.serviceabilityCalls != 1 {
			t.Errorf("carrier calls = %d, want 1 (second lookup served from cache)", carrier.serviceabilityCalls)
		}
		if !first.Deliverable || !second.Deliverable || second.ExpectedDays != 3 {
			t.Errorf("results = %+v / %+v", first, second)
		}
	})

	t.Run("malformed cache entry falls through to the carrier", func(t *testing.T) {
		t.Parallel()

		service, carrier, cacheProvider := newShippingFixture()
		carrier.serviceability = &delhivery.Serviceability{Deliverable: false}
		cacheProvider.values[cache.ServiceabilityKey("600001", "625001")] = "{not json"

		result, err := service.CheckServiceability(context.Background(), "625001")
		if err != nil {
			t.Fatalf("CheckServiceability() error = %v", err)
		}
		if result.Deliverable {
			t.Error("expected fresh carrier answer, not the corrupt cache entry")
		}
		if carrier.serviceabilityCalls != 1 {
			t.Errorf("carrier calls = %d, want 1", carrier.serviceabilityCalls)
		}
	})

	t.Run("carrier fault surfaces", func(t *testing.T) {
		t.Parallel()

		service, carrier, _ := newShippingFixture()
		carrier.serviceabilityErr = errors.New("upstream timeout")

		if _, err := service.CheckServiceability(context.Background(), "625001"); err == nil {
			t.Fatal("expected error from carrier fault")
		}
	})
}

func TestCharges(t *testing.T) {
	t.Parallel()

	service, carrier, _ := newShippingFixture()
	carrier.charges = &delhivery.ChargeQuote{TotalAmount: 86.5, GrossAmount: 73.0}

	quote, err := service.Charges(context.Background(), "625001", 1.5, "Pre-paid")
	if err != nil {
		t.Fatalf("Charges() error = %v", err)
	}
	if quote.TotalAmount != 86.5 {
		t.Errorf("TotalAmount = %v", quote.TotalAmount)
	}

	if _, err := service.Charges(context.Background(), "625001", 0, ""); !errors.Is(err, ErrMissingField) {
		t.Errorf("zero weight error = %v, want ErrMissingField", err)
	}
}

func TestTrack(t *testing.T) {
	t.Parallel()

	service, carrier, _ := newShippingFixture()
	carrier.tracking = map[string]any{"ShipmentData": []any{map[string]any{"Shipment": map[string]any{"Status": "In Transit"}}}}

	payload, err := service.Track(context.Background(), "WB123")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if _, ok := payload["ShipmentData"]; !ok {
		t.Errorf("payload = %v", payload)
	}

	if _, err := service.Track(context.Background(), ""); !errors.Is(err, ErrMissingField) {
		t.Errorf("empty waybill error = %v, want ErrMissingField", err)
	}
}
