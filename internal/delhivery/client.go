// Package delhivery wraps the Delhivery logistics API: shipment manifest
// creation, cancellation, tracking, serviceability and charge lookups.
package delhivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/observability"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: observability.NewHTTPClient(30 * time.Second),
	}
}

// ShipmentRequest is one shipment descriptor in the manifest payload. All
// numeric fields the carrier expects as strings are strings here.
type ShipmentRequest struct {
	Name    string `json:"name"`
	Address string `json:"add"`
	Pin     string `json:"pin"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Phone   string `json:"phone"`

	Order string `json:"order"`

	PaymentMode string  `json:"payment_mode"`
	CODAmount   float64 `json:"cod_amount"`
	TotalAmount float64 `json:"total_amount"`

	ProductsDesc string `json:"products_desc"`
	HSNCode      string `json:"hsn_code"`

	SellerName    string `json:"seller_name"`
	SellerAddress string `json:"seller_add"`
	SellerInvoice string `json:"seller_inv"`

	ReturnName    string `json:"return_name"`
	ReturnAddress string `json:"return_add"`
	ReturnPin     string `json:"return_pin"`
	ReturnCity    string `json:"return_city"`
	ReturnState   string `json:"return_state"`
	ReturnCountry string `json:"return_country"`
	ReturnPhone   string `json:"return_phone"`

	Quantity int `json:"quantity"`

	Waybill string `json:"waybill"`

	ShipmentWidth  string `json:"shipment_width"`
	ShipmentHeight string `json:"shipment_height"`
	ShipmentLength string `json:"shipment_length"`

	Weight string `json:"weight"`

	ShippingMode string `json:"shipping_mode"`
	AddressType  string `json:"address_type"`
}

type manifestPayload struct {
	Shipments      []ShipmentRequest `json:"shipments"`
	PickupLocation pickupLocation    `json:"pickup_location"`
}

type pickupLocation struct {
	Name string `json:"name"`
}

type manifestResponse struct {
	Success  bool             `json:"success"`
	Remark   string           `json:"rmk"`
	Packages []packagePayload `json:"packages"`
}

type packagePayload struct {
	Waybill string   `json:"waybill"`
	Status  string   `json:"status"`
	Remarks []string `json:"remarks"`
}

// BookingResult is the business outcome of a manifest attempt. Success=false
// with a remark is a carrier rejection, not a transport fault.
type BookingResult struct {
	Success bool
	Waybill string
	Remark  string
	Raw     map[string]any
}

// CreateShipment manifests one shipment. The carrier expects a form-encoded
// POST whose data field is the JSON payload as a string.
func (c *Client) CreateShipment(ctx context.Context, shipment ShipmentRequest, pickupName string) (*BookingResult, error) {
	payload := manifestPayload{
		Shipments:      []ShipmentRequest{shipment},
		PickupLocation: pickupLocation{Name: pickupName},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest payload: %w", err)
	}

	form := url.Values{}
	form.Set("format", "json")
	form.Set("data", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/cmu/create.json", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var decoded manifestResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode manifest response: %w", err)
	}

	result := &BookingResult{
		Success: decoded.Success,
		Remark:  decoded.Remark,
	}
	if len(decoded.Packages) > 0 {
		pkg := decoded.Packages[0]
		result.Waybill = pkg.Waybill
		if result.Remark == "" && len(pkg.Remarks) > 0 {
			result.Remark = strings.Join(pkg.Remarks, "; ")
		}
	}
	if result.Success && result.Waybill == "" {
		result.Success = false
		if result.Remark == "" {
			result.Remark = "carrier returned no waybill"
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		result.Raw = raw
	}

	return result, nil
}

// CancelResult is the business outcome of a cancellation attempt.
type CancelResult struct {
	Success bool
	Message string
}

type cancelResponse struct {
	Status  bool   `json:"status"`
	Success bool   `json:"success"`
	Remark  string `json:"rmk"`
}

// CancelShipment asks the carrier to cancel an existing waybill.
func (c *Client) CancelShipment(ctx context.Context, waybill string) (*CancelResult, error) {
	payload, err := json.Marshal(map[string]string{
		"waybill":      waybill,
		"cancellation": "true",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/p/edit", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var decoded cancelResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode cancel response: %w", err)
	}

	return &CancelResult{
		Success: decoded.Status || decoded.Success,
		Message: decoded.Remark,
	}, nil
}

// TrackShipment returns the raw tracking payload for a waybill.
func (c *Client) TrackShipment(ctx context.Context, waybill string) (map[string]any, error) {
	endpoint := c.baseURL + "/api/v1/packages/json/?waybill=" + url.QueryEscape(waybill)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}
	return decoded, nil
}

// Serviceability is the expected-TAT answer for a PIN pair.
type Serviceability struct {
	Deliverable  bool `json:"deliverable"`
	ExpectedDays int  `json:"expected_days"`
}

type expectedTATResponse struct {
	ExpectedTAT []struct {
		Delivery string `json:"delivery"`
		TAT      int    `json:"tat"`
	} `json:"expected_tat"`
}

// CheckServiceability asks the carrier whether a PIN pair is deliverable and
// in how many days. Mode of transport defaults to express.
func (c *Client) CheckServiceability(ctx context.Context, originPin, destinationPin string) (*Serviceability, error) {
	params := url.Values{}
	params.Set("origin_pin", originPin)
	params.Set("destination_pin", destinationPin)
	params.Set("mot", "E")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/dc/expected_tat?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var decoded expectedTATResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode expected_tat response: %w", err)
	}

	result := &Serviceability{}
	if len(decoded.ExpectedTAT) > 0 && decoded.ExpectedTAT[0].Delivery == "Y" {
		result.Deliverable = true
		result.ExpectedDays = decoded.ExpectedTAT[0].TAT
	}
	return result, nil
}

// ChargeQuote is the carrier's freight charge for a lane and weight.
type ChargeQuote struct {
	TotalAmount float64        `json:"total_amount"`
	GrossAmount float64        `json:"gross_amount"`
	Breakdown   map[string]any `json:"breakdown,omitempty"`
}

type chargesResponse struct {
	Success bool `json:"success"`
	Charges []struct {
		TotalAmount float64        `json:"total_amount"`
		GrossAmount float64        `json:"gross_amount"`
		TaxData     map[string]any `json:"tax_data"`
	} `json:"charges"`
}

// GetCharges queries the carrier invoice-charges API. Weight is in grams.
func (c *Client) GetCharges(ctx context.Context, originPin, destinationPin string, weightGrams int, paymentType string) (*ChargeQuote, error) {
	if paymentType == "" {
		paymentType = "Pre-paid"
	}

	params := url.Values{}
	params.Set("md", "E")
	params.Set("ss", "Delivered")
	params.Set("o_pin", originPin)
	params.Set("d_pin", destinationPin)
	params.Set("cgm", strconv.Itoa(weightGrams))
	params.Set("pt", paymentType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/kinko/v1/invoice/charges/.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var decoded chargesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode charges response: %w", err)
	}
	if !decoded.Success || len(decoded.Charges) == 0 {
		return nil, fmt.Errorf("carrier returned no charges for lane %s -> %s", originPin, destinationPin)
	}

	charge := decoded.Charges[0]
	return &ChargeQuote{
		TotalAmount: charge.TotalAmount,
		GrossAmount: charge.GrossAmount,
		Breakdown:   charge.TaxData,
	}, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Token "+c.apiKey)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("delhivery request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read delhivery response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("delhivery returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
