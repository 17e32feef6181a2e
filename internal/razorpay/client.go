// Package razorpay wraps the Razorpay orders API and the payment signature
// scheme used to verify checkout confirmations.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/observability"
)

type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: observability.NewHTTPClient(30 * time.Second),
	}
}

// KeyID is the public key identifier, safe to hand to the frontend checkout.
func (c *Client) KeyID() string {
	return c.keyID
}

// GatewayOrder is the gateway-side order a checkout pays against. Amount is
// in paise.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates a payable gateway order. amountPaise must already be in
// the gateway's minor currency unit.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (*GatewayOrder, error) {
	payload, err := json.Marshal(createOrderRequest{
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read razorpay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var decoded gatewayError
		if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Description != "" {
			return nil, fmt.Errorf("razorpay rejected order: %s", decoded.Error.Description)
		}
		return nil, fmt.Errorf("razorpay returned status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay order: %w", err)
	}
	return &order, nil
}
