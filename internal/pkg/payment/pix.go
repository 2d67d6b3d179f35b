package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rodrigomv/ticketpix/internal/pkg/env"
)

const defaultPixAPIBaseURL = "https://api.pix-gateway.example.com/v1"

// PixClient talks to the external PIX payment provider. Two endpoints are
// used: create-charge and check-status, both bearer-token authenticated.
type PixClient struct {
	APIBaseURL string
	APIToken   string

	HTTPClient *http.Client
}

// NewPixClientFromEnv builds a client from PIX_API_BASE_URL / PIX_API_TOKEN.
func NewPixClientFromEnv() *PixClient {
	return &PixClient{
		APIBaseURL: strings.TrimRight(env.GetEnv("PIX_API_BASE_URL", defaultPixAPIBaseURL), "/"),
		APIToken:   strings.TrimSpace(env.GetEnv("PIX_API_TOKEN", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type pixChargeRequest struct {
	ExternalReference string          `json:"external_reference"`
	AmountCents       int64           `json:"amount"`
	Customer          pixCustomer     `json:"customer"`
	Items             []pixChargeItem `json:"items"`
}

type pixCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type pixChargeItem struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	AmountCents int64  `json:"amount"`
}

type pixChargeResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	QRPayload  string `json:"br_code"`
	QRImageURL string `json:"br_code_base64_url"`
	ExpiresAt  string `json:"expires_at"`
}

// CreateCharge creates one PIX charge. The external reference is the
// derived idempotency key, so provider-side idempotent creation lines up
// with ours.
func (c *PixClient) CreateCharge(ctx context.Context, params CreateChargeParams) (*ProviderCharge, error) {
	if strings.TrimSpace(c.APIToken) == "" {
		return nil, errors.New("PIX_API_TOKEN is not configured")
	}

	items := make([]pixChargeItem, 0, len(params.Items))
	for _, item := range params.Items {
		items = append(items, pixChargeItem{
			Name:        item.Name,
			Quantity:    item.Quantity,
			AmountCents: item.UnitPriceCents,
		})
	}

	body, err := json.Marshal(pixChargeRequest{
		ExternalReference: params.ExternalReference,
		AmountCents:       params.AmountCents,
		Customer: pixCustomer{
			Name:     strings.TrimSpace(params.CustomerName),
			Email:    strings.TrimSpace(params.CustomerEmail),
			Document: strings.TrimSpace(params.CustomerDocument),
			Phone:    strings.TrimSpace(params.CustomerPhone),
		},
		Items: items,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.doChargeRequest(req, "create charge")
}

// GetCharge fetches the provider truth for one charge id.
func (c *PixClient) GetCharge(ctx context.Context, chargeID string) (*ProviderCharge, error) {
	if strings.TrimSpace(c.APIToken) == "" {
		return nil, errors.New("PIX_API_TOKEN is not configured")
	}
	id := strings.TrimSpace(chargeID)
	if id == "" {
		return nil, errors.New("charge id is required")
	}

	u, err := url.Parse(c.APIBaseURL + "/charges/status")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Accept", "application/json")

	return c.doChargeRequest(req, "check status")
}

func (c *PixClient) doChargeRequest(req *http.Request, op string) (*ProviderCharge, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, op, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s: status=%d body=%s", ErrProviderUnavailable, op, resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pix %s failed: status=%d body=%s", op, resp.StatusCode, string(body))
	}

	var out pixChargeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed response: %v", ErrProviderUnavailable, op, err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, fmt.Errorf("%w: %s: response missing charge id", ErrProviderUnavailable, op)
	}

	charge := &ProviderCharge{
		ID:         strings.TrimSpace(out.ID),
		Status:     strings.TrimSpace(out.Status),
		QRPayload:  out.QRPayload,
		QRImageURL: out.QRImageURL,
	}
	if ts := strings.TrimSpace(out.ExpiresAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			charge.ExpiresAt = &t
		}
	}
	return charge, nil
}
