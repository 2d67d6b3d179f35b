package payment

import (
	"context"
	"time"
)

// CreateChargeParams is the outbound create-charge request.
type CreateChargeParams struct {
	ExternalReference string
	AmountCents       int64
	CustomerName      string
	CustomerEmail     string
	CustomerDocument  string
	CustomerPhone     string
	Items             []CheckoutItem
}

// ProviderCharge is the provider's view of one charge.
type ProviderCharge struct {
	ID         string
	Status     string
	QRPayload  string
	QRImageURL string
	ExpiresAt  *time.Time
}

// Provider is the outbound boundary to the PIX payment provider. Calls are
// synchronous with no internal retry loop; timeouts surface as
// ErrProviderUnavailable and the reconciliation sweep is the sanctioned
// retry mechanism.
type Provider interface {
	CreateCharge(ctx context.Context, params CreateChargeParams) (*ProviderCharge, error)
	GetCharge(ctx context.Context, chargeID string) (*ProviderCharge, error)
}
