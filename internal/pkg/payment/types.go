package payment

import "time"

const ProviderSourcePix = "pix"

// CheckoutItem is one line of a checkout request. Ticket items carry an
// event id and ticket type; merchandise items leave them empty.
type CheckoutItem struct {
	Name           string `json:"name" validate:"required,max=255"`
	EventID        uint   `json:"event_id,omitempty"`
	TicketType     string `json:"ticket_type,omitempty" validate:"max=100"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"required,gt=0"`
}

// CheckoutRequest is the engine-facing shape of POST /charges.
type CheckoutRequest struct {
	CustomerName     string         `json:"customer_name" validate:"required,max=255"`
	CustomerEmail    string         `json:"customer_email" validate:"required,email"`
	CustomerDocument string         `json:"customer_document,omitempty" validate:"max=20"`
	CustomerPhone    string         `json:"customer_phone,omitempty" validate:"max=32"`
	AmountCents      int64          `json:"amount_cents" validate:"required,gt=0"`
	Items            []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	IdempotencyKey   string         `json:"idempotency_key,omitempty" validate:"omitempty,max=64"`
}

// TotalCents sums the line totals.
func (r *CheckoutRequest) TotalCents() int64 {
	var total int64
	for _, item := range r.Items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	return total
}

// PaymentEvent is the canonical internal event both webhook generations and
// reconciliation polls normalize into before touching the state machine.
type PaymentEvent struct {
	ChargeID    string
	Status      string
	AmountCents int64
	OccurredAt  time.Time
	EventType   string
}

// SweepSummary reports one reconciliation pass.
type SweepSummary struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
	Reissued int `json:"reissued"`
}

// SweepOptions bounds one reconciliation pass.
type SweepOptions struct {
	GraceWindow time.Duration
	BatchSize   int
}

// IngestResult describes what happened to one webhook delivery.
type IngestResult struct {
	Duplicate     bool
	Processed     bool
	OrderPublicID string
	Status        string
}
