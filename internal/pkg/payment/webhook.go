package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseWebhookEvent normalizes a provider webhook payload into a
// PaymentEvent. The provider has emitted two payload generations for the
// same notifications; both are accepted here so the state machine stays
// shape-agnostic.
//
// Current shape:
//
//	{"event":"charge.paid","data":{"id":"ch_1","status":"PAID","amount":1000,"occurred_at":"..."}}
//
// Legacy shape:
//
//	{"notification_type":"charge_status","charge_id":"ch_1","status":"PAID","value":1000,"timestamp":"..."}
func ParseWebhookEvent(raw []byte) (*PaymentEvent, error) {
	var current struct {
		Event string `json:"event"`
		Data  struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			Amount     int64  `json:"amount"`
			OccurredAt string `json:"occurred_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &current); err == nil && strings.TrimSpace(current.Data.ID) != "" {
		return &PaymentEvent{
			ChargeID:    strings.TrimSpace(current.Data.ID),
			Status:      strings.TrimSpace(current.Data.Status),
			AmountCents: current.Data.Amount,
			OccurredAt:  parseEventTime(current.Data.OccurredAt),
			EventType:   strings.TrimSpace(current.Event),
		}, nil
	}

	var legacy struct {
		NotificationType string `json:"notification_type"`
		ChargeID         string `json:"charge_id"`
		Status           string `json:"status"`
		Value            int64  `json:"value"`
		Timestamp        string `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookMalformed, err)
	}
	if strings.TrimSpace(legacy.ChargeID) == "" || strings.TrimSpace(legacy.Status) == "" {
		return nil, fmt.Errorf("%w: missing charge id or status", ErrWebhookMalformed)
	}

	eventType := strings.TrimSpace(legacy.NotificationType)
	if eventType == "" {
		eventType = "charge_status"
	}
	return &PaymentEvent{
		ChargeID:    strings.TrimSpace(legacy.ChargeID),
		Status:      strings.TrimSpace(legacy.Status),
		AmountCents: legacy.Value,
		OccurredAt:  parseEventTime(legacy.Timestamp),
		EventType:   eventType,
	}, nil
}

// EventSignature computes the dedup signature over the normalized event.
// Repeat deliveries of the same logical notification hash identically even
// when the raw bytes differ between payload generations.
func EventSignature(ev *PaymentEvent) string {
	payload := fmt.Sprintf("%s|%s|%d|%d",
		ev.ChargeID,
		strings.ToLower(strings.TrimSpace(ev.Status)),
		ev.AmountCents,
		ev.OccurredAt.UTC().Unix(),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func parseEventTime(ts string) time.Time {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
