package payment

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func TestParseWebhookEvent_CurrentShape(t *testing.T) {
	raw := []byte(`{
		"event": "charge.paid",
		"data": {
			"id": "ch_123",
			"status": "PAID",
			"amount": 15000,
			"occurred_at": "2025-06-01T12:00:00Z"
		}
	}`)

	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ChargeID != "ch_123" || ev.Status != "PAID" || ev.AmountCents != 15000 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.EventType != "charge.paid" {
		t.Fatalf("unexpected event type %q", ev.EventType)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Fatalf("unexpected occurred_at %v", ev.OccurredAt)
	}
}

func TestParseWebhookEvent_LegacyShape(t *testing.T) {
	raw := []byte(`{
		"notification_type": "charge_status",
		"charge_id": "ch_123",
		"status": "PAID",
		"value": 15000,
		"timestamp": "2025-06-01 12:00:00"
	}`)

	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ChargeID != "ch_123" || ev.Status != "PAID" || ev.AmountCents != 15000 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseWebhookEvent_BothShapesHashIdentically(t *testing.T) {
	current := []byte(`{"event":"charge.paid","data":{"id":"ch_1","status":"PAID","amount":100,"occurred_at":"2025-06-01T12:00:00Z"}}`)
	legacy := []byte(`{"notification_type":"charge.paid","charge_id":"ch_1","status":"paid","value":100,"timestamp":"2025-06-01T12:00:00Z"}`)

	evCurrent, err := ParseWebhookEvent(current)
	if err != nil {
		t.Fatalf("current shape: %v", err)
	}
	evLegacy, err := ParseWebhookEvent(legacy)
	if err != nil {
		t.Fatalf("legacy shape: %v", err)
	}

	if EventSignature(evCurrent) != EventSignature(evLegacy) {
		t.Fatalf("same logical event hashed differently across shapes")
	}
}

func TestParseWebhookEvent_Malformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"data":{"status":"PAID"}}`),
		[]byte(`{"charge_id":"","status":"PAID"}`),
		[]byte(`{}`),
	}

	for _, raw := range cases {
		if _, err := ParseWebhookEvent(raw); !errors.Is(err, ErrWebhookMalformed) {
			t.Fatalf("payload %s: expected ErrWebhookMalformed, got %v", raw, err)
		}
	}
}

func TestEventSignature_DiffersPerStatus(t *testing.T) {
	paid := &PaymentEvent{ChargeID: "ch_1", Status: "PAID", AmountCents: 100}
	expired := &PaymentEvent{ChargeID: "ch_1", Status: "EXPIRED", AmountCents: 100}

	if EventSignature(paid) == EventSignature(expired) {
		t.Fatalf("different statuses produced the same signature")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"foo":"bar"}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatalf("expected sha256 signature to validate")
	}

	macMD5 := hmac.New(md5.New, []byte(secret))
	macMD5.Write(payload)
	validMD5 := hex.EncodeToString(macMD5.Sum(nil))
	if !VerifyWebhookSignature(payload, validMD5, secret) {
		t.Fatalf("expected md5 fallback signature to validate")
	}

	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "") {
		t.Fatalf("expected empty secret to fail verification")
	}
}
