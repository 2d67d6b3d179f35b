package payment

import "testing"

func baseRequest() *CheckoutRequest {
	return &CheckoutRequest{
		CustomerName:  "Ana Souza",
		CustomerEmail: "ana@example.com",
		AmountCents:   15000,
		Items: []CheckoutItem{
			{Name: "Main Stage - General", EventID: 1, TicketType: "general", Quantity: 2, UnitPriceCents: 5000},
			{Name: "Tour Shirt", Quantity: 1, UnitPriceCents: 5000},
		},
	}
}

func TestDeriveIdempotencyKey_Deterministic(t *testing.T) {
	a := DeriveIdempotencyKey(baseRequest())
	b := DeriveIdempotencyKey(baseRequest())
	if a != b {
		t.Fatalf("same request produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a sha256 hex key, got %q", a)
	}
}

func TestDeriveIdempotencyKey_ItemOrderInvariant(t *testing.T) {
	reordered := baseRequest()
	reordered.Items[0], reordered.Items[1] = reordered.Items[1], reordered.Items[0]

	if DeriveIdempotencyKey(baseRequest()) != DeriveIdempotencyKey(reordered) {
		t.Fatalf("item order changed the derived key")
	}
}

func TestDeriveIdempotencyKey_EmailNormalization(t *testing.T) {
	shouted := baseRequest()
	shouted.CustomerEmail = "  ANA@Example.COM "

	if DeriveIdempotencyKey(baseRequest()) != DeriveIdempotencyKey(shouted) {
		t.Fatalf("email case/whitespace changed the derived key")
	}
}

func TestDeriveIdempotencyKey_DifferentPurchasesDiffer(t *testing.T) {
	base := DeriveIdempotencyKey(baseRequest())

	moreShirts := baseRequest()
	moreShirts.Items[1].Quantity = 2
	moreShirts.AmountCents = 20000
	if DeriveIdempotencyKey(moreShirts) == base {
		t.Fatalf("different quantities produced the same key")
	}

	otherCustomer := baseRequest()
	otherCustomer.CustomerEmail = "bruno@example.com"
	if DeriveIdempotencyKey(otherCustomer) == base {
		t.Fatalf("different customers produced the same key")
	}
}
