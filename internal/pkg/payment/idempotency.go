package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DeriveIdempotencyKey turns a checkout request into a stable key. Two
// requests describing the same logical purchase produce the same key even
// when items arrive in a different order or the email carries different
// case/whitespace. The key doubles as the external reference handed to the
// provider, so its idempotent-creation semantics line up with ours.
func DeriveIdempotencyKey(req *CheckoutRequest) string {
	email := strings.ToLower(strings.TrimSpace(req.CustomerEmail))

	items := make([]CheckoutItem, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		if items[i].EventID != items[j].EventID {
			return items[i].EventID < items[j].EventID
		}
		return items[i].TicketType < items[j].TicketType
	})

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s:%d:%d", strings.TrimSpace(item.Name), item.Quantity, item.UnitPriceCents))
	}

	payload := fmt.Sprintf("%s|%d|%s", email, req.AmountCents, strings.Join(parts, ";"))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
