package payment

import (
	"fmt"
	"strings"

	"github.com/rodrigomv/ticketpix/app/models"
)

// Transition computes the next order status for an observed target status.
// It is the single definition of which transitions are legal, shared by the
// webhook path and the reconciliation sweep.
//
// Rules:
//   - target equal to current is a no-op (replayed events are safe)
//   - terminal states never move to a different status
//   - otherwise the target is applied when the edge is in the table
func Transition(current, target string) (string, error) {
	if current == target {
		return current, nil
	}
	if models.IsTerminalOrderStatus(current) {
		return current, fmt.Errorf("%w: %s -> %s", ErrTransitionRejected, current, target)
	}
	allowed, ok := transitions[current]
	if !ok {
		return current, fmt.Errorf("unknown order status %q", current)
	}
	if _, ok := allowed[target]; !ok {
		return current, fmt.Errorf("illegal transition %s -> %s", current, target)
	}
	return target, nil
}

var transitions = map[string]map[string]struct{}{
	models.OrderStatusCreated: {
		models.OrderStatusAwaitingPayment: {},
		models.OrderStatusPaid:            {},
		models.OrderStatusExpired:         {},
		models.OrderStatusCancelled:       {},
		models.OrderStatusFailed:          {},
	},
	models.OrderStatusAwaitingPayment: {
		models.OrderStatusPaid:      {},
		models.OrderStatusExpired:   {},
		models.OrderStatusCancelled: {},
		models.OrderStatusFailed:    {},
	},
}

// MapProviderStatus maps a provider-reported charge status onto an engine
// status. The provider has used several spellings over time.
func MapProviderStatus(providerStatus string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "pending", "waiting", "awaiting_payment", "created":
		return models.OrderStatusAwaitingPayment, nil
	case "paid", "approved", "confirmed", "completed":
		return models.OrderStatusPaid, nil
	case "expired":
		return models.OrderStatusExpired, nil
	case "cancelled", "canceled":
		return models.OrderStatusCancelled, nil
	case "failed", "rejected", "refused":
		return models.OrderStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, providerStatus)
	}
}
