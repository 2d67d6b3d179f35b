package payment

import "errors"

var (
	// ErrProviderUnavailable wraps network errors, 5xx responses and
	// malformed bodies from the payment provider. No order is persisted
	// when it occurs, so the caller can retry with the same key.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrDuplicateRequest means an idempotency key was reused with a
	// materially different payload.
	ErrDuplicateRequest = errors.New("idempotency key reused with different payload")

	// ErrValidation covers bad request shapes and amounts that do not
	// reconcile with their items.
	ErrValidation = errors.New("invalid checkout request")

	// ErrWebhookMalformed means the webhook payload could not be parsed
	// into any known provider shape.
	ErrWebhookMalformed = errors.New("webhook payload malformed")

	// ErrTransitionRejected means an event tried to move a terminal
	// order status. It is absorbed, never surfaced to callers.
	ErrTransitionRejected = errors.New("transition rejected: status is terminal")

	// ErrUnknownStatus means a provider reported a status the engine
	// cannot map.
	ErrUnknownStatus = errors.New("unknown provider status")
)
