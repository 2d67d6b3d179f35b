package constants

// Static route constants
const (
	ChargesRoute         = "/charges"
	ChargeStatusRoute    = "/charges/:id/status"
	ProviderWebhookRoute = "/webhooks/provider"
	ReconcileRoute       = "/reconcile"
	StatsRoute           = "/stats"
)
