package counter

import (
	"context"
	"strconv"

	"github.com/rodrigomv/ticketpix/internal/pkg/cache"
)

const (
	WebhooksReceived  = "payment:counters:webhooks_received"
	WebhooksDuplicate = "payment:counters:webhooks_duplicate"
	WebhooksProcessed = "payment:counters:webhooks_processed"
	WebhooksMalformed = "payment:counters:webhooks_malformed"
	SweepsRun         = "payment:counters:sweeps_run"
	SweepOrdersMoved  = "payment:counters:sweep_orders_moved"
)

// Incr bumps a pending counter in Redis. Counting is best-effort; a cache
// outage must never fail the payment path.
func Incr(key string) {
	ctx := context.Background()
	_ = cache.GetClient().Incr(ctx, key).Err()
}

// IncrBy bumps a counter by n.
func IncrBy(key string, n int64) {
	if n == 0 {
		return
	}
	ctx := context.Background()
	_ = cache.GetClient().IncrBy(ctx, key, n).Err()
}

// Snapshot reads all payment counters for the stats endpoint.
func Snapshot() map[string]int64 {
	ctx := context.Background()
	rdb := cache.GetClient()

	keys := []string{
		WebhooksReceived,
		WebhooksDuplicate,
		WebhooksProcessed,
		WebhooksMalformed,
		SweepsRun,
		SweepOrdersMoved,
	}

	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		val, err := rdb.Get(ctx, key).Result()
		if err != nil {
			out[shortName(key)] = 0
			continue
		}
		n, _ := strconv.ParseInt(val, 10, 64)
		out[shortName(key)] = n
	}
	return out
}

func shortName(key string) string {
	// "payment:counters:webhooks_received" -> "webhooks_received"
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return key
}
