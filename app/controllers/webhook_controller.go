package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/rodrigomv/ticketpix/internal/pkg/database"
	"github.com/rodrigomv/ticketpix/internal/pkg/metrics/counter"
	"github.com/rodrigomv/ticketpix/internal/pkg/payment"
)

// HandleProviderWebhook receives push notifications from the payment
// provider. Delivery is at-least-once and possibly out of order; every
// outcome except an unparsable payload is acknowledged with 200 so the
// provider's retry policy is never driven by our internal errors.
func HandleProviderWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Webhook-Signature"))

	counter.Incr(counter.WebhooksReceived)

	svc := payment.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := svc.IngestWebhook(ctx, rawBody, signature)
	if err != nil {
		if errors.Is(err, payment.ErrWebhookMalformed) {
			counter.Incr(counter.WebhooksMalformed)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}
		// Persisting the event failed; acknowledge anyway. The next
		// reconciliation sweep corrects any drift.
		log.Errorf("[Webhook] Ingest failed: %v", err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "deferred": true})
	}

	if result.Duplicate {
		counter.Incr(counter.WebhooksDuplicate)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if result.Processed {
		counter.Incr(counter.WebhooksProcessed)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
