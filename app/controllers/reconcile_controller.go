package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/rodrigomv/ticketpix/app/repository"
	"github.com/rodrigomv/ticketpix/internal/pkg/metrics/counter"
	"github.com/rodrigomv/ticketpix/internal/pkg/reconcile"
)

// HandleReconcile triggers one reconciliation sweep through the same code
// path the scheduler uses.
func HandleReconcile(c *fiber.Ctx) error {
	summary, err := reconcile.RunSweep()
	if err != nil {
		log.Errorf("[Reconcile] Manual sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep_failed"})
	}
	if summary == nil {
		// Another process holds the sweep lock.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "sweep_already_running"})
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

// HandleStats exposes engine counters and unprocessed-event visibility for
// operators.
func HandleStats(c *fiber.Ctx) error {
	webhookRepo := repository.GetGlobalFactory().GetWebhookEventRepository()
	unprocessed, err := webhookRepo.CountUnprocessed()
	if err != nil {
		log.Errorf("[Stats] Counting unprocessed webhook events failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"counters":             counter.Snapshot(),
		"unprocessed_webhooks": unprocessed,
	})
}
