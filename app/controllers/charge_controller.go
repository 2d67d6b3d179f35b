package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/rodrigomv/ticketpix/app/repository"
	"github.com/rodrigomv/ticketpix/internal/pkg/cache"
	"github.com/rodrigomv/ticketpix/internal/pkg/database"
	"github.com/rodrigomv/ticketpix/internal/pkg/payment"
	"gorm.io/gorm"
)

const chargeStatusCacheTTL = 30 * time.Second

// HandleCreateCharge turns a checkout request into at most one external
// charge. Duplicate submissions with the same derived key return the stored
// charge data unchanged.
func HandleCreateCharge(c *fiber.Ctx) error {
	var req payment.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	order, created, err := svc.CreateCharge(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrValidation):
			return badRequest(c, err.Error())
		case errors.Is(err, payment.ErrDuplicateRequest):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "duplicate_request", "message": "idempotency key reused with a different payload"})
		case errors.Is(err, payment.ErrProviderUnavailable):
			// No order was written; the caller may retry with the same key.
			log.Errorf("[Charge] Provider unavailable: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "provider_unavailable", "retryable": true})
		default:
			log.Errorf("[Charge] Create charge failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
		}
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(newOrderResponse(order))
}

// HandleChargeStatus proxies a provider status check for manual
// diagnostics. The provider answer is cached briefly to spare its rate
// limits.
func HandleChargeStatus(c *fiber.Ctx) error {
	publicID := c.Params("id")
	if publicID == "" {
		return badRequest(c, "order id is required")
	}

	orderRepo := repository.GetGlobalFactory().GetOrderRepository()
	order, err := orderRepo.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	cacheKey := fmt.Sprintf("charge:status:%s", publicID)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	charge, err := svc.CheckCharge(ctx, order)
	if err != nil {
		if errors.Is(err, payment.ErrProviderUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "provider_unavailable"})
		}
		log.Errorf("[Charge] Status check for order %s failed: %v", publicID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_check_failed"})
	}

	body := fiber.Map{
		"order_id":        order.PublicID,
		"order_status":    order.Status,
		"charge_id":       charge.ID,
		"provider_status": charge.Status,
	}
	if raw, err := json.Marshal(body); err == nil {
		_ = cache.Set(cacheKey, string(raw), chargeStatusCacheTTL)
	}
	return c.Status(fiber.StatusOK).JSON(body)
}
