package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rodrigomv/ticketpix/app/models"
)

var validate = validator.New()

// orderResponse is the wire shape shared by the charge endpoints.
type orderResponse struct {
	OrderID   string  `json:"order_id"`
	ChargeID  string  `json:"charge_id"`
	Status    string  `json:"status"`
	QRPayload string  `json:"qr_payload"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		OrderID:   order.PublicID,
		Status:    order.Status,
		QRPayload: order.QRPayload,
	}
	if order.ExternalChargeID != nil {
		resp.ChargeID = *order.ExternalChargeID
	}
	if order.ExpiresAt != nil {
		ts := order.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &ts
	}
	return resp
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}
