package payment

import (
	"fmt"
	"time"

	"github.com/rodrigomv/ticketpix/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the payment service. All
// correctness under concurrency lives here: unique-key inserts, conditional
// status writes and the atomic ticket issuance check.
type Repository interface {
	CreateOrderIfAbsent(order *models.Order) (bool, *models.Order, error)
	FindOrderByIdempotencyKey(key string) (*models.Order, error)
	FindOrderByExternalChargeID(chargeID string) (*models.Order, error)
	FindOrderByPublicID(publicID string) (*models.Order, error)
	RebindFailedOrder(orderID uint, charge *ProviderCharge) error
	UpdateOrderStatusIf(orderID uint, fromStatus, toStatus string) (bool, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	ListPendingOrders(olderThan time.Time, limit int) ([]models.Order, error)
	ListPaidOrdersWithoutTickets(limit int) ([]models.Order, error)
	IssueTicketsOnce(order *models.Order) (int, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateOrderIfAbsent inserts the order and its items in one transaction.
// The unique constraint on idempotency_key collapses concurrent duplicate
// submissions onto one row; the loser reads back the winner's order.
//
// The order row is inserted with associations omitted: under OnConflict
// DoNothing a conflicting insert affects zero rows, and saving the Items
// association in that case would write orphan order_items with a zero
// order id. Items are inserted explicitly, only for the winner.
func (r *gormRepository) CreateOrderIfAbsent(order *models.Order) (bool, *models.Order, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(order)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the duplicate-submission race; nothing of ours is
			// written.
			return nil
		}
		created = true

		if len(order.Items) == 0 {
			return nil
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		return tx.Create(&order.Items).Error
	})
	if err != nil {
		return false, nil, err
	}

	stored, err := models.FindOrderByIdempotencyKey(r.db, order.IdempotencyKey)
	if err != nil {
		return false, nil, err
	}
	return created, stored, nil
}

func (r *gormRepository) FindOrderByIdempotencyKey(key string) (*models.Order, error) {
	return models.FindOrderByIdempotencyKey(r.db, key)
}

func (r *gormRepository) FindOrderByExternalChargeID(chargeID string) (*models.Order, error) {
	return models.FindOrderByExternalChargeID(r.db, chargeID)
}

func (r *gormRepository) FindOrderByPublicID(publicID string) (*models.Order, error) {
	return models.FindOrderByPublicID(r.db, publicID)
}

// RebindFailedOrder attaches a fresh provider charge to an order whose
// previous charge failed. Only a failed order may be rebound.
func (r *gormRepository) RebindFailedOrder(orderID uint, charge *ProviderCharge) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusFailed).
		Updates(map[string]interface{}{
			"external_charge_id": charge.ID,
			"qr_payload":         charge.QRPayload,
			"qr_image_url":       charge.QRImageURL,
			"expires_at":         charge.ExpiresAt,
			"status":             models.OrderStatusAwaitingPayment,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %d is no longer failed", orderID)
	}
	return nil
}

// UpdateOrderStatusIf applies a conditional status write. A transition
// computed against a stale read affects zero rows instead of overwriting a
// newer status.
func (r *gormRepository) UpdateOrderStatusIf(orderID uint, fromStatus, toStatus string) (bool, error) {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, fromStatus).
		Update("status", toStatus)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateWebhookEventIfNotExists persists a delivery before processing it.
// The unique signature makes repeat deliveries insert nothing.
func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signature"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("signature = ?", event.Signature).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed":        processingError == "",
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// ListPendingOrders selects orders in non-terminal status created before
// the grace cutoff, oldest first.
func (r *gormRepository) ListPendingOrders(olderThan time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Where("status IN ? AND created_at < ?",
			[]string{models.OrderStatusCreated, models.OrderStatusAwaitingPayment}, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// ListPaidOrdersWithoutTickets finds paid orders whose fulfillment failed,
// for re-issuance by the sweep.
func (r *gormRepository) ListPaidOrdersWithoutTickets(limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("status = ?", models.OrderStatusPaid).
		Where("NOT EXISTS (SELECT 1 FROM tickets WHERE tickets.order_id = orders.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// IssueTicketsOnce expands ticket-bearing items into ticket rows exactly
// once. The whole operation runs in one transaction holding a row lock on
// the order, so a webhook and a reconciliation pass racing on the same PAID
// transition cannot both insert.
func (r *gormRepository) IssueTicketsOnce(order *models.Order) (int, error) {
	issued := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var locked models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, order.ID).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Ticket{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}

		for _, item := range items {
			if !item.IsTicketBearing() {
				continue
			}

			// Seat numbers are sequential per event. The MAX read locks
			// the event's seat range so two different orders for the
			// same event cannot compute the same next seat.
			var maxSeat int
			row := tx.Model(&models.Ticket{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("event_id = ?", *item.EventID).
				Select("COALESCE(MAX(seat_number), 0)").
				Row()
			if err := row.Scan(&maxSeat); err != nil {
				return err
			}

			for i := 0; i < item.Quantity; i++ {
				ticket := models.Ticket{
					OrderID:    order.ID,
					EventID:    *item.EventID,
					SeatNumber: maxSeat + i + 1,
					TicketType: item.TicketType,
					Status:     models.TicketStatusIssued,
				}
				if err := tx.Create(&ticket).Error; err != nil {
					return err
				}
				issued++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return issued, nil
}
