package repository

import (
	"time"

	"github.com/rodrigomv/ticketpix/app/models"
	"gorm.io/gorm"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) CountUnprocessed() (int64, error) {
	return models.CountUnprocessedWebhookEvents(r.db)
}

func (r *webhookEventRepository) ListUnprocessed(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("processed = ?", false).Order("created_at ASC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *webhookEventRepository) ListByChargeID(chargeID string, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("external_charge_id = ?", chargeID).Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *webhookEventRepository) CountSince(since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.WebhookEvent{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}
