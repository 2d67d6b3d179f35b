package models

import (
	"time"

	"gorm.io/gorm"
)

// WebhookEvent stores provider webhook payloads with deduplication metadata
// for idempotent processing. Rows are append-only; repeat deliveries of the
// same normalized payload collapse onto one row via the unique signature.
type WebhookEvent struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Source           string     `gorm:"type:varchar(20);not null;index" json:"source"`
	ExternalChargeID string     `gorm:"type:varchar(191);not null;index" json:"external_charge_id"`
	EventType        string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON      string     `gorm:"type:longtext;not null" json:"payload_json"`
	Signature        string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_webhook_events_signature" json:"signature"`
	SignatureValid   bool       `gorm:"default:false;index" json:"signature_valid"`
	Processed        bool       `gorm:"default:false;index" json:"processed"`
	ProcessedAt      *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError  string     `gorm:"type:text" json:"processing_error"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CountUnprocessedWebhookEvents counts events that were stored but could not
// be applied to an order yet. Surfaced for operator visibility.
func CountUnprocessedWebhookEvents(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&WebhookEvent{}).Where("processed = ?", false).Count(&n).Error
	return n, err
}
