package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusCreated         = "created"
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusPaid            = "paid"
	OrderStatusExpired         = "expired"
	OrderStatusCancelled       = "cancelled"
	OrderStatusFailed          = "failed"
)

// Order is one logical checkout attempt. The idempotency key uniquely
// identifies it; at most one row exists per key. Rows are never deleted.
type Order struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	PublicID         string      `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"public_id"`
	IdempotencyKey   string      `gorm:"type:varchar(64);uniqueIndex:ux_orders_idempotency_key;not null" json:"idempotency_key"`
	ExternalChargeID *string     `gorm:"type:varchar(191);index:idx_orders_external_charge_id" json:"external_charge_id,omitempty"`
	CustomerName     string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail    string      `gorm:"type:varchar(255);not null;index" json:"customer_email"`
	CustomerDocument string      `gorm:"type:varchar(20)" json:"customer_document"`
	CustomerPhone    string      `gorm:"type:varchar(32)" json:"customer_phone"`
	AmountCents      int64       `gorm:"type:bigint;not null" json:"amount_cents"`
	Status           string      `gorm:"type:varchar(32);not null;default:'created';index:idx_orders_status_created,priority:1" json:"status"`
	QRPayload        string      `gorm:"type:text" json:"qr_payload"`
	QRImageURL       string      `gorm:"type:varchar(512)" json:"qr_image_url"`
	ExpiresAt        *time.Time  `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	Items            []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt        time.Time   `gorm:"autoCreateTime;index:idx_orders_status_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.PublicID == "" {
		o.PublicID = uuid.New().String()
	}
	return nil
}

// IsTerminal reports whether the order status admits no further automatic
// transition.
func (o *Order) IsTerminal() bool {
	return IsTerminalOrderStatus(o.Status)
}

func IsTerminalOrderStatus(status string) bool {
	switch status {
	case OrderStatusPaid, OrderStatusExpired, OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// FindOrderByIdempotencyKey returns the order for a derived checkout key.
func FindOrderByIdempotencyKey(db *gorm.DB, key string) (*Order, error) {
	var order Order
	if err := db.Preload("Items").Where("idempotency_key = ?", key).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByExternalChargeID resolves a provider charge id to the local order.
func FindOrderByExternalChargeID(db *gorm.DB, chargeID string) (*Order, error) {
	var order Order
	if err := db.Preload("Items").Where("external_charge_id = ?", chargeID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByPublicID resolves the public UUID used in API responses.
func FindOrderByPublicID(db *gorm.DB, publicID string) (*Order, error) {
	var order Order
	if err := db.Preload("Items").Where("public_id = ?", publicID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
