package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TicketStatusIssued    = "issued"
	TicketStatusCancelled = "cancelled"
)

// Ticket is one admission for one seat at one event. Tickets are created
// exactly once per paid order and are immutable afterwards except for a
// cancellation path outside this engine.
type Ticket struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	EventID    uint      `gorm:"not null;uniqueIndex:ux_tickets_event_seat,priority:1" json:"event_id"`
	Code       string    `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"code"`
	SeatNumber int       `gorm:"not null;uniqueIndex:ux_tickets_event_seat,priority:2" json:"seat_number"`
	TicketType string    `gorm:"type:varchar(100)" json:"ticket_type"`
	Status     string    `gorm:"type:varchar(32);not null;default:'issued'" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.Code == "" {
		t.Code = uuid.New().String()
	}
	return nil
}

// CountTicketsByOrderID returns how many tickets exist for an order.
func CountTicketsByOrderID(db *gorm.DB, orderID uint) (int64, error) {
	var n int64
	err := db.Model(&Ticket{}).Where("order_id = ?", orderID).Count(&n).Error
	return n, err
}
