package models

import "time"

// OrderItem is one line of an order. Ticket-bearing items reference an
// event and a ticket type; merchandise items leave EventID nil.
type OrderItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	EventID        *uint     `gorm:"index" json:"event_id,omitempty"`
	TicketType     string    `gorm:"type:varchar(100)" json:"ticket_type"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	UnitPriceCents int64     `gorm:"type:bigint;not null" json:"unit_price_cents"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTicketBearing reports whether the item produces tickets when the order
// is paid.
func (i *OrderItem) IsTicketBearing() bool {
	return i.EventID != nil && *i.EventID > 0
}

// TotalCents is the line total.
func (i *OrderItem) TotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}
