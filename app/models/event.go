package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is a ticket-able show. The payment engine only reads events; rows
// are managed by the storefront catalog.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Venue     string    `gorm:"type:varchar(255)" json:"venue"`
	StartsAt  time.Time `gorm:"type:datetime;not null" json:"starts_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindEventByID loads one event.
func FindEventByID(db *gorm.DB, id uint) (*Event, error) {
	var event Event
	if err := db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
