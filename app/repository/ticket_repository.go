package repository

import (
	"github.com/rodrigomv/ticketpix/app/models"
	"gorm.io/gorm"
)

// ticketRepository implements the TicketRepository interface
type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository instance
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) GetByOrderID(orderID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("order_id = ?", orderID).Order("seat_number ASC").Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) CountByOrderID(orderID uint) (int64, error) {
	return models.CountTicketsByOrderID(r.db, orderID)
}

func (r *ticketRepository) CountByEventID(eventID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Ticket{}).Where("event_id = ?", eventID).Count(&n).Error
	return n, err
}
