package repository

import (
	"time"

	"github.com/rodrigomv/ticketpix/app/models"
	"gorm.io/gorm"
)

// OrderRepository defines read-side order lookups used by controllers and
// diagnostics. Mutations go through the payment service, never through
// here.
type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	GetByPublicID(publicID string) (*models.Order, error)
	GetByIdempotencyKey(key string) (*models.Order, error)
	CountByStatus(status string) (int64, error)
	ListRecent(limit int) ([]models.Order, error)
}

// TicketRepository defines ticket lookups.
type TicketRepository interface {
	GetByOrderID(orderID uint) ([]models.Ticket, error)
	CountByOrderID(orderID uint) (int64, error)
	CountByEventID(eventID uint) (int64, error)
}

// WebhookEventRepository defines webhook event lookups for operator
// visibility.
type WebhookEventRepository interface {
	CountUnprocessed() (int64, error)
	ListUnprocessed(limit int) ([]models.WebhookEvent, error)
	ListByChargeID(chargeID string, limit int) ([]models.WebhookEvent, error)
	CountSince(since time.Time) (int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Order        OrderRepository
	Ticket       TicketRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:        NewOrderRepository(db),
		Ticket:       NewTicketRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
