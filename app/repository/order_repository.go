package repository

import (
	"github.com/rodrigomv/ticketpix/app/models"
	"gorm.io/gorm"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByPublicID(publicID string) (*models.Order, error) {
	return models.FindOrderByPublicID(r.db, publicID)
}

func (r *orderRepository) GetByIdempotencyKey(key string) (*models.Order, error) {
	return models.FindOrderByIdempotencyKey(r.db, key)
}

func (r *orderRepository) CountByStatus(status string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Order{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *orderRepository) ListRecent(limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}
