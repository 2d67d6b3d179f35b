package payment

import (
	"fmt"
	"testing"

	"github.com/rodrigomv/ticketpix/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newRepoTestDB opens an in-memory SQLite database with the payment schema.
// The tables are created with explicit DDL because the model tags carry
// MySQL-specific column types; foreign keys are switched on so orphan child
// rows fail the same way they would against the production schema.
func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection, or every pooled connection gets its own empty
	// in-memory database.
	sqlDB.SetMaxOpenConns(1)

	for _, ddl := range []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			venue TEXT,
			starts_at DATETIME NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			public_id TEXT NOT NULL UNIQUE,
			idempotency_key TEXT NOT NULL UNIQUE,
			external_charge_id TEXT,
			customer_name TEXT NOT NULL,
			customer_email TEXT NOT NULL,
			customer_document TEXT,
			customer_phone TEXT,
			amount_cents INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'created',
			qr_payload TEXT,
			qr_image_url TEXT,
			expires_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL REFERENCES orders (id),
			name TEXT NOT NULL,
			event_id INTEGER,
			ticket_type TEXT,
			quantity INTEGER NOT NULL,
			unit_price_cents INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE webhook_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			external_charge_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			signature TEXT NOT NULL UNIQUE,
			signature_valid BOOLEAN NOT NULL DEFAULT 0,
			processed BOOLEAN NOT NULL DEFAULT 0,
			processed_at DATETIME,
			processing_error TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE tickets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL REFERENCES orders (id),
			event_id INTEGER NOT NULL,
			code TEXT NOT NULL UNIQUE,
			seat_number INTEGER NOT NULL,
			ticket_type TEXT,
			status TEXT NOT NULL DEFAULT 'issued',
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX ux_tickets_event_seat ON tickets (event_id, seat_number)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	return db
}

func newCheckoutOrder(key string) *models.Order {
	eventID := uint(1)
	return &models.Order{
		IdempotencyKey: key,
		CustomerName:   "Ana Souza",
		CustomerEmail:  "ana@example.com",
		AmountCents:    15000,
		Status:         models.OrderStatusAwaitingPayment,
		Items: []models.OrderItem{
			{Name: "Main Stage - General", EventID: &eventID, TicketType: "general", Quantity: 2, UnitPriceCents: 5000},
			{Name: "Tour Shirt", Quantity: 1, UnitPriceCents: 5000},
		},
	}
}

func TestGormCreateOrderIfAbsent_CreatesOrderWithItems(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	created, stored, err := repo.CreateOrderIfAbsent(newCheckoutOrder("key-1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, stored.ID)
	assert.NotEmpty(t, stored.PublicID)
	require.Len(t, stored.Items, 2)
	for _, item := range stored.Items {
		assert.Equal(t, stored.ID, item.OrderID)
	}
}

func TestGormCreateOrderIfAbsent_DuplicateLeavesNoOrphanItems(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	created, winner, err := repo.CreateOrderIfAbsent(newCheckoutOrder("key-1"))
	require.NoError(t, err)
	require.True(t, created)

	// The duplicate-submission race: a second insert with the same key
	// must read back the winner's row and write nothing of its own.
	created, loser, err := repo.CreateOrderIfAbsent(newCheckoutOrder("key-1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, loser.ID)
	assert.Equal(t, winner.PublicID, loser.PublicID)

	var totalItems int64
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&totalItems).Error)
	assert.Equal(t, int64(2), totalItems, "loser must not persist its own item rows")

	var orphans int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", 0).Count(&orphans).Error)
	assert.Zero(t, orphans, "no order_items may exist without a parent order")
}

func TestGormCreateOrderIfAbsent_DistinctKeysCreateDistinctOrders(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	_, first, err := repo.CreateOrderIfAbsent(newCheckoutOrder("key-1"))
	require.NoError(t, err)
	_, second, err := repo.CreateOrderIfAbsent(newCheckoutOrder("key-2"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	var totalItems int64
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&totalItems).Error)
	assert.Equal(t, int64(4), totalItems)
}

func TestGormUpdateOrderStatusIf_RejectsStaleTransition(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	_, order, err := repo.CreateOrderIfAbsent(newCheckoutOrder("key-1"))
	require.NoError(t, err)

	changed, err := repo.UpdateOrderStatusIf(order.ID, models.OrderStatusAwaitingPayment, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	// Computed against a stale read: the order is paid now.
	changed, err = repo.UpdateOrderStatusIf(order.ID, models.OrderStatusAwaitingPayment, models.OrderStatusExpired)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repo.FindOrderByIdempotencyKey("key-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
}

func TestGormCreateWebhookEventIfNotExists_Dedup(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	event := func() *models.WebhookEvent {
		return &models.WebhookEvent{
			Source:           ProviderSourcePix,
			ExternalChargeID: "ch_1",
			EventType:        "charge.paid",
			PayloadJSON:      `{"event":"charge.paid"}`,
			Signature:        "sig-1",
		}
	}

	created, first, err := repo.CreateWebhookEventIfNotExists(event())
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := repo.CreateWebhookEventIfNotExists(event())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var total int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestGormIssueTicketsOnce_SeatsDisjointAcrossOrders(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	issueFor := func(key string) *models.Order {
		_, order, err := repo.CreateOrderIfAbsent(newCheckoutOrder(key))
		require.NoError(t, err)
		changed, err := repo.UpdateOrderStatusIf(order.ID, models.OrderStatusAwaitingPayment, models.OrderStatusPaid)
		require.NoError(t, err)
		require.True(t, changed)
		return order
	}

	first := issueFor("key-1")
	issued, err := repo.IssueTicketsOnce(first)
	require.NoError(t, err)
	assert.Equal(t, 2, issued)

	// Replays issue nothing.
	issued, err = repo.IssueTicketsOnce(first)
	require.NoError(t, err)
	assert.Zero(t, issued)

	// A second paid order for the same event continues the seat sequence
	// instead of colliding on ux_tickets_event_seat.
	second := issueFor("key-2")
	issued, err = repo.IssueTicketsOnce(second)
	require.NoError(t, err)
	assert.Equal(t, 2, issued)

	var seats []int
	require.NoError(t, db.Model(&models.Ticket{}).
		Where("event_id = ?", 1).
		Order("seat_number ASC").
		Pluck("seat_number", &seats).Error)
	assert.Equal(t, []int{1, 2, 3, 4}, seats)

	for i, orderID := range []uint{first.ID, second.ID} {
		var n int64
		require.NoError(t, db.Model(&models.Ticket{}).Where("order_id = ?", orderID).Count(&n).Error)
		assert.Equal(t, int64(2), n, fmt.Sprintf("order %d ticket count", i+1))
	}
}
