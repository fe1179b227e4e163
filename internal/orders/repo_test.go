package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/beanvault/storefront-backend/pkg/db/models"
	"github.com/beanvault/storefront-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  mode TEXT NOT NULL DEFAULT 'payment',
  status TEXT NOT NULL DEFAULT 'unpaid',
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  metadata TEXT,
  shipping TEXT,
  customer_details TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  description TEXT NOT NULL,
  product_id TEXT NOT NULL DEFAULT '',
  price_id TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL,
  unit_amount_cents INTEGER NOT NULL,
  amount_total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  raw TEXT,
  created_at DATETIME
);`
	lineIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS uq_order_items_line
  ON order_items (session_id, description, price_id, quantity, unit_amount_cents, amount_total_cents);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(lineIndex).Error)
	return db
}

func newOrder(sessionID, email string) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Email:      email,
		Name:       "Test Customer",
		Mode:       enums.CheckoutModePayment,
		Status:     enums.PaymentStatusPaid,
		TotalCents: 4600,
		Currency:   enums.CurrencyEUR,
	}
}

func newItem(sessionID, description string, qty, unit int64) models.OrderItem {
	return models.OrderItem{
		ID:               uuid.New(),
		SessionID:        sessionID,
		Description:      description,
		PriceID:          "price_" + description,
		Quantity:         qty,
		UnitAmountCents:  unit,
		AmountTotalCents: qty * unit,
		Currency:         enums.CurrencyEUR,
	}
}

func TestRepositoryUpsertOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := newOrder("cs_upsert_1", "first@example.com")
	require.NoError(t, repo.UpsertOrder(ctx, first))

	// A replayed delivery overwrites in place: still one row, latest values.
	second := newOrder("cs_upsert_1", "second@example.com")
	second.Name = "Renamed Customer"
	require.NoError(t, repo.UpsertOrder(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Where("session_id = ?", "cs_upsert_1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := repo.FindBySessionID(ctx, "cs_upsert_1")
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", got.Email)
	assert.Equal(t, "Renamed Customer", got.Name)
	assert.Equal(t, first.ID, got.ID, "conflict path must keep the original row id")
}

func TestRepositoryInsertItemsDedupesReplays(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	items := []models.OrderItem{
		newItem("cs_items_1", "House Blend 250g", 2, 1200),
		newItem("cs_items_1", "Single Origin Kenya 250g", 1, 2200),
	}
	require.NoError(t, repo.InsertItems(ctx, items))

	// Replay with fresh row ids but identical line values inserts nothing.
	replay := []models.OrderItem{
		newItem("cs_items_1", "House Blend 250g", 2, 1200),
		newItem("cs_items_1", "Single Origin Kenya 250g", 1, 2200),
	}
	require.NoError(t, repo.InsertItems(ctx, replay))

	got, err := repo.FindItemsBySessionID(ctx, "cs_items_1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// A genuinely different line (same description, new quantity) is new.
	require.NoError(t, repo.InsertItems(ctx, []models.OrderItem{
		newItem("cs_items_1", "House Blend 250g", 3, 1200),
	}))
	got, err = repo.FindItemsBySessionID(ctx, "cs_items_1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRepositoryInsertItemsPartialRetry(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.InsertItems(ctx, []models.OrderItem{
		newItem("cs_items_2", "House Blend 250g", 2, 1200),
	}))

	// Retry of the full batch after a partial failure fills in only the gap.
	require.NoError(t, repo.InsertItems(ctx, []models.OrderItem{
		newItem("cs_items_2", "House Blend 250g", 2, 1200),
		newItem("cs_items_2", "Filter Papers", 1, 400),
	}))

	got, err := repo.FindItemsBySessionID(ctx, "cs_items_2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Filter Papers", got[0].Description)
	assert.Equal(t, "House Blend 250g", got[1].Description)
}

func TestRepositoryInsertItemsEmpty(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.InsertItems(context.Background(), nil))
}

func TestRepositoryFindBySessionIDMissing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindBySessionID(context.Background(), "cs_absent")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
