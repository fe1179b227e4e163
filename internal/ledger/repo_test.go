package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	processedEvents := `
CREATE TABLE IF NOT EXISTS processed_events (
  event_id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL DEFAULT '',
  processed_at DATETIME
);`
	mailedInvoices := `
CREATE TABLE IF NOT EXISTS mailed_invoices (
  invoice_id TEXT PRIMARY KEY,
  sent_at DATETIME
);`
	canceledSubscriptions := `
CREATE TABLE IF NOT EXISTS canceled_subscriptions (
  subscription_id TEXT PRIMARY KEY,
  canceled_at DATETIME
);`
	require.NoError(t, db.Exec(processedEvents).Error)
	require.NoError(t, db.Exec(mailedInvoices).Error)
	require.NoError(t, db.Exec(canceledSubscriptions).Error)
	return db
}

func TestRepositoryInsertProcessedEvent(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inserted, err := repo.InsertProcessedEvent(ctx, "evt_repo_first", "checkout.session.completed")
	require.NoError(t, err)
	assert.True(t, inserted, "first insert should win the marker")

	inserted, err = repo.InsertProcessedEvent(ctx, "evt_repo_first", "checkout.session.completed")
	require.NoError(t, err)
	assert.False(t, inserted, "replayed insert should lose the marker")

	inserted, err = repo.InsertProcessedEvent(ctx, "evt_repo_second", "invoice.paid")
	require.NoError(t, err)
	assert.True(t, inserted, "distinct event id should win its own marker")
}

func TestRepositoryInsertMailedInvoice(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inserted, err := repo.InsertMailedInvoice(ctx, "in_repo_1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertMailedInvoice(ctx, "in_repo_1")
	require.NoError(t, err)
	assert.False(t, inserted, "same invoice under a fresh event envelope must not re-claim")
}

func TestRepositoryInsertCanceledSubscription(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inserted, err := repo.InsertCanceledSubscription(ctx, "sub_repo_1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertCanceledSubscription(ctx, "sub_repo_1")
	require.NoError(t, err)
	assert.False(t, inserted, "delete and update-to-canceled must collapse onto one marker")
}

func TestRepositoryMarkersAreIndependent(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	// The same identifier text in different marker tables never collides.
	inserted, err := repo.InsertProcessedEvent(ctx, "shared_repo_id", "invoice.paid")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertMailedInvoice(ctx, "shared_repo_id")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertCanceledSubscription(ctx, "shared_repo_id")
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestRepositoryWithTx(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	assert.Equal(t, repo, repo.WithTx(nil), "nil tx should return the same repository")

	err := db.Transaction(func(tx *gorm.DB) error {
		inserted, err := repo.WithTx(tx).InsertProcessedEvent(context.Background(), "evt_repo_tx", "invoice.paid")
		require.NoError(t, err)
		assert.True(t, inserted)
		return nil
	})
	require.NoError(t, err)

	inserted, err := repo.InsertProcessedEvent(context.Background(), "evt_repo_tx", "invoice.paid")
	require.NoError(t, err)
	assert.False(t, inserted, "committed tx insert should survive as the marker")
}
