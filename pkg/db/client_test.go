package db

import (
	"context"
	"errors"
	"testing"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"gorm.io/gorm"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.DB().Exec(`CREATE TABLE tx_probe (id INTEGER PRIMARY KEY, v TEXT)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO tx_probe (v) VALUES ('x')`).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	var count int64
	if err := client.DB().Raw(`SELECT COUNT(*) FROM tx_probe`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "shipped_items_dedup_key"`), "") {
		t.Fatal("expected postgres duplicate key detection")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: shipped_items.order_number"), "") {
		t.Fatal("expected sqlite unique constraint detection")
	}
	if !IsUniqueViolation(errors.New(`violates unique constraint "staged_order_items_order_sku_key"`), "staged_order_items_order_sku_key") {
		t.Fatal("expected named constraint detection")
	}
}
