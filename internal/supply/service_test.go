package supply

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"pharmadesk/m/internal/migrations"
)

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedMedicine(t *testing.T, db *sqlx.DB, code string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO medicines (code, name, unit_price, quantity, packs) VALUES (?, ?, 1.0, 0, 0)`, code, code); err != nil {
		t.Fatalf("seed medicine: %v", err)
	}
}

func seedOrder(t *testing.T, db *sqlx.DB, lines ...[3]int64) int64 {
	t.Helper()
	var orderID int64
	if err := db.QueryRowx(`INSERT INTO supply_orders (supplier_id, ordered_at) VALUES (1, '2026-08-01') RETURNING id`).Scan(&orderID); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	for i, line := range lines {
		code := fmt.Sprintf("MED-%d", line[0])
		if _, err := db.Exec(`INSERT INTO supply_order_items (order_id, medicine_code, quantity, units_per_pack) VALUES (?, ?, ?, ?)`,
			orderID, code, line[1], line[2]); err != nil {
			t.Fatalf("seed order line %d: %v", i, err)
		}
	}
	return orderID
}

func stockOf(t *testing.T, db *sqlx.DB, code string) (qty, packs int64) {
	t.Helper()
	if err := db.QueryRow(`SELECT quantity, packs FROM medicines WHERE code = ?`, code).Scan(&qty, &packs); err != nil {
		t.Fatalf("load stock for %s: %v", code, err)
	}
	return qty, packs
}

func TestMarkReceivedIncrementsStockExactlyOnce(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-1")
	orderID := seedOrder(t, db, [3]int64{1, 2, 10})
	svc := New(db, zerolog.Nop())

	order, err := svc.MarkReceived(context.Background(), orderID)
	if err != nil {
		t.Fatalf("mark received: %v", err)
	}
	if !order.Received || order.Status != "received" || order.ReceivedAt == nil {
		t.Fatalf("expected order flagged received, got %+v", order)
	}
	qty, packs := stockOf(t, db, "MED-1")
	if qty != 20 || packs != 2 {
		t.Fatalf("expected quantity 20 and packs 2, got %d/%d", qty, packs)
	}

	_, err = svc.MarkReceived(context.Background(), orderID)
	if !errors.Is(err, ErrAlreadyReceived) {
		t.Fatalf("expected ErrAlreadyReceived, got %v", err)
	}
	qty, packs = stockOf(t, db, "MED-1")
	if qty != 20 || packs != 2 {
		t.Fatalf("expected no further mutation, got %d/%d", qty, packs)
	}
}

func TestMarkReceivedSkipsLinesWithoutUnitsPerPack(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-1")
	seedMedicine(t, db, "MED-2")
	orderID := seedOrder(t, db, [3]int64{1, 3, 5}, [3]int64{2, 4, 0})
	svc := New(db, zerolog.Nop())

	if _, err := svc.MarkReceived(context.Background(), orderID); err != nil {
		t.Fatalf("mark received: %v", err)
	}
	if qty, packs := stockOf(t, db, "MED-1"); qty != 15 || packs != 3 {
		t.Fatalf("expected valid line booked (15/3), got %d/%d", qty, packs)
	}
	if qty, packs := stockOf(t, db, "MED-2"); qty != 0 || packs != 0 {
		t.Fatalf("expected skipped line untouched, got %d/%d", qty, packs)
	}

	var received bool
	if err := db.Get(&received, `SELECT received FROM supply_orders WHERE id = ?`, orderID); err != nil {
		t.Fatalf("load order: %v", err)
	}
	if !received {
		t.Fatal("expected order marked received despite skipped line")
	}
}

func TestMarkReceivedUnknownOrder(t *testing.T) {
	db := setupDB(t)
	svc := New(db, zerolog.Nop())

	_, err := svc.MarkReceived(context.Background(), 42)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
