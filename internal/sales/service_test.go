package sales

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

func seedMedicine(t *testing.T, db *sqlx.DB, code, name string, price float64, qty int64) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO medicines (code, name, brand, unit_price, quantity) VALUES (?, ?, ?, ?, ?)`,
		code, name, "Generic", price, qty); err != nil {
		t.Fatalf("seed medicine %s: %v", code, err)
	}
}

func seedCustomer(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var id int64
	if err := db.QueryRowx(`INSERT INTO customers (name) VALUES ('Test Customer') RETURNING id`).Scan(&id); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return id
}

func seedPrescription(t *testing.T, db *sqlx.DB, customerID int64) int64 {
	t.Helper()
	var id int64
	if err := db.QueryRowx(`INSERT INTO prescriptions (customer_id, doctor_id, issued_at) VALUES (?, 1, '2026-01-01') RETURNING id`,
		customerID).Scan(&id); err != nil {
		t.Fatalf("seed prescription: %v", err)
	}
	return id
}

func medicineQuantity(t *testing.T, db *sqlx.DB, code string) int64 {
	t.Helper()
	var qty int64
	if err := db.Get(&qty, `SELECT quantity FROM medicines WHERE code = ?`, code); err != nil {
		t.Fatalf("load quantity for %s: %v", code, err)
	}
	return qty
}

func countRows(t *testing.T, db *sqlx.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM `+table); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func TestCreateSaleComputesTotalAndDecrementsStock(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 5.0, 10)
	customerID := seedCustomer(t, db)
	svc := New(db, zerolog.Nop())

	result, err := svc.Create(context.Background(), CreateInput{
		CustomerID: customerID,
		Items:      []LineInput{{MedicineCode: "MED-A", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Sale.TotalPrice != 15.0 {
		t.Fatalf("expected total 15.0 got %v", result.Sale.TotalPrice)
	}
	if len(result.Items) != 1 || result.Items[0].Subtotal != 15.0 || result.Items[0].UnitPrice != 5.0 {
		t.Fatalf("unexpected items: %+v", result.Items)
	}
	if qty := medicineQuantity(t, db, "MED-A"); qty != 7 {
		t.Fatalf("expected quantity 7 after sale, got %d", qty)
	}

	deleted, err := svc.Delete(context.Background(), result.Sale.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Sale.ID != result.Sale.ID || len(deleted.Items) != 1 {
		t.Fatalf("unexpected delete result: %+v", deleted)
	}
	if qty := medicineQuantity(t, db, "MED-A"); qty != 10 {
		t.Fatalf("expected quantity restored to 10, got %d", qty)
	}
	if n := countRows(t, db, "sales"); n != 0 {
		t.Fatalf("expected no sales left, got %d", n)
	}
	if n := countRows(t, db, "sale_items"); n != 0 {
		t.Fatalf("expected no sale items left, got %d", n)
	}
}

func TestCreateSaleSumsMultipleLines(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 2.5, 20)
	seedMedicine(t, db, "MED-B", "Ibuprofen", 4.0, 8)
	customerID := seedCustomer(t, db)
	svc := New(db, zerolog.Nop())

	result, err := svc.Create(context.Background(), CreateInput{
		CustomerID: customerID,
		Items: []LineInput{
			{MedicineCode: "MED-A", Quantity: 4},
			{MedicineCode: "MED-B", Quantity: 2, Dosage: "1x daily"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Sale.TotalPrice != 18.0 {
		t.Fatalf("expected total 18.0 got %v", result.Sale.TotalPrice)
	}
	if qty := medicineQuantity(t, db, "MED-A"); qty != 16 {
		t.Fatalf("expected MED-A quantity 16, got %d", qty)
	}
	if qty := medicineQuantity(t, db, "MED-B"); qty != 6 {
		t.Fatalf("expected MED-B quantity 6, got %d", qty)
	}
	if result.Items[1].Dosage != "1x daily" {
		t.Fatalf("expected dosage carried to item, got %q", result.Items[1].Dosage)
	}
}

func TestCreateSaleInsufficientStockLeavesNoState(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 5.0, 10)
	customerID := seedCustomer(t, db)
	svc := New(db, zerolog.Nop())

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: customerID,
		Items:      []LineInput{{MedicineCode: "MED-A", Quantity: 11}},
	})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Name != "Aspirin" || insufficient.InStock != 10 || insufficient.Requested != 11 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}
	if qty := medicineQuantity(t, db, "MED-A"); qty != 10 {
		t.Fatalf("expected stock untouched, got %d", qty)
	}
	for _, table := range []string{"sales", "sale_items", "sale_prescriptions"} {
		if n := countRows(t, db, table); n != 0 {
			t.Fatalf("expected no rows in %s, got %d", table, n)
		}
	}
}

func TestCreateSaleUnknownMedicineFailsBeforeWrites(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 5.0, 10)
	customerID := seedCustomer(t, db)
	svc := New(db, zerolog.Nop())

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: customerID,
		Items: []LineInput{
			{MedicineCode: "MED-A", Quantity: 1},
			{MedicineCode: "NOPE", Quantity: 1},
		},
	})
	var notFound *MedicineNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected MedicineNotFoundError, got %v", err)
	}
	if notFound.Code != "NOPE" {
		t.Fatalf("expected code NOPE, got %q", notFound.Code)
	}
	if qty := medicineQuantity(t, db, "MED-A"); qty != 10 {
		t.Fatalf("expected stock untouched, got %d", qty)
	}
	if n := countRows(t, db, "sales"); n != 0 {
		t.Fatalf("expected no sales, got %d", n)
	}
}

func TestCreateSaleRejectsNonPositiveQuantity(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 5.0, 10)
	customerID := seedCustomer(t, db)
	svc := New(db, zerolog.Nop())

	for _, qty := range []int64{0, -2} {
		_, err := svc.Create(context.Background(), CreateInput{
			CustomerID: customerID,
			Items:      []LineInput{{MedicineCode: "MED-A", Quantity: qty}},
		})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
	if n := countRows(t, db, "sales"); n != 0 {
		t.Fatalf("expected no sales, got %d", n)
	}
}

func TestCreateSaleLinksPrescriptionsOnce(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 5.0, 10)
	customerID := seedCustomer(t, db)
	prescriptionID := seedPrescription(t, db, customerID)
	svc := New(db, zerolog.Nop())

	result, err := svc.Create(context.Background(), CreateInput{
		CustomerID: customerID,
		Items:      []LineInput{{MedicineCode: "MED-A", Quantity: 1}},
		Prescriptions: []PrescriptionLink{
			{PrescriptionID: prescriptionID, Dosage: "2x daily"},
			{PrescriptionID: prescriptionID, Note: "duplicate entry"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(result.PrescriptionIDs) != 1 || result.PrescriptionIDs[0] != prescriptionID {
		t.Fatalf("expected deduplicated prescription ids, got %v", result.PrescriptionIDs)
	}
	if n := countRows(t, db, "sale_prescriptions"); n != 1 {
		t.Fatalf("expected one link row, got %d", n)
	}
	var isSale bool
	if err := db.Get(&isSale, `SELECT is_sale FROM prescriptions WHERE id = ?`, prescriptionID); err != nil {
		t.Fatalf("load prescription: %v", err)
	}
	if !isSale {
		t.Fatal("expected prescription marked as sold")
	}
	var dosage string
	if err := db.Get(&dosage, `SELECT dosage FROM sale_prescriptions WHERE prescription_id = ?`, prescriptionID); err != nil {
		t.Fatalf("load link: %v", err)
	}
	if dosage != "2x daily" {
		t.Fatalf("expected first link's dosage kept, got %q", dosage)
	}
}

func TestDeleteSaleNotFound(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 5.0, 10)
	svc := New(db, zerolog.Nop())

	_, err := svc.Delete(context.Background(), 999)
	if !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
	if qty := medicineQuantity(t, db, "MED-A"); qty != 10 {
		t.Fatalf("expected stock untouched, got %d", qty)
	}
}

func TestSaleIDsAreSequential(t *testing.T) {
	db := setupDB(t)
	seedMedicine(t, db, "MED-A", "Aspirin", 1.0, 100)
	customerID := seedCustomer(t, db)
	svc := New(db, zerolog.Nop())

	var previous int64
	for i := 0; i < 3; i++ {
		result, err := svc.Create(context.Background(), CreateInput{
			CustomerID: customerID,
			Items:      []LineInput{{MedicineCode: "MED-A", Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if result.Sale.ID <= previous {
			t.Fatalf("expected increasing ids, got %d after %d", result.Sale.ID, previous)
		}
		previous = result.Sale.ID
	}
}
