// Package sales implements the sale transaction workflow: validation,
// pricing, the transactional write set (sale, prescription links, line items,
// stock decrements) and its inverse on deletion.
package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/stock"
)

var (
	// ErrNoItems rejects a sale request with an empty line list.
	ErrNoItems = errors.New("at least one item is required")
	// ErrInvalidQuantity rejects a line with quantity <= 0.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrSaleNotFound reports an unknown sale id.
	ErrSaleNotFound = errors.New("sale not found")
)

// MedicineNotFoundError reports an unresolvable medicine code. The whole
// sale fails before any write when one line cannot be resolved.
type MedicineNotFoundError struct {
	Code string
}

func (e *MedicineNotFoundError) Error() string {
	return fmt.Sprintf("medicine not found: %s", e.Code)
}

// InsufficientStockError carries what the caller needs to report the
// shortage: which medicine, how much is on hand, how much was asked.
type InsufficientStockError struct {
	Code      string
	Name      string
	InStock   int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d in stock, %d requested", e.Name, e.InStock, e.Requested)
}

// LineInput is one requested sale line.
type LineInput struct {
	MedicineCode string
	Quantity     int64
	Dosage       string
}

// PrescriptionLink ties the sale to a prescription it fulfils, with an
// optional dosage note.
type PrescriptionLink struct {
	PrescriptionID int64
	Dosage         string
	Note           string
}

// CreateInput is the full sale-creation request.
type CreateInput struct {
	CustomerID    int64
	Items         []LineInput
	Prescriptions []PrescriptionLink
}

// CreateResult is the committed sale with its priced lines and the
// deduplicated set of linked prescription ids.
type CreateResult struct {
	Sale            domain.Sale
	Items           []domain.SaleItem
	PrescriptionIDs []int64
}

// DeleteResult is the removed sale and the lines whose stock was restored.
type DeleteResult struct {
	Sale  domain.Sale
	Items []domain.SaleItem
}

// Service runs the sale workflows against the database.
type Service struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func New(db *sqlx.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

type medicineSnapshot struct {
	Code      string  `db:"code"`
	Name      string  `db:"name"`
	UnitPrice float64 `db:"unit_price"`
	Quantity  int64   `db:"quantity"`
}

// Create validates every line against current stock, prices the sale and
// commits the whole write set in one transaction. The sale id comes from the
// database, and each stock decrement re-checks availability inside the
// transaction, so concurrent sales cannot oversubscribe a medicine.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}

	// Resolve all referenced medicines in one batch lookup.
	codes := make([]string, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, line := range in.Items {
		if !seen[line.MedicineCode] {
			seen[line.MedicineCode] = true
			codes = append(codes, line.MedicineCode)
		}
	}
	query, args, err := sqlx.In(`SELECT code, name, unit_price, quantity FROM medicines WHERE code IN (?)`, codes)
	if err != nil {
		return nil, err
	}
	var rows []medicineSnapshot
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	snapshots := make(map[string]medicineSnapshot, len(rows))
	for _, row := range rows {
		snapshots[row.Code] = row
	}
	for _, code := range codes {
		if _, ok := snapshots[code]; !ok {
			return nil, &MedicineNotFoundError{Code: code}
		}
	}

	// Validate and price each line before touching anything.
	items := make([]domain.SaleItem, 0, len(in.Items))
	var total float64
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		snap := snapshots[line.MedicineCode]
		if line.Quantity > snap.Quantity {
			return nil, &InsufficientStockError{
				Code:      snap.Code,
				Name:      snap.Name,
				InStock:   snap.Quantity,
				Requested: line.Quantity,
			}
		}
		subtotal := snap.UnitPrice * float64(line.Quantity)
		total += subtotal
		items = append(items, domain.SaleItem{
			MedicineCode: line.MedicineCode,
			Quantity:     line.Quantity,
			UnitPrice:    snap.UnitPrice,
			Dosage:       line.Dosage,
			Subtotal:     subtotal,
		})
	}

	links := dedupeLinks(in.Prescriptions)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sale domain.Sale
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO sales (customer_id, total_price) VALUES (?, ?) RETURNING id, customer_id, total_price, created_at`,
		in.CustomerID, total).StructScan(&sale)
	if err != nil {
		return nil, err
	}

	prescriptionIDs := make([]int64, 0, len(links))
	for _, link := range links {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sale_prescriptions (sale_id, prescription_id, dosage, note) VALUES (?, ?, ?, ?)`,
			sale.ID, link.PrescriptionID, link.Dosage, link.Note); err != nil {
			return nil, err
		}
		prescriptionIDs = append(prescriptionIDs, link.PrescriptionID)
	}

	for i := range items {
		items[i].SaleID = sale.ID
		snap := snapshots[items[i].MedicineCode]
		if err := stock.Decrement(tx, items[i].MedicineCode, items[i].Quantity); err != nil {
			if errors.Is(err, stock.ErrInsufficient) {
				// Another sale consumed the stock between the snapshot
				// check and this update.
				return nil, &InsufficientStockError{
					Code:      snap.Code,
					Name:      snap.Name,
					InStock:   snap.Quantity,
					Requested: items[i].Quantity,
				}
			}
			return nil, err
		}
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO sale_items (sale_id, medicine_code, quantity, unit_price, dosage, subtotal)
                         VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			sale.ID, items[i].MedicineCode, items[i].Quantity, items[i].UnitPrice, items[i].Dosage, items[i].Subtotal).
			Scan(&items[i].ID)
		if err != nil {
			return nil, err
		}
	}

	if len(prescriptionIDs) > 0 {
		query, args, err := sqlx.In(`UPDATE prescriptions SET is_sale = 1 WHERE id IN (?)`, prescriptionIDs)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("sale_id", sale.ID).
		Int64("customer_id", in.CustomerID).
		Int("items", len(items)).
		Float64("total", total).
		Msg("sale created")

	return &CreateResult{Sale: sale, Items: items, PrescriptionIDs: prescriptionIDs}, nil
}

// Delete removes a sale, restoring each line's stock first, then dropping the
// line items, prescription links and the sale row in one transaction.
// Medicines deleted since the sale simply have nothing to restore.
func (s *Service) Delete(ctx context.Context, saleID int64) (*DeleteResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sale domain.Sale
	err = tx.GetContext(ctx, &sale,
		`SELECT id, customer_id, total_price, created_at FROM sales WHERE id = ?`, saleID)
	if err != nil {
		return nil, ErrSaleNotFound
	}

	var items []domain.SaleItem
	if err := tx.SelectContext(ctx, &items,
		`SELECT id, sale_id, medicine_code, quantity, unit_price, dosage, subtotal FROM sale_items WHERE sale_id = ?`, saleID); err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := stock.Increment(tx, item.MedicineCode, item.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = ?`, saleID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_prescriptions WHERE sale_id = ?`, saleID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, saleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("sale_id", saleID).
		Int("items_restored", len(items)).
		Msg("sale deleted, stock restored")

	return &DeleteResult{Sale: sale, Items: items}, nil
}

// dedupeLinks keeps the first occurrence of each prescription id.
func dedupeLinks(links []PrescriptionLink) []PrescriptionLink {
	out := make([]PrescriptionLink, 0, len(links))
	seen := make(map[int64]bool, len(links))
	for _, link := range links {
		if link.PrescriptionID == 0 || seen[link.PrescriptionID] {
			continue
		}
		seen[link.PrescriptionID] = true
		out = append(out, link)
	}
	return out
}
