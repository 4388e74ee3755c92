package domain

// Sale ids are allocated by the database (AUTOINCREMENT) so they stay
// sequential without a read-max-then-write step. A sale is immutable once
// created; the only mutation is deletion, which restores stock.
type Sale struct {
	ID         int64   `db:"id" json:"id"`
	CustomerID int64   `db:"customer_id" json:"customer_id"`
	TotalPrice float64 `db:"total_price" json:"total_price"`
	CreatedAt  string  `db:"created_at" json:"created_at"`
}

// SaleItem denormalizes the unit price at the moment of sale.
type SaleItem struct {
	ID           int64   `db:"id" json:"id"`
	SaleID       int64   `db:"sale_id" json:"sale_id"`
	MedicineCode string  `db:"medicine_code" json:"medicine_code"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	UnitPrice    float64 `db:"unit_price" json:"unit_price"`
	Dosage       string  `db:"dosage" json:"dosage,omitempty"`
	Subtotal     float64 `db:"subtotal" json:"subtotal"`
}

// SalePrescription links a sale to a prescription it fulfilled.
// Unique on (sale_id, prescription_id).
type SalePrescription struct {
	ID             int64  `db:"id" json:"id"`
	SaleID         int64  `db:"sale_id" json:"sale_id"`
	PrescriptionID int64  `db:"prescription_id" json:"prescription_id"`
	Dosage         string `db:"dosage" json:"dosage,omitempty"`
	Note           string `db:"note" json:"note,omitempty"`
}
