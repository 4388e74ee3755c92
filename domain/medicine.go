package domain

// Medicine is a catalog entry identified by an operator-assigned code.
// Quantity is the on-hand unit count and never goes negative after a
// committed operation; Packs tracks unopened packs received from suppliers.
type Medicine struct {
	Code       string  `db:"code" json:"code"`
	Name       string  `db:"name" json:"name"`
	Brand      string  `db:"brand" json:"brand"`
	UnitPrice  float64 `db:"unit_price" json:"unit_price"`
	Quantity   int64   `db:"quantity" json:"quantity"`
	Packs      int64   `db:"packs" json:"packs"`
	SupplierID *int64  `db:"supplier_id" json:"supplier_id,omitempty"`
	CreatedAt  string  `db:"created_at" json:"created_at"`
	UpdatedAt  string  `db:"updated_at" json:"updated_at"`
}
