package domain

const (
	SupplyOrderPending  = "pending"
	SupplyOrderReceived = "received"
)

// SupplyOrder is a purchase order sent to a supplier. Receipt increments
// medicine stock per line and is accepted exactly once.
type SupplyOrder struct {
	ID         int64   `db:"id" json:"id"`
	SupplierID int64   `db:"supplier_id" json:"supplier_id"`
	Status     string  `db:"status" json:"status"`
	Received   bool    `db:"received" json:"received"`
	OrderedAt  string  `db:"ordered_at" json:"ordered_at"`
	ReceivedAt *string `db:"received_at" json:"received_at,omitempty"`
	CreatedAt  string  `db:"created_at" json:"created_at"`
}

// SupplyOrderItem orders Quantity packs of UnitsPerPack units each.
type SupplyOrderItem struct {
	ID           int64   `db:"id" json:"id"`
	OrderID      int64   `db:"order_id" json:"order_id"`
	MedicineCode string  `db:"medicine_code" json:"medicine_code"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	UnitsPerPack int64   `db:"units_per_pack" json:"units_per_pack"`
	UnitCost     float64 `db:"unit_cost" json:"unit_cost"`
	ExpiryDate   *string `db:"expiry_date" json:"expiry_date,omitempty"`
}
