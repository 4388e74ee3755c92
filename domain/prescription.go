package domain

// Prescription is a doctor-issued order for a customer. IsSale flips to true
// when the prescription is converted into (linked to) a sale.
type Prescription struct {
	ID         int64  `db:"id" json:"id"`
	CustomerID int64  `db:"customer_id" json:"customer_id"`
	DoctorID   int64  `db:"doctor_id" json:"doctor_id"`
	IssuedAt   string `db:"issued_at" json:"issued_at"`
	Notes      string `db:"notes" json:"notes,omitempty"`
	IsSale     bool   `db:"is_sale" json:"is_sale"`
	CreatedAt  string `db:"created_at" json:"created_at"`
}

type PrescriptionItem struct {
	ID             int64  `db:"id" json:"id"`
	PrescriptionID int64  `db:"prescription_id" json:"prescription_id"`
	MedicineCode   string `db:"medicine_code" json:"medicine_code"`
	Dosage         string `db:"dosage" json:"dosage,omitempty"`
	Quantity       int64  `db:"quantity" json:"quantity"`
}
