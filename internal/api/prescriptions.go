package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

type prescriptionItemRequest struct {
	MedicineCode string `json:"medicine_code"`
	Dosage       string `json:"dosage"`
	Quantity     int64  `json:"quantity"`
}

type prescriptionRequest struct {
	CustomerID int64                     `json:"customer_id"`
	DoctorID   int64                     `json:"doctor_id"`
	IssuedAt   string                    `json:"issued_at"`
	Notes      string                    `json:"notes"`
	Items      []prescriptionItemRequest `json:"items"`
}

type prescriptionDetail struct {
	domain.Prescription
	Items []domain.PrescriptionItem `json:"items"`
}

func (h *Handler) createPrescription(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == 0 || req.DoctorID == 0 || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "customer_id, doctor_id and at least one item are required")
		return
	}
	for _, item := range req.Items {
		if item.MedicineCode == "" || item.Quantity <= 0 {
			respondError(w, http.StatusBadRequest, "medicine_code and a positive quantity are required for each item")
			return
		}
	}

	tx, err := h.db.Beginx()
	if err != nil {
		h.serverError(w, err, "unable to create prescription")
		return
	}
	defer tx.Rollback()

	var prescriptionID int64
	err = tx.QueryRowx(`INSERT INTO prescriptions (customer_id, doctor_id, issued_at, notes) VALUES (?, ?, ?, ?) RETURNING id`,
		req.CustomerID, req.DoctorID, req.IssuedAt, req.Notes).Scan(&prescriptionID)
	if err != nil {
		h.serverError(w, err, "unable to create prescription")
		return
	}
	for _, item := range req.Items {
		if _, err := tx.Exec(`INSERT INTO prescription_items (prescription_id, medicine_code, dosage, quantity) VALUES (?, ?, ?, ?)`,
			prescriptionID, item.MedicineCode, item.Dosage, item.Quantity); err != nil {
			h.serverError(w, err, "unable to save prescription items")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		h.serverError(w, err, "unable to create prescription")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"id": prescriptionID})
}

func (h *Handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	var prescriptions []domain.Prescription
	if err := h.db.Select(&prescriptions,
		`SELECT id, customer_id, doctor_id, issued_at, notes, is_sale, created_at FROM prescriptions ORDER BY id DESC`); err != nil {
		h.serverError(w, err, "unable to list prescriptions")
		return
	}
	if len(prescriptions) == 0 {
		respondJSON(w, http.StatusOK, []prescriptionDetail{})
		return
	}

	ids := make([]int64, len(prescriptions))
	for i, p := range prescriptions {
		ids[i] = p.ID
	}
	query, args, err := sqlx.In(`SELECT id, prescription_id, medicine_code, dosage, quantity FROM prescription_items WHERE prescription_id IN (?)`, ids)
	if err != nil {
		h.serverError(w, err, "unable to load prescription items")
		return
	}
	var items []domain.PrescriptionItem
	if err := h.db.Select(&items, h.db.Rebind(query), args...); err != nil {
		h.serverError(w, err, "unable to load prescription items")
		return
	}
	byPrescription := make(map[int64][]domain.PrescriptionItem)
	for _, item := range items {
		byPrescription[item.PrescriptionID] = append(byPrescription[item.PrescriptionID], item)
	}

	detail := make([]prescriptionDetail, len(prescriptions))
	for i, p := range prescriptions {
		detail[i] = prescriptionDetail{Prescription: p, Items: byPrescription[p.ID]}
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}
	var prescription domain.Prescription
	err := h.db.Get(&prescription,
		`SELECT id, customer_id, doctor_id, issued_at, notes, is_sale, created_at FROM prescriptions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "prescription not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "unable to load prescription")
		return
	}
	var items []domain.PrescriptionItem
	if err := h.db.Select(&items,
		`SELECT id, prescription_id, medicine_code, dosage, quantity FROM prescription_items WHERE prescription_id = ?`, id); err != nil {
		h.serverError(w, err, "unable to load prescription items")
		return
	}
	respondJSON(w, http.StatusOK, prescriptionDetail{Prescription: prescription, Items: items})
}

func (h *Handler) deletePrescription(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		h.serverError(w, err, "unable to delete prescription")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM prescription_items WHERE prescription_id = ?`, id); err != nil {
		h.serverError(w, err, "unable to delete prescription items")
		return
	}
	res, err := tx.Exec(`DELETE FROM prescriptions WHERE id = ?`, id)
	if err != nil {
		h.serverError(w, err, "unable to delete prescription")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "prescription not found")
		return
	}
	if err := tx.Commit(); err != nil {
		h.serverError(w, err, "unable to delete prescription")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
