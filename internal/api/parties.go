package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pharmadesk/m/domain"
)

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// Suppliers

type supplierRequest struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	var suppliers []domain.Supplier
	if err := h.db.Select(&suppliers, `SELECT id, name, contact_name, phone, email, address, created_at FROM suppliers ORDER BY name`); err != nil {
		h.serverError(w, err, "unable to list suppliers")
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	var id int64
	err := h.db.QueryRowx(`INSERT INTO suppliers (name, contact_name, phone, email, address) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		req.Name, req.ContactName, req.Phone, req.Email, req.Address).Scan(&id)
	if err != nil {
		h.serverError(w, err, "unable to create supplier")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var supplier domain.Supplier
	err := h.db.Get(&supplier, `SELECT id, name, contact_name, phone, email, address, created_at FROM suppliers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "supplier not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "unable to load supplier")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	res, err := h.db.Exec(`UPDATE suppliers SET name = ?, contact_name = ?, phone = ?, email = ?, address = ? WHERE id = ?`,
		req.Name, req.ContactName, req.Phone, req.Email, req.Address, id)
	if err != nil {
		h.serverError(w, err, "unable to update supplier")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "supplier not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	res, err := h.db.Exec(`DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		h.serverError(w, err, "unable to delete supplier")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "supplier not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Customers

type customerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	var customers []domain.Customer
	if err := h.db.Select(&customers, `SELECT id, name, phone, email, address, created_at FROM customers ORDER BY name`); err != nil {
		h.serverError(w, err, "unable to list customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	var id int64
	err := h.db.QueryRowx(`INSERT INTO customers (name, phone, email, address) VALUES (?, ?, ?, ?) RETURNING id`,
		req.Name, req.Phone, req.Email, req.Address).Scan(&id)
	if err != nil {
		h.serverError(w, err, "unable to create customer")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var customer domain.Customer
	err := h.db.Get(&customer, `SELECT id, name, phone, email, address, created_at FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "unable to load customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	res, err := h.db.Exec(`UPDATE customers SET name = ?, phone = ?, email = ?, address = ? WHERE id = ?`,
		req.Name, req.Phone, req.Email, req.Address, id)
	if err != nil {
		h.serverError(w, err, "unable to update customer")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	res, err := h.db.Exec(`DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		h.serverError(w, err, "unable to delete customer")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Doctors

type doctorRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (h *Handler) listDoctors(w http.ResponseWriter, r *http.Request) {
	var doctors []domain.Doctor
	if err := h.db.Select(&doctors, `SELECT id, name, specialty, phone, email, created_at FROM doctors ORDER BY name`); err != nil {
		h.serverError(w, err, "unable to list doctors")
		return
	}
	respondJSON(w, http.StatusOK, doctors)
}

func (h *Handler) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req doctorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	var id int64
	err := h.db.QueryRowx(`INSERT INTO doctors (name, specialty, phone, email) VALUES (?, ?, ?, ?) RETURNING id`,
		req.Name, req.Specialty, req.Phone, req.Email).Scan(&id)
	if err != nil {
		h.serverError(w, err, "unable to create doctor")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) getDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	var doctor domain.Doctor
	err := h.db.Get(&doctor, `SELECT id, name, specialty, phone, email, created_at FROM doctors WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "unable to load doctor")
		return
	}
	respondJSON(w, http.StatusOK, doctor)
}

func (h *Handler) updateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	var req doctorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	res, err := h.db.Exec(`UPDATE doctors SET name = ?, specialty = ?, phone = ?, email = ? WHERE id = ?`,
		req.Name, req.Specialty, req.Phone, req.Email, id)
	if err != nil {
		h.serverError(w, err, "unable to update doctor")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	res, err := h.db.Exec(`DELETE FROM doctors WHERE id = ?`, id)
	if err != nil {
		h.serverError(w, err, "unable to delete doctor")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
