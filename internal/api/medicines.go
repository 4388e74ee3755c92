package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pharmadesk/m/domain"
)

type medicineRequest struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int64   `json:"quantity"`
	Packs      int64   `json:"packs"`
	SupplierID *int64  `json:"supplier_id"`
}

const medicineColumns = `code, name, brand, unit_price, quantity, packs, supplier_id, created_at, updated_at`

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	var medicines []domain.Medicine
	if err := h.db.Select(&medicines, `SELECT `+medicineColumns+` FROM medicines ORDER BY name`); err != nil {
		h.serverError(w, err, "unable to list medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}
	if req.UnitPrice < 0 || req.Quantity < 0 || req.Packs < 0 {
		respondError(w, http.StatusBadRequest, "unit_price, quantity and packs must not be negative")
		return
	}
	_, err := h.db.Exec(`INSERT INTO medicines (code, name, brand, unit_price, quantity, packs, supplier_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.Code, req.Name, req.Brand, req.UnitPrice, req.Quantity, req.Packs, req.SupplierID)
	if err != nil {
		respondError(w, http.StatusConflict, "medicine code already exists")
		return
	}
	var medicine domain.Medicine
	if err := h.db.Get(&medicine, `SELECT `+medicineColumns+` FROM medicines WHERE code = ?`, req.Code); err != nil {
		h.serverError(w, err, "unable to load created medicine")
		return
	}
	respondJSON(w, http.StatusCreated, medicine)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var medicine domain.Medicine
	err := h.db.Get(&medicine, `SELECT `+medicineColumns+` FROM medicines WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "unable to load medicine")
		return
	}
	respondJSON(w, http.StatusOK, medicine)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.UnitPrice < 0 || req.Quantity < 0 || req.Packs < 0 {
		respondError(w, http.StatusBadRequest, "unit_price, quantity and packs must not be negative")
		return
	}
	res, err := h.db.Exec(`UPDATE medicines SET name = ?, brand = ?, unit_price = ?, quantity = ?, packs = ?, supplier_id = ?, updated_at = CURRENT_TIMESTAMP WHERE code = ?`,
		req.Name, req.Brand, req.UnitPrice, req.Quantity, req.Packs, req.SupplierID, code)
	if err != nil {
		h.serverError(w, err, "unable to update medicine")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	code := chi.URLParam(r, "code")
	res, err := h.db.Exec(`DELETE FROM medicines WHERE code = ?`, code)
	if err != nil {
		h.serverError(w, err, "unable to delete medicine")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// searchSaleMedicines backs the sale form's lookup box: case-insensitive
// substring match across code, name and brand, capped at 20 rows.
func (h *Handler) searchSaleMedicines(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	var medicines []domain.Medicine
	if q == "" {
		if err := h.db.Select(&medicines, `SELECT `+medicineColumns+` FROM medicines ORDER BY name LIMIT 20`); err != nil {
			h.serverError(w, err, "unable to search medicines")
			return
		}
	} else {
		like := "%" + strings.ToLower(q) + "%"
		err := h.db.Select(&medicines, `SELECT `+medicineColumns+` FROM medicines
                        WHERE LOWER(code) LIKE ? OR LOWER(name) LIKE ? OR LOWER(brand) LIKE ?
                        ORDER BY name LIMIT 20`, like, like, like)
		if err != nil {
			h.serverError(w, err, "unable to search medicines")
			return
		}
	}
	respondJSON(w, http.StatusOK, medicines)
}
