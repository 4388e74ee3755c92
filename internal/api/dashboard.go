package api

import (
	"net/http"

	"pharmadesk/m/domain"
)

type expiredLot struct {
	MedicineCode   string `db:"medicine_code" json:"medicine_code"`
	Name           string `db:"name" json:"name"`
	Brand          string `db:"brand" json:"brand"`
	EarliestExpiry string `db:"earliest_expiry" json:"earliest_expiry"`
}

type dashboardResponse struct {
	MedicineCount        int64             `json:"medicine_count"`
	TotalStock           int64             `json:"total_stock"`
	LowStock             []domain.Medicine `json:"low_stock"`
	ExpiredLots          []expiredLot      `json:"expired_lots"`
	TodaySalesTotal      float64           `json:"today_sales_total"`
	TodaySalesCount      int64             `json:"today_sales_count"`
	PendingPrescriptions int64             `json:"pending_prescriptions"`
}

// dashboard is a read-only aggregation; nothing here mutates state and the
// core workflows do not depend on it.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	var resp dashboardResponse

	if err := h.db.Get(&resp.MedicineCount, `SELECT COUNT(*) FROM medicines`); err != nil {
		h.serverError(w, err, "unable to load dashboard")
		return
	}
	if err := h.db.Get(&resp.TotalStock, `SELECT COALESCE(SUM(quantity), 0) FROM medicines`); err != nil {
		h.serverError(w, err, "unable to load dashboard")
		return
	}
	if err := h.db.Select(&resp.LowStock,
		`SELECT `+medicineColumns+` FROM medicines WHERE quantity < ? ORDER BY quantity, name`,
		h.cfg.LowStockThreshold); err != nil {
		h.serverError(w, err, "unable to load dashboard")
		return
	}
	if resp.LowStock == nil {
		resp.LowStock = []domain.Medicine{}
	}

	// Earliest known expiry per medicine comes from supply-order lines; a
	// past date means at least one delivered lot has expired.
	if err := h.db.Select(&resp.ExpiredLots,
		`SELECT m.code AS medicine_code, m.name, m.brand, MIN(soi.expiry_date) AS earliest_expiry
                FROM supply_order_items soi
                JOIN medicines m ON m.code = soi.medicine_code
                WHERE soi.expiry_date IS NOT NULL
                GROUP BY m.code, m.name, m.brand
                HAVING MIN(soi.expiry_date) < DATE('now')
                ORDER BY earliest_expiry`); err != nil {
		h.serverError(w, err, "unable to load dashboard")
		return
	}
	if resp.ExpiredLots == nil {
		resp.ExpiredLots = []expiredLot{}
	}

	if err := h.db.QueryRow(
		`SELECT COALESCE(SUM(total_price), 0), COUNT(*) FROM sales WHERE DATE(created_at) = DATE('now')`).
		Scan(&resp.TodaySalesTotal, &resp.TodaySalesCount); err != nil {
		h.serverError(w, err, "unable to load dashboard")
		return
	}

	if err := h.db.Get(&resp.PendingPrescriptions,
		`SELECT COUNT(*) FROM prescriptions
                WHERE is_sale = 0 AND id NOT IN (SELECT prescription_id FROM sale_prescriptions)`); err != nil {
		h.serverError(w, err, "unable to load dashboard")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
