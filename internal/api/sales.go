package api

import (
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/metrics"
	"pharmadesk/m/internal/sales"
)

type saleItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int64  `json:"quantity"`
	Dosage     string `json:"dosage"`
}

type prescriptionMapEntry struct {
	PrescriptionID int64  `json:"prescription_id"`
	Dosage         string `json:"dosage"`
	Note           string `json:"note"`
}

type saleRequest struct {
	CustomerID      int64                  `json:"customer_id"`
	PrescriptionID  *int64                 `json:"prescription_id"`
	PrescriptionIDs []int64                `json:"prescription_ids"`
	PrescriptionMap []prescriptionMapEntry `json:"prescription_map"`
	Items           []saleItemRequest      `json:"items"`
}

type saleResponse struct {
	Sale            domain.Sale       `json:"sale"`
	Items           []domain.SaleItem `json:"items"`
	TotalPrice      float64           `json:"total_price"`
	PrescriptionIDs []int64           `json:"prescription_ids"`
}

// links merges the three accepted prescription linkage forms; the service
// deduplicates the result.
func (req *saleRequest) links() []sales.PrescriptionLink {
	var out []sales.PrescriptionLink
	if req.PrescriptionID != nil {
		out = append(out, sales.PrescriptionLink{PrescriptionID: *req.PrescriptionID})
	}
	for _, id := range req.PrescriptionIDs {
		out = append(out, sales.PrescriptionLink{PrescriptionID: id})
	}
	for _, entry := range req.PrescriptionMap {
		out = append(out, sales.PrescriptionLink{
			PrescriptionID: entry.PrescriptionID,
			Dosage:         entry.Dosage,
			Note:           entry.Note,
		})
	}
	return out
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == 0 || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "customer_id and at least one item are required")
		return
	}
	items := make([]sales.LineInput, len(req.Items))
	for i, item := range req.Items {
		if item.MedicineID == "" {
			respondError(w, http.StatusBadRequest, "medicine_id is required for each item")
			return
		}
		items[i] = sales.LineInput{MedicineCode: item.MedicineID, Quantity: item.Quantity, Dosage: item.Dosage}
	}

	result, err := h.sales.Create(r.Context(), sales.CreateInput{
		CustomerID:    req.CustomerID,
		Items:         items,
		Prescriptions: req.links(),
	})
	if err != nil {
		var notFound *sales.MedicineNotFoundError
		var insufficient *sales.InsufficientStockError
		switch {
		case errors.As(err, &notFound), errors.Is(err, sales.ErrInvalidQuantity), errors.Is(err, sales.ErrNoItems):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &insufficient):
			metrics.RecordStockRejection()
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.serverError(w, err, "unable to create sale")
		}
		return
	}

	metrics.RecordSaleCreated()
	respondJSON(w, http.StatusCreated, saleResponse{
		Sale:            result.Sale,
		Items:           result.Items,
		TotalPrice:      result.Sale.TotalPrice,
		PrescriptionIDs: result.PrescriptionIDs,
	})
}

type saleDetail struct {
	domain.Sale
	Items           []saleItemDetail `json:"items"`
	PrescriptionIDs []int64          `json:"prescription_ids"`
}

type saleItemDetail struct {
	SaleID       int64   `db:"sale_id" json:"sale_id"`
	MedicineCode string  `db:"medicine_code" json:"medicine_code"`
	MedicineName string  `db:"medicine_name" json:"medicine_name"`
	Brand        string  `db:"brand" json:"brand"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	UnitPrice    float64 `db:"unit_price" json:"unit_price"`
	Dosage       string  `db:"dosage" json:"dosage,omitempty"`
	Subtotal     float64 `db:"subtotal" json:"subtotal"`
}

// loadSaleDetail joins item and prescription data for the given sales.
func (h *Handler) loadSaleDetail(salesRows []domain.Sale) ([]saleDetail, error) {
	if len(salesRows) == 0 {
		return []saleDetail{}, nil
	}
	ids := make([]int64, len(salesRows))
	for i, sale := range salesRows {
		ids[i] = sale.ID
	}

	itemsQuery, itemsArgs, err := sqlx.In(`SELECT si.sale_id, si.medicine_code, si.quantity, si.unit_price, si.dosage, si.subtotal,
                        COALESCE(m.name, '') AS medicine_name, COALESCE(m.brand, '') AS brand
                FROM sale_items si
                LEFT JOIN medicines m ON m.code = si.medicine_code
                WHERE si.sale_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var items []saleItemDetail
	if err := h.db.Select(&items, h.db.Rebind(itemsQuery), itemsArgs...); err != nil {
		return nil, err
	}
	itemsBySale := make(map[int64][]saleItemDetail)
	for _, item := range items {
		itemsBySale[item.SaleID] = append(itemsBySale[item.SaleID], item)
	}

	linksQuery, linksArgs, err := sqlx.In(`SELECT id, sale_id, prescription_id, dosage, note FROM sale_prescriptions WHERE sale_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var links []domain.SalePrescription
	if err := h.db.Select(&links, h.db.Rebind(linksQuery), linksArgs...); err != nil {
		return nil, err
	}
	linksBySale := make(map[int64][]int64)
	for _, link := range links {
		linksBySale[link.SaleID] = append(linksBySale[link.SaleID], link.PrescriptionID)
	}

	detail := make([]saleDetail, len(salesRows))
	for i, sale := range salesRows {
		saleItems := itemsBySale[sale.ID]
		if saleItems == nil {
			saleItems = []saleItemDetail{}
		}
		prescriptionIDs := linksBySale[sale.ID]
		if prescriptionIDs == nil {
			prescriptionIDs = []int64{}
		}
		detail[i] = saleDetail{Sale: sale, Items: saleItems, PrescriptionIDs: prescriptionIDs}
	}
	return detail, nil
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	var salesRows []domain.Sale
	if err := h.db.Select(&salesRows, `SELECT id, customer_id, total_price, created_at FROM sales ORDER BY id DESC`); err != nil {
		h.serverError(w, err, "unable to list sales")
		return
	}
	detail, err := h.loadSaleDetail(salesRows)
	if err != nil {
		h.serverError(w, err, "unable to load sale detail")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "sale_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	var salesRows []domain.Sale
	if err := h.db.Select(&salesRows, `SELECT id, customer_id, total_price, created_at FROM sales WHERE id = ?`, id); err != nil {
		h.serverError(w, err, "unable to load sale")
		return
	}
	if len(salesRows) == 0 {
		respondError(w, http.StatusNotFound, "sale not found")
		return
	}
	detail, err := h.loadSaleDetail(salesRows)
	if err != nil {
		h.serverError(w, err, "unable to load sale detail")
		return
	}
	respondJSON(w, http.StatusOK, detail[0])
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "sale_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	result, err := h.sales.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, sales.ErrSaleNotFound) {
			respondError(w, http.StatusNotFound, "sale not found")
			return
		}
		h.serverError(w, err, "unable to delete sale")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sale":  result.Sale,
		"items": result.Items,
	})
}
