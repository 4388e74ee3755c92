package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/supply"
)

type supplyOrderItemRequest struct {
	MedicineCode string  `json:"medicine_code"`
	Quantity     int64   `json:"quantity"`
	UnitsPerPack int64   `json:"units_per_pack"`
	UnitCost     float64 `json:"unit_cost"`
	ExpiryDate   string  `json:"expiry_date"`
}

type supplyOrderRequest struct {
	SupplierID int64                    `json:"supplier_id"`
	OrderedAt  string                   `json:"ordered_at"`
	Items      []supplyOrderItemRequest `json:"items"`
}

type supplyOrderDetail struct {
	domain.SupplyOrder
	Items []domain.SupplyOrderItem `json:"items"`
}

func (h *Handler) createSupplyOrder(w http.ResponseWriter, r *http.Request) {
	var req supplyOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SupplierID == 0 || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "supplier_id and at least one item are required")
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
		h.serverError(w, err, "unable to create supply order")
		return
	}
	defer tx.Rollback()

	var orderID int64
	err = tx.QueryRowx(`INSERT INTO supply_orders (supplier_id, ordered_at) VALUES (?, ?) RETURNING id`,
		req.SupplierID, req.OrderedAt).Scan(&orderID)
	if err != nil {
		h.serverError(w, err, "unable to create supply order")
		return
	}
	for _, item := range req.Items {
		if _, err := tx.Exec(`INSERT INTO supply_order_items (order_id, medicine_code, quantity, units_per_pack, unit_cost, expiry_date)
                        VALUES (?, ?, ?, ?, ?, ?)`,
			orderID, item.MedicineCode, item.Quantity, item.UnitsPerPack, item.UnitCost, nullIfEmpty(item.ExpiryDate)); err != nil {
			h.serverError(w, err, "unable to save supply order items")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		h.serverError(w, err, "unable to create supply order")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"id": orderID, "status": domain.SupplyOrderPending})
}

func (h *Handler) listSupplyOrders(w http.ResponseWriter, r *http.Request) {
	var orders []domain.SupplyOrder
	if err := h.db.Select(&orders,
		`SELECT id, supplier_id, status, received, ordered_at, received_at, created_at FROM supply_orders ORDER BY id DESC`); err != nil {
		h.serverError(w, err, "unable to list supply orders")
		return
	}
	if len(orders) == 0 {
		respondJSON(w, http.StatusOK, []supplyOrderDetail{})
		return
	}

	ids := make([]int64, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}
	query, args, err := sqlx.In(`SELECT id, order_id, medicine_code, quantity, units_per_pack, unit_cost, expiry_date FROM supply_order_items WHERE order_id IN (?)`, ids)
	if err != nil {
		h.serverError(w, err, "unable to load supply order items")
		return
	}
	var items []domain.SupplyOrderItem
	if err := h.db.Select(&items, h.db.Rebind(query), args...); err != nil {
		h.serverError(w, err, "unable to load supply order items")
		return
	}
	byOrder := make(map[int64][]domain.SupplyOrderItem)
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	detail := make([]supplyOrderDetail, len(orders))
	for i, order := range orders {
		detail[i] = supplyOrderDetail{SupplyOrder: order, Items: byOrder[order.ID]}
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) getSupplyOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supply order id")
		return
	}
	var order domain.SupplyOrder
	err := h.db.Get(&order,
		`SELECT id, supplier_id, status, received, ordered_at, received_at, created_at FROM supply_orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "supply order not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "unable to load supply order")
		return
	}
	var items []domain.SupplyOrderItem
	if err := h.db.Select(&items,
		`SELECT id, order_id, medicine_code, quantity, units_per_pack, unit_cost, expiry_date FROM supply_order_items WHERE order_id = ?`, id); err != nil {
		h.serverError(w, err, "unable to load supply order items")
		return
	}
	respondJSON(w, http.StatusOK, supplyOrderDetail{SupplyOrder: order, Items: items})
}

func (h *Handler) markSupplyOrderReceived(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supply order id")
		return
	}
	h.receiveSupplyOrder(w, r, id)
}

// patchSupplyOrderStatus accepts only the transition to "received"; the
// pending state is where orders start and there is nowhere else to go.
func (h *Handler) patchSupplyOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supply order id")
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Status != domain.SupplyOrderReceived {
		respondError(w, http.StatusBadRequest, "status must be received")
		return
	}
	h.receiveSupplyOrder(w, r, id)
}

func (h *Handler) receiveSupplyOrder(w http.ResponseWriter, r *http.Request, id int64) {
	order, err := h.supply.MarkReceived(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, supply.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, "supply order not found")
		case errors.Is(err, supply.ErrAlreadyReceived):
			respondError(w, http.StatusBadRequest, "supply order already received")
		default:
			h.serverError(w, err, "unable to mark supply order received")
		}
		return
	}
	respondJSON(w, http.StatusOK, order)
}
