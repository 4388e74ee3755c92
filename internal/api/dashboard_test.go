package api

import (
	"net/http"
	"testing"
)

func TestDashboardAggregates(t *testing.T) {
	db, router, token := newTestRouter(t)

	medicines := []string{
		`{"code":"MED-A","name":"Aspirin","brand":"","unit_price":5.0,"quantity":50,"packs":0,"supplier_id":null}`,
		`{"code":"MED-B","name":"Ibuprofen","brand":"","unit_price":3.0,"quantity":2,"packs":0,"supplier_id":null}`,
	}
	for _, body := range medicines {
		rec := doRequest(t, router, http.MethodPost, "/medicines", token, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed medicine: %d body=%s", rec.Code, rec.Body.String())
		}
	}
	rec := doRequest(t, router, http.MethodPost, "/customers", token,
		`{"name":"Jordan Roe","phone":"","email":"","address":""}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed customer: %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodPost, "/doctors", token,
		`{"name":"Dr. Kim","specialty":"","phone":"","email":""}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed doctor: %d", rec.Code)
	}

	// A pending prescription, never linked to a sale.
	rec = doRequest(t, router, http.MethodPost, "/prescriptions", token,
		`{"customer_id":1,"doctor_id":1,"issued_at":"2026-08-30","notes":"","items":[{"medicine_code":"MED-B","dosage":"","quantity":1}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed prescription: %d body=%s", rec.Code, rec.Body.String())
	}

	// A sale booked today.
	rec = doRequest(t, router, http.MethodPost, "/sales", token,
		`{"customer_id":1,"items":[{"medicine_id":"MED-A","quantity":2}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed sale: %d body=%s", rec.Code, rec.Body.String())
	}

	// An expired lot recorded on a supply-order line.
	if _, err := db.Exec(`INSERT INTO supply_orders (supplier_id, ordered_at) VALUES (1, '2020-01-01')`); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO supply_order_items (order_id, medicine_code, quantity, units_per_pack, expiry_date) VALUES (1, 'MED-B', 1, 10, '2020-06-01')`); err != nil {
		t.Fatalf("seed order item: %v", err)
	}

	rec = doRequest(t, router, http.MethodGet, "/dashboard", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		MedicineCount int64 `json:"medicine_count"`
		TotalStock    int64 `json:"total_stock"`
		LowStock      []struct {
			Code string `json:"code"`
		} `json:"low_stock"`
		ExpiredLots []struct {
			MedicineCode   string `json:"medicine_code"`
			EarliestExpiry string `json:"earliest_expiry"`
		} `json:"expired_lots"`
		TodaySalesTotal      float64 `json:"today_sales_total"`
		TodaySalesCount      int64   `json:"today_sales_count"`
		PendingPrescriptions int64   `json:"pending_prescriptions"`
	}
	decodeBody(t, rec, &resp)

	if resp.MedicineCount != 2 {
		t.Fatalf("expected 2 medicines, got %d", resp.MedicineCount)
	}
	if resp.TotalStock != 50 { // 50 - 2 sold + 2 on MED-B
		t.Fatalf("expected total stock 50, got %d", resp.TotalStock)
	}
	if len(resp.LowStock) != 1 || resp.LowStock[0].Code != "MED-B" {
		t.Fatalf("expected MED-B in low stock, got %+v", resp.LowStock)
	}
	if len(resp.ExpiredLots) != 1 || resp.ExpiredLots[0].MedicineCode != "MED-B" || resp.ExpiredLots[0].EarliestExpiry != "2020-06-01" {
		t.Fatalf("expected expired lot for MED-B, got %+v", resp.ExpiredLots)
	}
	if resp.TodaySalesCount != 1 || resp.TodaySalesTotal != 10.0 {
		t.Fatalf("expected one sale totalling 10.0 today, got %d/%v", resp.TodaySalesCount, resp.TodaySalesTotal)
	}
	if resp.PendingPrescriptions != 1 {
		t.Fatalf("expected 1 pending prescription, got %d", resp.PendingPrescriptions)
	}
}
