package api

import (
	"net/http"
	"strings"
	"testing"
)

func seedSupplyFixtures(t *testing.T, router http.Handler, token string) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/suppliers", token,
		`{"name":"MediSupply","contact_name":"","phone":"","email":"","address":""}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed supplier: %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, router, http.MethodPost, "/medicines", token,
		`{"code":"MED-A","name":"Aspirin","brand":"Bayer","unit_price":5.0,"quantity":0,"packs":0,"supplier_id":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed medicine: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSupplyOrderReceiptOverHTTP(t *testing.T) {
	db, router, token := newTestRouter(t)
	seedSupplyFixtures(t, router, token)

	rec := doRequest(t, router, http.MethodPost, "/supply-orders", token,
		`{"supplier_id":1,"ordered_at":"2026-08-25","items":[{"medicine_code":"MED-A","quantity":2,"units_per_pack":10,"unit_cost":1.0,"expiry_date":"2027-01-01"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/supply-orders/1/mark-received", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark received: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var qty, packs int64
	if err := db.QueryRow(`SELECT quantity, packs FROM medicines WHERE code = 'MED-A'`).Scan(&qty, &packs); err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if qty != 20 || packs != 2 {
		t.Fatalf("expected quantity 20 and packs 2, got %d/%d", qty, packs)
	}

	// Second receipt is rejected and mutates nothing.
	rec = doRequest(t, router, http.MethodPost, "/supply-orders/1/mark-received", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second receipt: expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "already received") {
		t.Fatalf("expected already-received message, got %s", rec.Body.String())
	}
	if err := db.QueryRow(`SELECT quantity, packs FROM medicines WHERE code = 'MED-A'`).Scan(&qty, &packs); err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if qty != 20 || packs != 2 {
		t.Fatalf("expected no further mutation, got %d/%d", qty, packs)
	}
}

func TestSupplyOrderStatusPatch(t *testing.T) {
	db, router, token := newTestRouter(t)
	seedSupplyFixtures(t, router, token)

	rec := doRequest(t, router, http.MethodPost, "/supply-orders", token,
		`{"supplier_id":1,"ordered_at":"2026-08-25","items":[{"medicine_code":"MED-A","quantity":1,"units_per_pack":6,"unit_cost":1.0,"expiry_date":""}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPatch, "/supply-orders/1/status", token, `{"status":"cancelled"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported status: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPatch, "/supply-orders/1/status", token, `{"status":"received"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var qty int64
	if err := db.Get(&qty, `SELECT quantity FROM medicines WHERE code = 'MED-A'`); err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if qty != 6 {
		t.Fatalf("expected quantity 6, got %d", qty)
	}
}

func TestSupplyOrderNotFound(t *testing.T) {
	_, router, token := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/supply-orders/404/mark-received", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}
