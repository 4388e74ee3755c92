package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmadesk/m/internal/config"
	"pharmadesk/m/internal/logging"
	"pharmadesk/m/internal/metrics"
	"pharmadesk/m/internal/sales"
	"pharmadesk/m/internal/supply"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db     *sqlx.DB
	cfg    config.Config
	log    zerolog.Logger
	sales  *sales.Service
	supply *supply.Service
}

// New constructs a Handler and its workflow services.
func New(db *sqlx.DB, cfg config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		db:     db,
		cfg:    cfg,
		log:    log,
		sales:  sales.New(db, log),
		supply: supply.New(db, log),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(h.log))
	r.Use(metrics.Middleware)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicines)
			r.Post("/", h.createMedicine)
			r.Get("/{code}", h.getMedicine)
			r.Put("/{code}", h.updateMedicine)
			r.Delete("/{code}", h.deleteMedicine)
		})

		pr.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.listSuppliers)
			r.Post("/", h.createSupplier)
			r.Get("/{id}", h.getSupplier)
			r.Put("/{id}", h.updateSupplier)
			r.Delete("/{id}", h.deleteSupplier)
		})

		pr.Route("/customers", func(r chi.Router) {
			r.Get("/", h.listCustomers)
			r.Post("/", h.createCustomer)
			r.Get("/{id}", h.getCustomer)
			r.Put("/{id}", h.updateCustomer)
			r.Delete("/{id}", h.deleteCustomer)
		})

		pr.Route("/doctors", func(r chi.Router) {
			r.Get("/", h.listDoctors)
			r.Post("/", h.createDoctor)
			r.Get("/{id}", h.getDoctor)
			r.Put("/{id}", h.updateDoctor)
			r.Delete("/{id}", h.deleteDoctor)
		})

		pr.Route("/prescriptions", func(r chi.Router) {
			r.Get("/", h.listPrescriptions)
			r.Post("/", h.createPrescription)
			r.Get("/{id}", h.getPrescription)
			r.Delete("/{id}", h.deletePrescription)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Post("/", h.createSale)
			r.Get("/", h.listSales)
			r.Get("/medicines", h.searchSaleMedicines)
			r.Get("/{sale_id}", h.getSale)
			r.Delete("/{sale_id}", h.deleteSale)
		})

		pr.Route("/supply-orders", func(r chi.Router) {
			r.Get("/", h.listSupplyOrders)
			r.Post("/", h.createSupplyOrder)
			r.Get("/{id}", h.getSupplyOrder)
			r.Post("/{id}/mark-received", h.markSupplyOrderReceived)
			r.Patch("/{order_id}/status", h.patchSupplyOrderStatus)
		})

		pr.Get("/dashboard", h.dashboard)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
