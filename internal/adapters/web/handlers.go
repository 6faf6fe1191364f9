package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"erp-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService the routes call into.
type Handler struct {
	svc app.ApplicationService
	log logrus.FieldLogger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log logrus.FieldLogger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Reports ───────────────────────────────────────────────────────────
		r.Get("/api/reports/general-ledger", h.apiGeneralLedger)
		r.Get("/api/reports/general-ledger/export", h.apiExportGeneralLedger)
		r.Get("/api/reports/trial-balance", h.apiTrialBalance)
		r.Get("/api/reports/trial-balance/export", h.apiExportTrialBalance)
		r.Get("/api/reports/balance-sheet", h.apiBalanceSheet)
		r.Get("/api/reports/cash-flow", h.apiCashFlow)
		r.Get("/api/reports/profit-and-loss", h.apiProfitAndLoss)
		r.Get("/api/reports/reconciliation", h.apiReconciliation)
		r.Get("/api/reports/exceptions", h.apiExceptions)
		r.Get("/api/reports/aging", h.apiAging)
		r.Get("/api/reports/party-performance", h.apiPartyPerformance)
		r.Get("/api/alerts", h.apiAlerts)
		r.Get("/api/verify", h.apiVerify)

		// ── Books ─────────────────────────────────────────────────────────────
		r.Get("/api/products", h.apiListProducts)
		r.Get("/api/cogs/preview", h.apiPreviewCogs)
		r.Post("/api/sales", h.apiCreateSale)
		r.Post("/api/purchases", h.apiAddPurchaseBatch)
		r.Post("/api/payments", h.apiRecordPayment)
		r.Post("/api/expenses", h.apiRecordExpense)

		r.Post("/api/insights", h.apiInsights)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// periodFromQuery reads ?year=&month=. Range checks happen in the
// application layer.
func periodFromQuery(w http.ResponseWriter, r *http.Request) (app.PeriodRequest, bool) {
	var p app.PeriodRequest
	var ok bool
	if p.Year, ok = intParam(w, r, "year"); !ok {
		return p, false
	}
	if p.Month, ok = intParam(w, r, "month"); !ok {
		return p, false
	}
	return p, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, r, name+" is required", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, name+" must be an integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}
