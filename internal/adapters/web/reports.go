package web

import (
	"net/http"
)

// ── Report API handlers ───────────────────────────────────────────────────────

// apiGeneralLedger handles GET /api/reports/general-ledger?year=&month=[&account=].
func (h *Handler) apiGeneralLedger(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetGeneralLedger(r.Context(), period, r.URL.Query().Get("account"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiTrialBalance handles GET /api/reports/trial-balance?year=&month=.
func (h *Handler) apiTrialBalance(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetTrialBalance(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiBalanceSheet(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetBalanceSheet(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiCashFlow(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetCashFlow(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetProfitAndLoss(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiReconciliation(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetReconciliation(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiExceptions(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetExceptionReport(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAging handles GET /api/reports/aging. Ages are computed as of now.
func (h *Handler) apiAging(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetAgingReport(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPartyPerformance handles GET /api/reports/party-performance?year=&month=.
func (h *Handler) apiPartyPerformance(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetPartyPerformance(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiAlerts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetAlerts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiVerify handles GET /api/verify?year=&month=. A failed check is still a
// 200; the body's ok field carries the verdict.
func (h *Handler) apiVerify(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.VerifyBooks(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
