package web

import (
	"net/http"

	"erp-ledger/internal/app"
)

// ── Books API handlers ────────────────────────────────────────────────────────

func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPreviewCogs handles GET /api/cogs/preview?product_id=&quantity=.
func (h *Handler) apiPreviewCogs(w http.ResponseWriter, r *http.Request) {
	productID, ok := intParam(w, r, "product_id")
	if !ok {
		return
	}
	qty, ok := intParam(w, r, "quantity")
	if !ok {
		return
	}
	result, err := h.svc.PreviewCogs(r.Context(), app.PreviewCogsRequest{ProductID: productID, Quantity: qty})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateSale handles POST /api/sales. The Idempotency-Key header is used
// when the body carries no key.
func (h *Handler) apiCreateSale(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	result, err := h.svc.CreateSale(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

func (h *Handler) apiAddPurchaseBatch(w http.ResponseWriter, r *http.Request) {
	var req app.AddBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.AddPurchaseBatch(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req app.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RecordPayment(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RecordExpense(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

func (h *Handler) apiInsights(w http.ResponseWriter, r *http.Request) {
	var req app.InsightsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.AskInsights(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
