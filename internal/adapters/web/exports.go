package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"erp-ledger/internal/core"

	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	ledgerHeader       = []string{"Date", "Account", "Type", "Debit", "Credit", "Reference", "Running Balance"}
	trialBalanceHeader = []string{"Name", "Group", "Debit", "Credit", "Side"}
)

// apiExportGeneralLedger handles
// GET /api/reports/general-ledger/export?year=&month=[&account=]&format=csv|xlsx.
func (h *Handler) apiExportGeneralLedger(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(w, r)
	if !ok {
		return
	}
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	account := r.URL.Query().Get("account")
	gl, err := h.svc.GetGeneralLedger(r.Context(), period, account)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	records := make([][]string, 0, len(gl.Rows))
	for _, row := range gl.Rows {
		records = append(records, []string{
			row.Date.Format(time.DateOnly),
			csvSafe(row.Account),
			string(row.Type),
			row.Debit.StringFixed(2),
			row.Credit.StringFixed(2),
			csvSafe(row.Reference),
			runningBalance(gl, row),
		})
	}
	name := fmt.Sprintf("general-ledger-%04d-%02d", period.Year, period.Month)
	h.writeExport(w, r, format, name, "Ledger", ledgerHeader, records)
}

// apiExportTrialBalance handles
// GET /api/reports/trial-balance/export?year=&month=&format=csv|xlsx.
func (h *Handler) apiExportTrialBalance(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(w, r)
	if !ok {
		return
	}
	period, ok := periodFromQuery(w, r)
	if !ok {
		return
	}
	tb, err := h.svc.GetTrialBalance(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	records := make([][]string, 0, len(tb.Lines)+1)
	for _, l := range tb.Lines {
		records = append(records, []string{
			csvSafe(l.Name),
			csvSafe(l.Group),
			l.Debit.StringFixed(2),
			l.Credit.StringFixed(2),
			l.Side,
		})
	}
	records = append(records, []string{"Total", "", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2), tb.Status})
	name := fmt.Sprintf("trial-balance-%04d-%02d", period.Year, period.Month)
	h.writeExport(w, r, format, name, "Trial Balance", trialBalanceHeader, records)
}

// runningBalance is only meaningful for a single-account ledger.
func runningBalance(gl *core.GeneralLedger, row core.LedgerRow) string {
	if gl.Account == "" {
		return ""
	}
	return row.RunningBalance.StringFixed(2)
}

func exportFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	switch f := r.URL.Query().Get("format"); f {
	case "", "csv":
		return "csv", true
	case "xlsx":
		return "xlsx", true
	default:
		writeError(w, r, "format must be csv or xlsx", "BAD_REQUEST", http.StatusBadRequest)
		return "", false
	}
}

func (h *Handler) writeExport(w http.ResponseWriter, r *http.Request, format, name, sheet string, header []string, records [][]string) {
	if format == "xlsx" {
		f, err := buildWorkbook(sheet, header, records)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		if err := f.Write(w); err != nil {
			h.log.WithError(err).Warn("xlsx export interrupted")
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write(header)
	_ = cw.WriteAll(records)
	if err := cw.Error(); err != nil {
		h.log.WithError(err).Warn("csv export interrupted")
	}
}

// buildWorkbook writes header and records to a single sheet. Columns holding
// amounts are stored as text so the export matches the CSV byte for byte.
func buildWorkbook(sheet string, header []string, records [][]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	rows := append([][]string{header}, records...)
	for i, rec := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		values := make([]any, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f, nil
}

// csvSafe prevents CSV formula injection by prefixing cells that begin with a
// formula trigger character.
func csvSafe(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
