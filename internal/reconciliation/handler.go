package reconciliation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/muzaffarov/bozor-billing/internal/transport"
)

type ServiceAPI interface {
	Ledger(filter Filter) (*LedgerReport, error)
	Daily(day time.Time, scope string) (*DailyReport, error)
	Monthly(year, month int, scope string) (*MonthlyReport, error)
	ContractSummary(filter Filter) (*ContractSummaryReport, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListTransactions serves the raw ledger rows for a range.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	report, err := h.Service.Ledger(filter)
	if err != nil {
		h.Logger.Error("ListTransactions: service error", "error", err)
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.Service.Daily(day, r.URL.Query().Get("type"))
	if err != nil {
		h.Logger.Error("Daily: service error", "error", err)
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year := intQuery(r, "year", now.Year())
	month := intQuery(r, "month", int(now.Month()))

	report, err := h.Service.Monthly(year, month, r.URL.Query().Get("type"))
	if err != nil {
		h.Logger.Error("Monthly: service error", "error", err, "year", year, "month", month)
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.ContractSummary(filterFromQuery(r))
	if err != nil {
		h.Logger.Error("Summary: service error", "error", err)
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func filterFromQuery(r *http.Request) Filter {
	query := r.URL.Query()
	filter := Filter{
		Scope:  query.Get("type"),
		Method: query.Get("method"),
		Status: query.Get("status"),
	}
	if from, ok := parseTime(query.Get("from")); ok {
		filter.From = from
	}
	if to, ok := parseTime(query.Get("to")); ok {
		filter.To = to
	}
	if contractID, err := strconv.ParseInt(query.Get("contract_id"), 10, 64); err == nil && contractID > 0 {
		filter.ContractID = &contractID
	}
	return filter
}

// parseTime accepts a bare date or a full RFC3339 timestamp.
func parseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func intQuery(r *http.Request, key string, fallback int) int {
	if value, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return value
	}
	return fallback
}
