package periods

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/transport"
)

type ServiceAPI interface {
	ListPayments(contractID int64) ([]PeriodView, error)
	GetSnapshot(contractID int64) (*Snapshot, error)
	RecordManualPayment(contractID int64, input ManualPaymentInput, createdByID int64) ([]*billing.ContractPaymentPeriod, error)
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

// ListPayments returns the contract's period ledger plus a payment
// snapshot. The first read for an old contract seeds its periods from
// historical transactions.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	payments, err := h.Service.ListPayments(contractID)
	if err != nil {
		h.Logger.Error("ListPayments: service error", "error", err, "contract_id", contractID)
		h.WriteAppError(w, err)
		return
	}
	snapshot, err := h.Service.GetSnapshot(contractID)
	if err != nil {
		h.Logger.Error("ListPayments: snapshot error", "error", err, "contract_id", contractID)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"snapshot": snapshot,
	})
}

func (h *Handler) RecordManualPayment(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}

	var input ManualPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.Logger.Error("RecordManualPayment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	createdByID := internal.UserIDFromContext(r.Context())
	allocated, err := h.Service.RecordManualPayment(contractID, input, createdByID)
	if err != nil {
		h.Logger.Error("RecordManualPayment: service error",
			"error", err,
			"contract_id", contractID,
			"transfer_number", input.TransferNumber)
		h.WriteAppError(w, err)
		return
	}

	h.Logger.Info("RecordManualPayment: periods allocated",
		"contract_id", contractID,
		"months", len(allocated),
		"created_by", createdByID)
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"allocated": allocated,
	})
}

func (h *Handler) contractID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	contractID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || contractID <= 0 {
		h.Logger.Error("invalid contract ID", "id", idStr)
		h.WriteError(w, http.StatusBadRequest, "invalid contract ID")
		return 0, false
	}
	return contractID, true
}
