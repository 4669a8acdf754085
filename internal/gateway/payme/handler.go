package payme

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/transport"
)

// Handler terminates the single Payme JSON-RPC endpoint. Auth failures
// are still HTTP 200: Payme treats any other status as a gateway
// malfunction and retries.
type Handler struct {
	*transport.BaseHandler
	service *Service
	cfg     internal.PaymeConfig
	logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, cfg internal.PaymeConfig, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		cfg:         cfg,
		logger:      logger,
	}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("unreadable payme request", "error", err)
		h.WriteJSON(w, http.StatusOK, &Response{Error: ErrInternal.ref()})
		return
	}

	if !h.authorized(r) {
		h.logger.Warn("payme authorization rejected", "method", req.Method)
		h.WriteJSON(w, http.StatusOK, &Response{ID: req.ID, Error: ErrInvalidAuthorization.ref()})
		return
	}

	h.WriteJSON(w, http.StatusOK, h.service.Handle(&req))
}

func (h *Handler) authorized(r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Basic ") {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return false
	}
	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return false
	}
	return username == h.cfg.MerchantID && password == h.cfg.Password
}
