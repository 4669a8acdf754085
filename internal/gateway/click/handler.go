package click

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/muzaffarov/bozor-billing/internal/transport"
)

// Handler terminates the Click webhook endpoints. Click retries on any
// non-200 status, so the reply is always 200 with an envelope code.
type Handler struct {
	*transport.BaseHandler
	service *Service
	logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

func (h *Handler) HandlePrepare(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, h.service.Prepare(req))
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, h.service.Complete(req))
}

// decode accepts both form-encoded and JSON callbacks. An unreadable
// body still gets a 200 envelope so Click stops retrying.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ClickRequest, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		body, err := io.ReadAll(r.Body)
		if err == nil {
			if req, parseErr := ParseJSON(body); parseErr == nil {
				return req, true
			}
		}
		h.logger.Warn("unreadable click json callback", "error", err)
		h.WriteJSON(w, http.StatusOK, &ClickResponse{Error: CodeSystemError, ErrorNote: "Bad request"})
		return nil, false
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("unreadable click form callback", "error", err)
		h.WriteJSON(w, http.StatusOK, &ClickResponse{Error: CodeSystemError, ErrorNote: "Bad request"})
		return nil, false
	}
	return ParseForm(r.PostForm), true
}
