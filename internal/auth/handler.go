package auth

import (
	"encoding/json"
	"net/http"

	"github.com/muzaffarov/bozor-billing/internal/transport"
)

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (*LoginResponse, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Login: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.Service.Authenticate(dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.Logger.Info("Login: operator authenticated", "user_id", response.User.ID)
	h.WriteJSON(w, http.StatusOK, response)
}
