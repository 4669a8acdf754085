package auth

import (
	"net/http"
	"strings"

	"github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/transport"
)

// Middleware guards the operator surface. Gateway webhooks are mounted
// outside it; they carry their own signature and basic-auth checks.
type Middleware struct {
	*transport.BaseHandler
	service ServiceAPI
}

func NewMiddleware(baseHandler *transport.BaseHandler, service ServiceAPI) *Middleware {
	return &Middleware{
		BaseHandler: baseHandler,
		service:     service,
	}
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.WriteAppError(w, internal.ErrInvalidToken)
			return
		}

		claims, err := m.service.ValidateAccessToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			m.Logger.Warn("token rejected", "error", err)
			m.WriteAppError(w, err)
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
