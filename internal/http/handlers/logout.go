package handlers

import (
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
)

// NewLogoutHandler borra la sesión y limpia las cookies. Idempotente.
func NewLogoutHandler(c *app.Container, cookies *httpx.CookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.AuthFrom(r.Context())
		if err := c.Sessions.Delete(r.Context(), id.SessionID); err != nil {
			// la sesión muere igual para el cliente; sólo queda el registro
			logger.From(r.Context()).Warn("session delete failed", logger.Err(err), logger.SessionID(id.SessionID))
		}
		cookies.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
