package handlers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/session"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

type switchRequest struct {
	AccountID string `json:"account_id"`
}

// NewSwitchHandler cambia la cuenta activa del usuario. Es un switch
// duro: la sesión anterior se borra y se crea una nueva dentro del mismo
// grupo, con tokens frescos para la cuenta destino.
func NewSwitchHandler(c *app.Container, cookies *httpx.CookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req switchRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		id := httpx.AuthFrom(r.Context())

		acc, err := c.Store.GetAccountByID(r.Context(), req.AccountID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				httpx.WriteError(w, http.StatusNotFound, "account_not_found", "", 0)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		// sólo entre cuentas propias
		if acc.UserID != id.UserID {
			httpx.WriteError(w, http.StatusForbidden, "permission_denied", "", httpx.ErrCodePermissionDenied)
			return
		}

		u, err := c.Store.GetUserByID(r.Context(), id.UserID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		// conservar la familia de sesión del device
		groupID := ""
		if sid, err := session.Parse(id.SessionID); err == nil {
			groupID = sid.GroupID
		}
		if err := c.Sessions.Delete(r.Context(), id.SessionID); err != nil {
			logger.From(r.Context()).Warn("old session delete failed", logger.Err(err), logger.SessionID(id.SessionID))
		}

		res, err := startSession(r.Context(), c, u, acc, r, groupID)
		if err != nil {
			logger.From(r.Context()).Error("session create failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		setSessionCookies(w, cookies, res)
		httpx.WriteJSON(w, http.StatusOK, res)
	}
}
