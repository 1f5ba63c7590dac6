package handlers

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	SessionExpires  time.Time `json:"session_expires_at"`
	RolledOver      bool      `json:"rolled_over"`
}

// NewRefreshHandler: refresh explícito para clientes sin cookies (apps
// nativas). Verifica el refresh contra la sesión viva, re-lee la cuenta
// y emite un access nuevo; extiende la sesión si entró en la ventana de
// rollover.
func NewRefreshHandler(c *app.Container, cookies *httpx.CookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// el token puede venir por body o por cookie
		var req refreshRequest
		if r.Body != nil && r.ContentLength > 0 {
			if !httpx.ReadJSON(w, r, &req) {
				return
			}
		}
		if req.RefreshToken == "" {
			_, req.RefreshToken = cookies.ReadCredentials(r)
		}
		if req.RefreshToken == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "falta refresh token", httpx.ErrCodeUnauthorized)
			return
		}

		rc, err := c.Issuer.ParseRefresh(req.RefreshToken)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "token_invalid", "", httpx.ErrCodeTokenInvalid)
			return
		}
		vr, err := c.Sessions.Verify(r.Context(), rc.SessionID)
		if err != nil {
			logger.From(r.Context()).Error("session verify failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		if !vr.Valid {
			httpx.WriteError(w, http.StatusUnauthorized, "session_invalid", "", httpx.ErrCodeSessionInvalid)
			return
		}

		claims, err := c.Authz.BuildAccessClaims(r.Context(), vr.Session.AccountID, rc.SessionID)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "session_invalid", "", httpx.ErrCodeSessionInvalid)
			return
		}
		access, accessExp, err := c.Issuer.SignAccess(*claims)
		if err != nil {
			logger.From(r.Context()).Error("access sign failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		sessionExp := vr.Session.ExpireAt
		rolled := false
		if vr.NeedsRollover {
			if newExp, err := c.Sessions.Rollover(r.Context(), vr.Session.ID); err == nil {
				sessionExp = newExp
				rolled = true
			} else {
				logger.From(r.Context()).Warn("rollover failed", logger.Err(err), logger.SessionID(vr.Session.ID))
			}
		}

		cookies.SetAccess(w, access, accessExp)
		httpx.WriteJSON(w, http.StatusOK, refreshResponse{
			AccessToken:     access,
			AccessExpiresAt: accessExp,
			SessionExpires:  sessionExp,
			RolledOver:      rolled,
		})
	}
}
