package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/security/password"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/dropDatabas3/mercadito/internal/util"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewLoginHandler: login con email + password. Cualquier causa de fallo
// (email inexistente, sin credencial, password equivocado) responde el
// mismo invalid_credentials para no enumerar cuentas.
func NewLoginHandler(c *app.Container, cookies *httpx.CookieWriter) http.HandlerFunc {
	writeInvalid := func(w http.ResponseWriter) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email o password incorrectos", httpx.ErrCodeUnauthorized)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		// límite por (ip, email): frena fuerza bruta sin bloquear la IP entera
		if !httpx.CheckLimiter(w, r, c.LoginLimiter, "login:"+httpx.ClientIP(r)+":"+req.Email) {
			return
		}

		u, err := c.Store.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				logger.From(r.Context()).Error("user lookup failed", logger.Err(err))
			}
			writeInvalid(w)
			return
		}
		cred, err := c.Store.GetCredential(r.Context(), u.ID)
		if err != nil || cred.PasswordHash == nil {
			// cuenta sólo-social: no hay password contra el cual verificar
			writeInvalid(w)
			return
		}
		if !password.Verify(req.Password, *cred.PasswordHash) {
			logger.From(r.Context()).Info("login rechazado",
				logger.String("email", util.MaskEmail(req.Email)),
				logger.ClientIP(httpx.ClientIP(r)),
			)
			writeInvalid(w)
			return
		}

		accounts, err := c.Store.ListAccountsByUser(r.Context(), u.ID)
		if err != nil {
			logger.From(r.Context()).Error("accounts lookup failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		acc := personalAccount(accounts)
		if acc == nil {
			logger.From(r.Context()).Error("usuario sin cuentas", logger.UserID(u.ID))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		res, err := startSession(r.Context(), c, u, acc, r, "")
		if err != nil {
			logger.From(r.Context()).Error("session create failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		setSessionCookies(w, cookies, res)
		httpx.WriteJSON(w, http.StatusOK, res)
	}
}
