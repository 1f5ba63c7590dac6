package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/security/password"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// NewRegisterHandler: alta de usuario con credencial de password. Crea
// user + credencial + cuenta personal en una transacción, emite el OTP
// de registro y deja la sesión iniciada.
func NewRegisterHandler(c *app.Container, cookies *httpx.CookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if _, err := mail.ParseAddress(req.Email); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "email inválido", httpx.ErrCodeInvalidJSON)
			return
		}
		if len(req.Password) < 8 {
			httpx.WriteError(w, http.StatusBadRequest, "weak_password", "mínimo 8 caracteres", httpx.ErrCodeInvalidJSON)
			return
		}

		hash, err := password.Hash(password.Default, req.Password)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		u := &core.User{
			Email: req.Email,
			Name:  strings.TrimSpace(req.Name),
			Phone: strings.TrimSpace(req.Phone),
		}
		acc, err := c.Store.CreateUserWithAccount(r.Context(), u, &hash)
		if err != nil {
			if errors.Is(err, core.ErrConflict) {
				httpx.WriteError(w, http.StatusConflict, "email_taken", "ya existe una cuenta con ese email", httpx.ErrCodeUnauthorized)
				return
			}
			logger.From(r.Context()).Error("register failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		// OTP de registro: la entrega es best-effort, el alta ya quedó.
		if err := c.Otp.Issue(r.Context(), u, core.OtpRegistration); err != nil {
			logger.From(r.Context()).Warn("registration otp issue failed", logger.Err(err), logger.UserID(u.ID))
		} else {
			httpx.RecordOtpIssued(string(core.OtpRegistration))
		}

		res, err := startSession(r.Context(), c, u, acc, r, "")
		if err != nil {
			logger.From(r.Context()).Error("session create failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		setSessionCookies(w, cookies, res)
		httpx.WriteJSON(w, http.StatusCreated, res)
	}
}
