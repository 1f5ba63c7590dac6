package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/otp"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

var validOtpTypes = map[core.OtpType]bool{
	core.OtpEmailVerification: true,
	core.OtpPhoneVerification: true,
	core.Otp2FAEmail:          true,
	core.Otp2FAPhone:          true,
	core.OtpRegistration:      true,
}

type otpSendRequest struct {
	Type string `json:"type"`
}

// NewOtpSendHandler emite un código para el usuario autenticado.
func NewOtpSendHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpSendRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		t := core.OtpType(req.Type)
		if !validOtpTypes[t] {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_otp_type", "", httpx.ErrCodeInvalidJSON)
			return
		}
		id := httpx.AuthFrom(r.Context())

		if !httpx.CheckLimiter(w, r, c.OtpLimiter, "otp:"+id.UserID+":"+req.Type) {
			return
		}

		u, err := c.Store.GetUserByID(r.Context(), id.UserID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		if t.IsSMS() && u.Phone == "" {
			httpx.WriteError(w, http.StatusBadRequest, "phone_missing", "la cuenta no tiene teléfono", httpx.ErrCodeInvalidJSON)
			return
		}

		if err := c.Otp.Issue(r.Context(), u, t); err != nil {
			var sent *otp.AlreadySentError
			if errors.As(err, &sent) {
				secs := int(sent.NextAvailableIn.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httpx.WriteError(w, http.StatusTooManyRequests, "otp_already_sent",
					"ya hay un código vigente, reintentá en "+strconv.Itoa(secs)+"s", httpx.ErrCodeOtpAlreadySent)
				return
			}
			logger.From(r.Context()).Error("otp issue failed", logger.Err(err), logger.OtpType(req.Type))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		httpx.RecordOtpIssued(req.Type)
		httpx.WriteJSON(w, http.StatusAccepted, map[string]any{"sent": true})
	}
}

type otpVerifyRequest struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// NewOtpVerifyHandler consume un intento de validación. Un código
// correcto de verificación de contacto deja el flag correspondiente
// prendido.
func NewOtpVerifyHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpVerifyRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		t := core.OtpType(req.Type)
		if !validOtpTypes[t] || req.Code == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_otp_type", "", httpx.ErrCodeInvalidJSON)
			return
		}
		id := httpx.AuthFrom(r.Context())

		if err := c.Otp.Validate(r.Context(), id.UserID, t, req.Code); err != nil {
			switch {
			case errors.Is(err, otp.ErrExpired):
				httpx.WriteError(w, http.StatusBadRequest, "otp_expired", "", httpx.ErrCodeOtpExpired)
			case errors.Is(err, otp.ErrMismatch):
				httpx.WriteError(w, http.StatusBadRequest, "otp_invalid", "", httpx.ErrCodeOtpInvalid)
			case errors.Is(err, otp.ErrExhausted):
				httpx.WriteError(w, http.StatusTooManyRequests, "otp_attempts_exhausted", "", httpx.ErrCodeOtpExhausted)
			default:
				logger.From(r.Context()).Error("otp validate failed", logger.Err(err))
				httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			}
			return
		}

		// efecto del código según propósito
		var err error
		switch t {
		case core.OtpEmailVerification, core.OtpRegistration:
			err = c.Store.SetEmailVerified(r.Context(), id.UserID, true)
		case core.OtpPhoneVerification:
			err = c.Store.SetPhoneVerified(r.Context(), id.UserID, true)
		}
		if err != nil {
			logger.From(r.Context()).Error("flag update failed", logger.Err(err), logger.OtpType(req.Type))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{"verified": true})
	}
}
