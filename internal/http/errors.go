package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/mercadito/internal/authz"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        int    `json:"error_code,omitempty"`
	RetryAfterSec    int    `json:"retry_after_seconds,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		ErrorCode:        errCode,
		RequestID:        rid,
	})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON: decodifica JSON de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json", 1102)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido", 1102)
		return false
	}
	return true
}

// Códigos numéricos estables de la API. Los clientes switchean por estos,
// no por el texto.
const (
	ErrCodeInvalidJSON = 1102
	ErrCodeRateLimited = 1401
	ErrCodeInternal    = 1500

	ErrCodeUnauthorized      = 1001
	ErrCodeAccountSuspended  = 1002
	ErrCodeEmailNotVerified  = 1003
	ErrCodePhoneNotVerified  = 1004
	ErrCodePermissionDenied  = 1005
	ErrCodeWorkspaceMismatch = 1006
	ErrCodeTokenExpired      = 1007
	ErrCodeTokenInvalid      = 1008
	ErrCodeSessionInvalid    = 1009

	ErrCodeOtpExpired        = 1201
	ErrCodeOtpInvalid        = 1202
	ErrCodeOtpAlreadySent    = 1203
	ErrCodeOtpExhausted      = 1204

	ErrCodeOAuthConflict      = 1301
	ErrCodeOAuthEmailRequired = 1302
)

// authzHTTP mapea cada código de autorización a (status, código numérico).
var authzHTTP = map[authz.Code]struct {
	Status  int
	ErrCode int
}{
	authz.CodeUnauthorized:      {http.StatusUnauthorized, ErrCodeUnauthorized},
	authz.CodeTokenExpired:      {http.StatusUnauthorized, ErrCodeTokenExpired},
	authz.CodeTokenInvalid:      {http.StatusUnauthorized, ErrCodeTokenInvalid},
	authz.CodeSessionInvalid:    {http.StatusUnauthorized, ErrCodeSessionInvalid},
	authz.CodeAccountSuspended:  {http.StatusForbidden, ErrCodeAccountSuspended},
	authz.CodeEmailNotVerified:  {http.StatusForbidden, ErrCodeEmailNotVerified},
	authz.CodePhoneNotVerified:  {http.StatusForbidden, ErrCodePhoneNotVerified},
	authz.CodePermissionDenied:  {http.StatusForbidden, ErrCodePermissionDenied},
	authz.CodeWorkspaceMismatch: {http.StatusForbidden, ErrCodeWorkspaceMismatch},

	authz.CodeOtpExpired:           {http.StatusBadRequest, ErrCodeOtpExpired},
	authz.CodeOtpInvalid:           {http.StatusBadRequest, ErrCodeOtpInvalid},
	authz.CodeOtpAlreadySent:       {http.StatusTooManyRequests, ErrCodeOtpAlreadySent},
	authz.CodeOtpAttemptsExhausted: {http.StatusTooManyRequests, ErrCodeOtpExhausted},

	authz.CodeOAuthProviderConflict: {http.StatusConflict, ErrCodeOAuthConflict},
	authz.CodeOAuthEmailRequired:    {http.StatusUnprocessableEntity, ErrCodeOAuthEmailRequired},

	authz.CodeInternal: {http.StatusInternalServerError, ErrCodeInternal},
}

// WriteAuthzError escribe el rechazo de autorización. El payload nunca
// lleva detalles de la cuenta: sólo el código y su descripción genérica.
func WriteAuthzError(w http.ResponseWriter, code authz.Code) {
	m, ok := authzHTTP[code]
	if !ok {
		m = authzHTTP[authz.CodeInternal]
	}
	WriteError(w, m.Status, strings.ToLower(string(code)), "", m.ErrCode)
}
