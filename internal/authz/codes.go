package authz

// Code es el set cerrado de razones de fallo de autorización. Nada de
// errores crudos cruza el boundary: todo camino resuelve a uno de estos.
type Code string

const (
	CodeOK Code = "OK"

	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeAccountSuspended Code = "ACCOUNT_SUSPENDED"
	CodeEmailNotVerified Code = "EMAIL_NOT_VERIFIED"
	CodePhoneNotVerified Code = "PHONE_NOT_VERIFIED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeWorkspaceMismatch Code = "WORKSPACE_MISMATCH"

	CodeTokenExpired   Code = "TOKEN_EXPIRED"
	CodeTokenInvalid   Code = "TOKEN_INVALID"
	CodeSessionInvalid Code = "SESSION_INVALID"

	CodeOtpExpired           Code = "OTP_EXPIRED"
	CodeOtpInvalid           Code = "OTP_INVALID"
	CodeOtpAlreadySent       Code = "OTP_ALREADY_SENT"
	CodeOtpAttemptsExhausted Code = "OTP_ATTEMPTS_EXHAUSTED"

	CodeOAuthProviderConflict Code = "OAUTH_PROVIDER_CONFLICT"
	CodeOAuthEmailRequired    Code = "OAUTH_EMAIL_REQUIRED"

	CodeInternal Code = "INTERNAL_ERROR"
)
