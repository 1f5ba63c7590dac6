package core

import (
	"context"
	"time"
)

type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository es el contrato de persistencia del core de auth.
// La implementación pg traduce errores del driver a los sentinelas de errors.go.
type Repository interface {
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)

	// ------- Users / Accounts -------
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]Account, error)

	// CreateUserWithAccount: alta de registro (user + credencial + cuenta
	// personal) en una sola transacción.
	CreateUserWithAccount(ctx context.Context, u *User, passwordHash *string) (*Account, error)

	GetCredential(ctx context.Context, userID string) (*Credential, error)
	SetEmailVerified(ctx context.Context, userID string, verified bool) error
	SetPhoneVerified(ctx context.Context, userID string, verified bool) error

	// ------- RBAC -------
	// PermissionsForRole: set de permisos de un rol. Los servicios cachean
	// el resultado; acá siempre es lectura directa.
	PermissionsForRole(ctx context.Context, role Role) ([]string, error)

	// ------- Sessions -------
	CreateSession(ctx context.Context, s *Session) error
	// GetValidSession devuelve la sesión sólo si (id, groupID) existe y
	// expire_at > now. Id inválido, grupo equivocado o expirada son
	// indistinguibles: ErrNotFound en los tres casos.
	GetValidSession(ctx context.Context, id, groupID string, now time.Time) (*Session, error)
	UpdateSessionExpiry(ctx context.Context, id string, expireAt time.Time) error
	DeleteSession(ctx context.Context, id, groupID string) error

	// ------- OTP -------
	// InsertOtp falla con ErrOtpActive si ya existe un código no expirado
	// para (userID, type).
	InsertOtp(ctx context.Context, rec *OtpRecord) error
	GetActiveOtp(ctx context.Context, userID string, t OtpType, now time.Time) (*OtpRecord, error)
	IncrementOtpAttempts(ctx context.Context, userID string, t OtpType) (int, error)
	DeleteOtp(ctx context.Context, userID string, t OtpType) error

	// ------- OAuth links -------
	GetProviderLink(ctx context.Context, p OAuthProvider, providerUserID string) (*ProviderLink, error)
	GetProviderLinkByUser(ctx context.Context, userID string, p OAuthProvider) (*ProviderLink, error)
	// LinkProvider ejecuta upsert del vínculo + email_verified=true como una
	// unidad atómica. ErrProviderLinked si el subject pertenece a otro usuario.
	LinkProvider(ctx context.Context, link *ProviderLink) error
}
