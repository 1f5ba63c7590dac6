package core

import "time"

// Role es el rol de una cuenta dentro de la plataforma.
// El set de permisos asociado a cada rol vive en la tabla role_permission
// y se resuelve vía Repository.PermissionsForRole.
type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleStoreUser Role = "store_user"
	RoleConsole   Role = "console"
)

// User es la persona física. Una misma persona puede tener varias cuentas
// (personal + cuentas de workspace).
type User struct {
	ID            string
	Email         string
	Phone         string
	EmailVerified bool
	PhoneVerified bool
	Name          string
	CreatedAt     time.Time
}

// Account es la identidad activa dentro de una sesión. Exactamente una
// cuenta está activa por contexto de sesión.
type Account struct {
	ID          string
	UserID      string
	WorkspaceID string // vacío para cuentas personales
	Role        Role
	Suspended   bool
	IsPersonal  bool
	CreatedAt   time.Time
}

// Session es el registro stateful de un login. En el wire viaja como
// identificador combinado "groupID:sessionID"; acá siempre es el par.
type Session struct {
	ID        string
	GroupID   string
	AccountID string
	UserID    string
	IP        string
	Device    string
	TokenID   string // tokenId del refresh emitido junto a la sesión
	Metadata  map[string]any
	CreatedAt time.Time
	ExpireAt  time.Time
}

// OtpType distingue canal y propósito del código.
type OtpType string

const (
	OtpEmailVerification OtpType = "email_verification"
	OtpPhoneVerification OtpType = "phone_verification"
	Otp2FAEmail          OtpType = "2fa_email"
	Otp2FAPhone          OtpType = "2fa_phone"
	OtpRegistration      OtpType = "registration"
)

// IsSMS indica si el código se entrega por SMS (else: email).
func (t OtpType) IsSMS() bool {
	return t == OtpPhoneVerification || t == Otp2FAPhone
}

// OtpRecord es un código vivo. A lo sumo uno por (UserID, Type): lo
// garantiza el índice único en la tabla (con purga de vencidos antes de
// insertar), no el pre-check.
type OtpRecord struct {
	UserID      string
	Type        OtpType
	Code        string
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ExpireAt    time.Time
}

// OAuthProvider identifica el proveedor social.
type OAuthProvider string

const (
	ProviderGoogle   OAuthProvider = "google"
	ProviderFacebook OAuthProvider = "facebook"
	ProviderApple    OAuthProvider = "apple"
)

// ProviderLink vincula un usuario con un subject de un proveedor OAuth.
// Invariante global: (Provider, ProviderUserID) mapea a lo sumo a un usuario.
type ProviderLink struct {
	UserID         string
	Provider       OAuthProvider
	ProviderUserID string
	Email          string
	CreatedAt      time.Time
}

// Credential guarda el hash de password (PHC argon2id) de un usuario.
// Para cuentas creadas sólo por OAuth, Hash es nil.
type Credential struct {
	UserID       string
	PasswordHash *string
	UpdatedAt    time.Time
}
