package routes

// Permisos conocidos de la plataforma. El set por rol vive en la tabla
// role_permission; acá sólo los nombres que el registro referencia.
const (
	PermCardRead        = "CARD_READ"
	PermCardWrite       = "CARD_WRITE"
	PermStoreManage     = "STORE_MANAGE"
	PermConsoleUserRead = "CONSOLE_USER_READ"
)

// Table es el registro estático de endpoints del servicio. Se carga una
// sola vez al arranque vía NewRegistry(Table).
var Table = []EndpointConfig{
	// ── Auth (público) ──
	{PathPattern: "/v1/auth/register", Method: "POST"},
	{PathPattern: "/v1/auth/login", Method: "POST"},
	{PathPattern: "/v1/auth/refresh", Method: "POST"},
	{PathPattern: "/v1/auth/social/:provider/start", Method: "GET"},
	{PathPattern: "/v1/auth/social/:provider/callback", Method: "GET"},
	{PathPattern: "/v1/auth/social/:provider/callback", Method: "POST"}, // Apple usa form_post

	// ── Auth (requiere sesión) ──
	{PathPattern: "/v1/auth/logout", Method: "POST", AuthRequired: true},
	{PathPattern: "/v1/auth/switch", Method: "POST", AuthRequired: true},
	{PathPattern: "/v1/me", Method: "GET", AuthRequired: true},
	{PathPattern: "/v1/me/accounts", Method: "GET", AuthRequired: true},

	// ── OTP ──
	{PathPattern: "/v1/otp/send", Method: "POST", AuthRequired: true},
	{PathPattern: "/v1/otp/verify", Method: "POST", AuthRequired: true},

	// ── Marketplace (consumidores del core; handlers mínimos) ──
	{PathPattern: "/v1/workspaces/:workspaceId/cards", Method: "GET",
		AuthRequired: true, Permission: PermCardRead, WorkspaceScoped: true},
	{PathPattern: "/v1/workspaces/:workspaceId/cards", Method: "POST",
		AuthRequired: true, Permission: PermCardWrite, WorkspaceScoped: true,
		Verify: Verification{Email: true}},
	{PathPattern: "/v1/workspaces/:workspaceId/store", Method: "GET",
		AuthRequired: true, Permission: PermStoreManage, WorkspaceScoped: true,
		Verify: Verification{Email: true, Phone: true}},

	// ── Console ──
	{PathPattern: "/v1/console/users", Method: "GET",
		AuthRequired: true, Permission: PermConsoleUserRead,
		Verify: Verification{Email: true}},
}
