// Package routes define el registro declarativo de endpoints: para cada
// patrón de ruta, qué método, si requiere auth, qué permiso y qué estado
// de verificación pide. Es configuración cargada una vez al arranque; el
// Authorizer decide en base a lo que se resuelve acá.
package routes

// Verification declara qué flags de verificación del usuario exige un
// endpoint.
type Verification struct {
	Email bool
	Phone bool
}

// EndpointConfig es el contrato que el resto del sistema consume.
// Inmutable después del arranque.
type EndpointConfig struct {
	// PathPattern normalizado, con segmentos ":param" (ej:
	// "/v1/workspaces/:workspaceId/cards").
	PathPattern string

	// Method HTTP ("GET", "POST", ...).
	Method string

	// AuthRequired: si es false, el endpoint resuelve a identidad anónima.
	AuthRequired bool

	// Permission requerido (vacío = cualquier cuenta autenticada).
	Permission string

	// Verify: verificación de email/phone exigida.
	Verify Verification

	// WorkspaceScoped: el parámetro :workspaceId del path debe coincidir
	// con el workspace de la cuenta activa del token.
	WorkspaceScoped bool
}
