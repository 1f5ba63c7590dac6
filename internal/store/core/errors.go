package core

import "errors"

// Errores sentinela del storage. Los repos traducen errores del driver
// (p.ej. unique_violation de Postgres) a estos valores; nada del driver
// cruza hacia los servicios.
var (
	ErrNotFound = errors.New("store: not found")

	// ErrConflict: violación de unicidad genérica (email duplicado, etc).
	ErrConflict = errors.New("store: conflict")

	// ErrOtpActive: ya existe un código vivo para (userID, type).
	// Lo produce el índice único de la tabla, no el pre-check de la app.
	ErrOtpActive = errors.New("store: otp already active")

	// ErrProviderLinked: (provider, providerUserID) ya vinculado a otro usuario.
	ErrProviderLinked = errors.New("store: provider identity already linked")
)
