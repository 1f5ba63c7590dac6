// Package oauth define el contrato común de los proveedores de login
// social soportados. El set es cerrado: google, facebook y apple.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/mercadito/internal/store/core"
)

var (
	// ErrEmailRequired: el proveedor no entregó email y no podemos crear
	// ni vincular cuenta sin uno.
	ErrEmailRequired = errors.New("oauth: provider returned no email")

	// ErrUnknownProvider: nombre fuera del set soportado.
	ErrUnknownProvider = errors.New("oauth: unknown provider")
)

// Identity es el perfil normalizado que devuelve cualquier proveedor.
type Identity struct {
	Provider       core.OAuthProvider
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
}

// Provider abstrae un proveedor social. AuthURL arma la URL de
// autorización; Identity completa el flujo (code exchange + verificación
// del id_token o fetch de perfil, según el proveedor) y normaliza.
type Provider interface {
	Name() core.OAuthProvider
	AuthURL(ctx context.Context, state, nonce string) (string, error)
	Identity(ctx context.Context, code, nonce string) (*Identity, error)
}

// Registry mapea nombre a proveedor configurado.
type Registry struct {
	providers map[core.OAuthProvider]Provider
}

func NewRegistry(ps ...Provider) *Registry {
	m := make(map[core.OAuthProvider]Provider, len(ps))
	for _, p := range ps {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Lookup resuelve el proveedor por nombre (case sensitive, minúsculas).
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[core.OAuthProvider(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names devuelve los proveedores configurados.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, string(k))
	}
	return out
}
