package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/dropDatabas3/mercadito/internal/util"
)

// ErrProviderConflict: la identidad del proveedor ya está vinculada a
// OTRO usuario, o el usuario ya tiene otro sujeto para ese proveedor.
var ErrProviderConflict = errors.New("oauth: provider identity already linked elsewhere")

// Linker vincula identidades sociales a usuarios bajo el invariante de
// unicidad cruzada: un (provider, providerUserID) mapea a lo sumo a un
// usuario en todo el sistema.
type Linker struct {
	Repo core.Repository
}

func NewLinker(repo core.Repository) *Linker {
	return &Linker{Repo: repo}
}

// Link vincula la identidad al usuario dado. Los pre-checks producen el
// error amigable; el constraint único del storage es el que sostiene el
// invariante bajo concurrencia.
//
// Idempotente: re-vincular el mismo (provider, sujeto) al mismo usuario
// es un no-op exitoso.
func (l *Linker) Link(ctx context.Context, userID string, id *Identity) error {
	if id.Email == "" {
		return ErrEmailRequired
	}

	// Pre-check (a): el sujeto ya pertenece a otro usuario.
	if existing, err := l.Repo.GetProviderLink(ctx, id.Provider, id.ProviderUserID); err == nil {
		if existing.UserID == userID {
			return nil
		}
		return ErrProviderConflict
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("oauth: lookup link: %w", err)
	}

	// Pre-check (b): el usuario ya tiene otro sujeto para este proveedor.
	if existing, err := l.Repo.GetProviderLinkByUser(ctx, userID, id.Provider); err == nil {
		if existing.ProviderUserID != id.ProviderUserID {
			return ErrProviderConflict
		}
		return nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("oauth: lookup user link: %w", err)
	}

	err := l.Repo.LinkProvider(ctx, &core.ProviderLink{
		UserID:         userID,
		Provider:       id.Provider,
		ProviderUserID: id.ProviderUserID,
	})
	if errors.Is(err, core.ErrProviderLinked) {
		// Perdimos la carrera; el constraint mantuvo el invariante.
		return ErrProviderConflict
	}
	if err != nil {
		return fmt.Errorf("oauth: link: %w", err)
	}

	logger.From(ctx).Info("provider linked",
		logger.Component("oauth"),
		logger.UserID(userID),
		logger.Provider(string(id.Provider)),
		logger.String("email", util.MaskEmail(id.Email)),
	)
	return nil
}

// Resolve encuentra o crea el usuario para una identidad social. Orden:
//
//  1. link existente ⇒ ese usuario
//  2. usuario con el mismo email ⇒ vincular y devolver
//  3. crear usuario + cuenta personal y vincular
//
// En los tres caminos el resultado queda cubierto por Link y su
// invariante de unicidad.
func (l *Linker) Resolve(ctx context.Context, id *Identity) (*core.User, error) {
	if id.Email == "" {
		return nil, ErrEmailRequired
	}

	if link, err := l.Repo.GetProviderLink(ctx, id.Provider, id.ProviderUserID); err == nil {
		return l.Repo.GetUserByID(ctx, link.UserID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	u, err := l.Repo.GetUserByEmail(ctx, id.Email)
	if errors.Is(err, core.ErrNotFound) {
		u, err = l.register(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if err := l.Link(ctx, u.ID, id); err != nil {
		return nil, err
	}
	// LinkProvider marca email_verified; reflejarlo sin re-leer.
	u.EmailVerified = true
	return u, nil
}

func (l *Linker) register(ctx context.Context, id *Identity) (*core.User, error) {
	u := &core.User{
		Email:         id.Email,
		Name:          id.Name,
		EmailVerified: id.EmailVerified,
	}
	// Sin credencial de password: la identidad social es la credencial.
	if _, err := l.Repo.CreateUserWithAccount(ctx, u, nil); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Carrera con un registro concurrente del mismo email.
			return l.Repo.GetUserByEmail(ctx, id.Email)
		}
		return nil, err
	}
	return u, nil
}
