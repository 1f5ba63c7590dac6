// Package authz orquesta token + sesión + permisos + flags de verificación
// en una sola decisión allow/deny con razón tipada.
package authz

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mercadito/internal/jwt"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/routes"
	"github.com/dropDatabas3/mercadito/internal/session"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

// AuthContext es la identidad resuelta que reciben los handlers de
// negocio. Es lo ÚNICO que pueden usar para decidir; nunca re-derivar
// identidad de tokens crudos.
type AuthContext struct {
	Anonymous   bool
	UserID      string
	AccountID   string
	SessionID   string
	Role        core.Role
	Permissions []string
	WorkspaceID string
}

// Credentials extraídas del request (cookies o Authorization).
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// RefreshedTokens: producto de un silent refresh exitoso; el transporte
// debe re-setear las cookies en pareja.
type RefreshedTokens struct {
	AccessToken  string
	AccessExp    time.Time
	SessionExp   time.Time
	RolledOver   bool
}

// Decision es el resultado único del Authorizer.
type Decision struct {
	Allowed   bool
	Code      Code
	Identity  *AuthContext
	Refreshed *RefreshedTokens
}

func deny(code Code) Decision { return Decision{Allowed: false, Code: code} }

// Authorizer combina las piezas. Todos los caminos terminan en una
// Decision; nunca propaga errores crudos al caller.
type Authorizer struct {
	Issuer   *jwt.Issuer
	Sessions *session.Store
	Perms    *PermissionResolver
	Repo     core.Repository
}

// Authorize implementa el pipeline completo:
//
//  1. endpoint sin auth ⇒ identidad anónima, corto circuito
//  2. verificar access token; expirado/ inválido ⇒ silent refresh si hay
//     refresh token, si no UNAUTHORIZED
//  3. suspended (del snapshot del token) ⇒ ACCOUNT_SUSPENDED
//  4. verificación email/phone exigida por el endpoint
//  5. permiso requerido contra el set del rol
//  6. scope de workspace
//
// El orden importa: suspensión y verificación van ANTES que el chequeo
// fino de permisos, para que una cuenta suspendida nunca filtre qué
// permisos habría tenido.
func (a *Authorizer) Authorize(ctx context.Context, creds Credentials, m routes.Match) Decision {
	if !m.Config.AuthRequired {
		return Decision{Allowed: true, Code: CodeOK, Identity: &AuthContext{Anonymous: true}}
	}

	claims, refreshed, code := a.resolveClaims(ctx, creds)
	if code != CodeOK {
		return deny(code)
	}

	// 3. suspensión: snapshot point-in-time del token; puede estar stale
	// hasta que el access expire (TTL corto, riesgo acotado y aceptado).
	if claims.Suspended {
		return deny(CodeAccountSuspended)
	}

	// 4. flags de verificación
	if m.Config.Verify.Email && !claims.EmailVerified {
		return deny(CodeEmailNotVerified)
	}
	if m.Config.Verify.Phone && !claims.PhoneVerified {
		return deny(CodePhoneNotVerified)
	}

	// 5. permiso
	perms, err := a.Perms.ForRole(ctx, claims.Role)
	if err != nil {
		logger.From(ctx).Error("permission resolve failed", logger.Err(err))
		return deny(CodeInternal)
	}
	if m.Config.Permission != "" && !Has(perms, m.Config.Permission) {
		return deny(CodePermissionDenied)
	}

	// 6. scope de workspace
	if m.Config.WorkspaceScoped {
		want := m.Params["workspaceId"]
		if want == "" || claims.WorkspaceID != want {
			return deny(CodeWorkspaceMismatch)
		}
	}

	return Decision{
		Allowed: true,
		Code:    CodeOK,
		Identity: &AuthContext{
			UserID:      claims.UserID,
			AccountID:   claims.AccountID,
			SessionID:   claims.SessionID,
			Role:        claims.Role,
			Permissions: perms,
			WorkspaceID: claims.WorkspaceID,
		},
		Refreshed: refreshed,
	}
}

// resolveClaims: paso 2 del pipeline. Devuelve claims válidos o el código
// de rechazo. El refresh silencioso re-lee la cuenta de la DB para que el
// access nuevo lleve flags frescos.
func (a *Authorizer) resolveClaims(ctx context.Context, creds Credentials) (*jwt.AccessClaims, *RefreshedTokens, Code) {
	if creds.AccessToken != "" {
		claims, err := a.Issuer.ParseAccess(creds.AccessToken)
		if err == nil {
			return claims, nil, CodeOK
		}
		// expirado o inválido: intentamos refresh silencioso abajo
	}
	if creds.RefreshToken == "" {
		return nil, nil, CodeUnauthorized
	}

	rc, err := a.Issuer.ParseRefresh(creds.RefreshToken)
	if err != nil {
		return nil, nil, CodeUnauthorized
	}

	res, err := a.Sessions.Verify(ctx, rc.SessionID)
	if err != nil {
		logger.From(ctx).Error("session verify failed", logger.Err(err))
		return nil, nil, CodeInternal
	}
	if !res.Valid {
		return nil, nil, CodeUnauthorized
	}

	claims, err := a.BuildAccessClaims(ctx, res.Session.AccountID, rc.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, CodeUnauthorized
		}
		logger.From(ctx).Error("claims rebuild failed", logger.Err(err))
		return nil, nil, CodeInternal
	}

	signed, exp, err := a.Issuer.SignAccess(*claims)
	if err != nil {
		logger.From(ctx).Error("access sign failed", logger.Err(err))
		return nil, nil, CodeInternal
	}

	refreshed := &RefreshedTokens{AccessToken: signed, AccessExp: exp, SessionExp: res.Session.ExpireAt}
	if res.NeedsRollover {
		if newExp, err := a.Sessions.Rollover(ctx, res.Session.ID); err == nil {
			refreshed.SessionExp = newExp
			refreshed.RolledOver = true
		} else {
			logger.From(ctx).Warn("session rollover failed", logger.Err(err), logger.SessionID(res.Session.ID))
		}
	}
	return claims, refreshed, CodeOK
}

// BuildAccessClaims arma el snapshot de claims desde el estado actual de
// la cuenta. Lo usan login, switch de cuenta y el refresh silencioso.
func (a *Authorizer) BuildAccessClaims(ctx context.Context, accountID, combinedSessionID string) (*jwt.AccessClaims, error) {
	acc, err := a.Repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	u, err := a.Repo.GetUserByID(ctx, acc.UserID)
	if err != nil {
		return nil, err
	}
	return &jwt.AccessClaims{
		UserID:        u.ID,
		AccountID:     acc.ID,
		SessionID:     combinedSessionID,
		Role:          acc.Role,
		Suspended:     acc.Suspended,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
		IsPersonal:    acc.IsPersonal,
		WorkspaceID:   acc.WorkspaceID,
	}, nil
}
