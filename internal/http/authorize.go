package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/authz"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/routes"
)

type authCtxKey struct{}
type matchCtxKey struct{}

// AuthFrom devuelve la identidad resuelta por el middleware de
// autorización. Para endpoints públicos es la identidad anónima.
func AuthFrom(ctx context.Context) *authz.AuthContext {
	if v, ok := ctx.Value(authCtxKey{}).(*authz.AuthContext); ok {
		return v
	}
	return &authz.AuthContext{Anonymous: true}
}

// MatchFrom devuelve el match de ruta (patrón + params) del request.
func MatchFrom(ctx context.Context) routes.Match {
	if v, ok := ctx.Value(matchCtxKey{}).(routes.Match); ok {
		return v
	}
	return routes.Match{}
}

// WithAuthorize resuelve la ruta contra el registro y ejecuta el pipeline
// de autorización completo antes del handler. Los handlers de negocio
// reciben la identidad ya resuelta vía AuthFrom; nunca tocan tokens.
//
// Un silent refresh exitoso re-setea las cookies acá mismo, en pareja.
func WithAuthorize(next http.Handler, a *authz.Authorizer, reg *routes.Registry, cookies *CookieWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := reg.Resolve(r.Method, r.URL.Path)
		if err != nil {
			if errors.Is(err, routes.ErrMethodNotAllowed) {
				WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "", 0)
				return
			}
			WriteError(w, http.StatusNotFound, "not_found", "", 0)
			return
		}

		access, refresh := cookies.ReadCredentials(r)
		dec := a.Authorize(r.Context(), authz.Credentials{
			AccessToken:  access,
			RefreshToken: refresh,
		}, m)
		RecordAuthzDecision(string(dec.Code))

		if !dec.Allowed {
			logger.From(r.Context()).Debug("authz deny",
				logger.Route(m.Pattern),
				logger.Code(string(dec.Code)),
			)
			WriteAuthzError(w, dec.Code)
			return
		}

		if dec.Refreshed != nil {
			// el refresh no rota: mantiene su expiración de sesión
			cookies.SetAccess(w, dec.Refreshed.AccessToken, dec.Refreshed.AccessExp)
		}

		ctx := context.WithValue(r.Context(), authCtxKey{}, dec.Identity)
		ctx = context.WithValue(ctx, matchCtxKey{}, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
