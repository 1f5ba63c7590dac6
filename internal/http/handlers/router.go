package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/go-chi/chi/v5"
)

// chiPattern traduce ":param" (registro de rutas) a "{param}" (chi).
func chiPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

// NewRouter arma el router completo con la cadena de middlewares. El
// registro de rutas y chi deben declarar el mismo set: el registro
// decide autorización y 404/405, chi sólo despacha handlers.
func NewRouter(c *app.Container, metrics http.Handler) http.Handler {
	cookies := httpx.NewCookieWriter(c.Cfg)

	r := chi.NewRouter()

	// superficie operacional, fuera del pipeline de autorización
	r.Get("/healthz", NewHealthzHandler())
	r.Get("/readyz", NewReadyzHandler(c))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(g chi.Router) {
		g.Use(func(next http.Handler) http.Handler {
			return httpx.WithAuthorize(next, c.Authz, c.Routes, cookies)
		})

		g.Post(chiPattern("/v1/auth/register"), NewRegisterHandler(c, cookies))
		g.Post(chiPattern("/v1/auth/login"), NewLoginHandler(c, cookies))
		g.Post(chiPattern("/v1/auth/refresh"), NewRefreshHandler(c, cookies))
		g.Get(chiPattern("/v1/auth/social/:provider/start"), NewSocialStartHandler(c))
		g.Get(chiPattern("/v1/auth/social/:provider/callback"), NewSocialCallbackHandler(c, cookies))
		g.Post(chiPattern("/v1/auth/social/:provider/callback"), NewSocialCallbackHandler(c, cookies))

		g.Post(chiPattern("/v1/auth/logout"), NewLogoutHandler(c, cookies))
		g.Post(chiPattern("/v1/auth/switch"), NewSwitchHandler(c, cookies))
		g.Get(chiPattern("/v1/me"), NewMeHandler(c))
		g.Get(chiPattern("/v1/me/accounts"), NewMeAccountsHandler(c))

		g.Post(chiPattern("/v1/otp/send"), NewOtpSendHandler(c))
		g.Post(chiPattern("/v1/otp/verify"), NewOtpVerifyHandler(c))

		g.Get(chiPattern("/v1/workspaces/:workspaceId/cards"), NewCardsListHandler(c))
		g.Post(chiPattern("/v1/workspaces/:workspaceId/cards"), NewCardsCreateHandler(c))
		g.Get(chiPattern("/v1/workspaces/:workspaceId/store"), NewStoreHandler(c))

		g.Get(chiPattern("/v1/console/users"), NewConsoleUsersHandler(c))
	})

	// cadena exterior, de afuera hacia adentro
	var h http.Handler = r
	h = httpx.WithRateLimit(h, c.Limiter)
	h = httpx.WithLogging(h)
	h = httpx.WithMetrics(h, c.Routes)
	h = httpx.WithCORS(h, c.Cfg.Server.CORSAllowedOrigins)
	h = httpx.WithSecurityHeaders(h)
	h = httpx.WithRecover(h)
	h = httpx.WithRequestID(h)
	return h
}
