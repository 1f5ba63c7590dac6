// Package app arma el grafo de dependencias del servicio. El Container
// se construye una vez en main y los handlers toman lo que necesitan.
package app

import (
	"github.com/dropDatabas3/mercadito/internal/authz"
	"github.com/dropDatabas3/mercadito/internal/cache"
	"github.com/dropDatabas3/mercadito/internal/config"
	"github.com/dropDatabas3/mercadito/internal/jwt"
	"github.com/dropDatabas3/mercadito/internal/oauth"
	"github.com/dropDatabas3/mercadito/internal/otp"
	"github.com/dropDatabas3/mercadito/internal/rate"
	"github.com/dropDatabas3/mercadito/internal/routes"
	"github.com/dropDatabas3/mercadito/internal/session"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

type Container struct {
	Cfg *config.Config

	Store core.Repository
	Cache cache.Client

	Issuer   *jwt.Issuer
	Sessions *session.Store
	Authz    *authz.Authorizer
	Otp      *otp.Engine

	Providers *oauth.Registry
	Linker    *oauth.Linker
	States    *oauth.StateSigner

	Routes *routes.Registry

	// Limiters por superficie; nil ⇒ sin límite (dev).
	Limiter      rate.Limiter
	LoginLimiter rate.Limiter
	OtpLimiter   rate.Limiter
}
