package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/mercadito/internal/config"
)

// CookieWriter setea y limpia el par de cookies access/refresh. Siempre
// operan en pareja: nunca queda una sin la otra.
type CookieWriter struct {
	AccessName  string
	RefreshName string
	Domain      string
	SameSite    http.SameSite
	Secure      bool
}

func NewCookieWriter(cfg *config.Config) *CookieWriter {
	return &CookieWriter{
		AccessName:  cfg.Session.AccessCookieName,
		RefreshName: cfg.Session.CookieName,
		Domain:      cfg.Session.Domain,
		SameSite:    parseSameSite(cfg.Session.SameSite),
		Secure:      cfg.Session.Secure,
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c *CookieWriter) set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// SetPair escribe ambas cookies con sus expiraciones respectivas.
func (c *CookieWriter) SetPair(w http.ResponseWriter, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	c.set(w, c.AccessName, access, accessExp)
	c.set(w, c.RefreshName, refresh, refreshExp)
}

// SetAccess re-escribe sólo el access (silent refresh sin rollover).
func (c *CookieWriter) SetAccess(w http.ResponseWriter, access string, exp time.Time) {
	c.set(w, c.AccessName, access, exp)
}

// Clear borra las dos cookies (logout).
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	past := time.Unix(0, 0)
	c.set(w, c.AccessName, "", past)
	c.set(w, c.RefreshName, "", past)
}

// ReadCredentials extrae los tokens del request: Authorization Bearer
// tiene prioridad para el access; las cookies son el camino browser.
func (c *CookieWriter) ReadCredentials(r *http.Request) (access, refresh string) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		access = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if access == "" {
		if ck, err := r.Cookie(c.AccessName); err == nil {
			access = ck.Value
		}
	}
	if ck, err := r.Cookie(c.RefreshName); err == nil {
		refresh = ck.Value
	}
	return access, refresh
}
