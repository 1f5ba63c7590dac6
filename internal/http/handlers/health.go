package handlers

import (
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
)

// NewHealthzHandler: liveness plano, sin tocar dependencias.
func NewHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewReadyzHandler: readiness con ping a storage y cache.
func NewReadyzHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"storage": "ok", "cache": "ok"}
		status := http.StatusOK

		if err := c.Store.Ping(r.Context()); err != nil {
			checks["storage"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if c.Cache != nil {
			if err := c.Cache.Ping(r.Context()); err != nil {
				checks["cache"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		httpx.WriteJSON(w, status, checks)
	}
}
