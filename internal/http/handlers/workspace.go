package handlers

import (
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
)

// Handlers de negocio mínimos del marketplace. Son los consumidores del
// pipeline de autorización: para cuando corren, permiso, verificación y
// scope de workspace ya pasaron.

type cardRequest struct {
	Title string `json:"title"`
	Price int64  `json:"price_cents"`
}

// NewCardsListHandler lista las cards del workspace activo.
func NewCardsListHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.AuthFrom(r.Context())
		m := httpx.MatchFrom(r.Context())
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"workspace_id": m.Params["workspaceId"],
			"account_id":   id.AccountID,
			"cards":        []any{},
		})
	}
}

// NewCardsCreateHandler crea una card. Exige email verificado (lo
// declara el registro de rutas, no este handler).
func NewCardsCreateHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		if req.Title == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_card", "falta title", httpx.ErrCodeInvalidJSON)
			return
		}
		m := httpx.MatchFrom(r.Context())
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{
			"workspace_id": m.Params["workspaceId"],
			"title":        req.Title,
			"price_cents":  req.Price,
		})
	}
}

// NewStoreHandler devuelve el panel de la tienda del workspace.
func NewStoreHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.AuthFrom(r.Context())
		m := httpx.MatchFrom(r.Context())
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"workspace_id": m.Params["workspaceId"],
			"role":         string(id.Role),
			"permissions":  id.Permissions,
		})
	}
}

// NewConsoleUsersHandler: listado de usuarios para la consola interna.
func NewConsoleUsersHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.AuthFrom(r.Context())
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"requested_by": id.AccountID,
			"users":        []any{},
		})
	}
}
