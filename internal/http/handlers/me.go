package handlers

import (
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
)

// NewMeHandler devuelve el perfil del usuario y la cuenta activa.
func NewMeHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.AuthFrom(r.Context())

		u, err := c.Store.GetUserByID(r.Context(), id.UserID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		acc, err := c.Store.GetAccountByID(r.Context(), id.AccountID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"user":        toUserDTO(u),
			"account":     toAccountDTO(acc),
			"permissions": id.Permissions,
		})
	}
}

// NewMeAccountsHandler lista todas las cuentas del usuario (para el
// selector de switch).
func NewMeAccountsHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.AuthFrom(r.Context())

		accounts, err := c.Store.ListAccountsByUser(r.Context(), id.UserID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		out := make([]accountDTO, 0, len(accounts))
		for i := range accounts {
			dto := toAccountDTO(&accounts[i])
			out = append(out, dto)
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"accounts": out,
			"active":   id.AccountID,
		})
	}
}
