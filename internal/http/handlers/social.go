package handlers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/oauth"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
)

// NewSocialStartHandler arma la URL de autorización del proveedor y
// redirige. El state firmado lleva proveedor + nonce; no se guarda nada
// server-side.
func NewSocialStartHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := httpx.MatchFrom(r.Context()).Params["provider"]
		p, err := c.Providers.Lookup(name)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "", 0)
			return
		}

		nonce := oauth.NewNonce()
		state, err := c.States.Sign(name, nonce)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		authURL, err := p.AuthURL(r.Context(), state, nonce)
		if err != nil {
			logger.From(r.Context()).Error("auth url failed", logger.Err(err), logger.Provider(name))
			httpx.WriteError(w, http.StatusBadGateway, "provider_unavailable", "", 0)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// NewSocialCallbackHandler cierra el round trip: valida state, completa
// el flujo con el proveedor, resuelve o crea el usuario y deja la sesión
// iniciada. Apple postea form_post; el resto vuelve por query.
func NewSocialCallbackHandler(c *app.Container, cookies *httpx.CookieWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := httpx.MatchFrom(r.Context()).Params["provider"]
		p, err := c.Providers.Lookup(name)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "", 0)
			return
		}

		var code, state string
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "invalid_callback", "", 0)
				return
			}
			code, state = r.PostFormValue("code"), r.PostFormValue("state")
		} else {
			q := r.URL.Query()
			code, state = q.Get("code"), q.Get("state")
		}
		if code == "" || state == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_callback", "faltan code o state", 0)
			return
		}

		st, err := c.States.Verify(state)
		if err != nil || st.Provider != name {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_state", "", 0)
			return
		}

		identity, err := p.Identity(r.Context(), code, st.Nonce)
		if err != nil {
			if errors.Is(err, oauth.ErrEmailRequired) {
				// estado suspendido: el cliente debe pedir un email
				// out-of-band y reintentar el alta
				httpx.WriteError(w, http.StatusUnprocessableEntity, "oauth_email_required",
					"el proveedor no entregó email", httpx.ErrCodeOAuthEmailRequired)
				return
			}
			logger.From(r.Context()).Warn("provider exchange failed", logger.Err(err), logger.Provider(name))
			httpx.WriteError(w, http.StatusBadGateway, "provider_error", "", 0)
			return
		}

		u, err := c.Linker.Resolve(r.Context(), identity)
		if err != nil {
			if errors.Is(err, oauth.ErrProviderConflict) {
				httpx.WriteError(w, http.StatusConflict, "oauth_provider_conflict",
					"esa identidad ya está vinculada a otra cuenta", httpx.ErrCodeOAuthConflict)
				return
			}
			logger.From(r.Context()).Error("link resolve failed", logger.Err(err), logger.Provider(name))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		accounts, err := c.Store.ListAccountsByUser(r.Context(), u.ID)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		acc := personalAccount(accounts)
		if acc == nil {
			logger.From(r.Context()).Error("usuario sin cuentas", logger.UserID(u.ID))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}

		res, err := startSession(r.Context(), c, u, acc, r, "")
		if err != nil {
			logger.From(r.Context()).Error("session create failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "", httpx.ErrCodeInternal)
			return
		}
		setSessionCookies(w, cookies, res)
		httpx.WriteJSON(w, http.StatusOK, res)
	}
}
