// Package facebook implementa login social vía Facebook OAuth 2.0. A
// diferencia de Google no hay id_token: el perfil se pide a la Graph API
// con el access token obtenido en el exchange.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/mercadito/internal/oauth"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

const (
	authEndpoint  = "https://www.facebook.com/v19.0/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/v19.0/oauth/access_token"
	meEndpoint    = "https://graph.facebook.com/v19.0/me"
)

// OAuth es el cliente Facebook.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	http *http.Client
}

func New(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"email", "public_profile"},
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *OAuth) Name() core.OAuthProvider { return core.ProviderFacebook }

// AuthURL construye la URL de autorización. Facebook no soporta nonce;
// el state firmado cubre la integridad del round trip.
func (f *OAuth) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", f.ClientID)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("scope", strings.Join(f.Scopes, ","))
	q.Set("state", state)
	q.Set("response_type", "code")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (f *OAuth) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	q := url.Values{}
	q.Set("client_id", f.ClientID)
	q.Set("client_secret", f.ClientSecret)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "GET", tokenEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.Error != nil {
		return nil, fmt.Errorf("facebook oauth error %d: %s", tr.Error.Code, tr.Error.Message)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &tr, nil
}

type profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *OAuth) fetchProfile(ctx context.Context, accessToken string) (*profile, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email,picture")
	q.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", meEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph api error: status %d", resp.StatusCode)
	}
	var p profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Identity completa el flujo: exchange + fetch de perfil. El email puede
// faltar (usuarios registrados con teléfono); en ese caso ErrEmailRequired.
// Facebook sólo entrega emails confirmados, así que EmailVerified=true.
func (f *OAuth) Identity(ctx context.Context, code, nonce string) (*oauth.Identity, error) {
	tr, err := f.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	p, err := f.fetchProfile(ctx, tr.AccessToken)
	if err != nil {
		return nil, err
	}
	if p.Email == "" {
		return nil, oauth.ErrEmailRequired
	}
	return &oauth.Identity{
		Provider:       core.ProviderFacebook,
		ProviderUserID: p.ID,
		Email:          p.Email,
		EmailVerified:  true,
		Name:           p.Name,
		Picture:        p.Picture.Data.URL,
	}, nil
}
