// Package apple implementa Sign in with Apple. El client secret no es
// estático: se firma on demand un JWT ES256 con la key privada del
// equipo. El id_token se verifica RS256 contra el JWKS de Apple.
package apple

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/mercadito/internal/oauth"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	issuerURL     = "https://appleid.apple.com"
	authEndpoint  = "https://appleid.apple.com/auth/authorize"
	tokenEndpoint = "https://appleid.apple.com/auth/token"
	jwksEndpoint  = "https://appleid.apple.com/auth/keys"
)

// Client es el proveedor Apple. ClientID es el Services ID; TeamID y
// KeyID identifican la key privada P-256 descargada del portal.
type Client struct {
	ClientID    string
	TeamID      string
	KeyID       string
	RedirectURL string

	privateKey *ecdsa.PrivateKey

	http   *http.Client
	mu     sync.RWMutex
	jwks   *jwks
	jwksAt time.Time

	now func() time.Time
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// New parsea la key privada PEM (PKCS#8, P-256) y arma el cliente.
func New(clientID, teamID, keyID, redirectURL, privateKeyPEM string) (*Client, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, errors.New("apple: invalid private key PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("apple: parse private key: %w", err)
	}
	ec, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("apple: private key is not ECDSA")
	}
	return &Client{
		ClientID:    clientID,
		TeamID:      teamID,
		KeyID:       keyID,
		RedirectURL: redirectURL,
		privateKey:  ec,
		http:        &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}, nil
}

func (a *Client) Name() core.OAuthProvider { return core.ProviderApple }

// AuthURL construye la URL de autorización. Pedir scope obliga a
// response_mode=form_post: el callback llega por POST.
func (a *Client) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("response_mode", "form_post")
	q.Set("client_id", a.ClientID)
	q.Set("redirect_uri", a.RedirectURL)
	q.Set("scope", "name email")
	q.Set("state", state)
	q.Set("nonce", nonce)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// clientSecret firma el JWT ES256 que Apple exige como client_secret.
// Vida corta (5 min): se firma por request, no se cachea.
func (a *Client) clientSecret() (string, error) {
	now := a.now()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodES256, jwtv5.RegisteredClaims{
		Issuer:    a.TeamID,
		Subject:   a.ClientID,
		Audience:  jwtv5.ClaimStrings{issuerURL},
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(5 * time.Minute)),
	})
	tok.Header["kid"] = a.KeyID
	return tok.SignedString(a.privateKey)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
}

func (a *Client) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	secret, err := a.clientSecret()
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", a.ClientID)
	form.Set("client_secret", secret)
	form.Set("redirect_uri", a.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("apple token error: %s", tr.Error)
	}
	if tr.IDToken == "" {
		return nil, errors.New("no id_token in response")
	}
	return &tr, nil
}

func (a *Client) getJWKS(ctx context.Context) (*jwks, error) {
	a.mu.RLock()
	j := a.jwks
	age := time.Since(a.jwksAt)
	a.mu.RUnlock()
	if j != nil && age < time.Hour {
		return j, nil
	}

	req, _ := http.NewRequestWithContext(ctx, "GET", jwksEndpoint, nil)
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}
	var jj jwks
	if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.jwks = &jj
	a.jwksAt = time.Now()
	a.mu.Unlock()
	return &jj, nil
}

func (a *Client) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	jwks, err := a.getJWKS(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range jwks.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			nb, err := base64.RawURLEncoding.DecodeString(k.N)
			if err != nil {
				return nil, err
			}
			eb, err := base64.RawURLEncoding.DecodeString(k.E)
			if err != nil {
				return nil, err
			}
			n := new(big.Int).SetBytes(nb)
			e := 65537
			if len(eb) > 0 {
				e = 0
				for _, b := range eb {
					e = (e << 8) | int(b)
				}
			}
			return &rsa.PublicKey{N: n, E: e}, nil
		}
	}
	return nil, errors.New("kid not found")
}

// Identity completa el flujo. El email viene en el id_token; el nombre
// sólo llega en la primera autorización vía form y acá no se usa.
func (a *Client) Identity(ctx context.Context, code, nonce string) (*oauth.Identity, error) {
	tr, err := a.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	claims, err := a.verifyIDToken(ctx, tr.IDToken, nonce)
	if err != nil {
		return nil, err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, oauth.ErrEmailRequired
	}
	sub, _ := claims["sub"].(string)
	// email_verified puede venir bool o string "true"
	verified := false
	switch v := claims["email_verified"].(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}
	return &oauth.Identity{
		Provider:       core.ProviderApple,
		ProviderUserID: sub,
		Email:          email,
		EmailVerified:  verified,
	}, nil
}

func (a *Client) verifyIDToken(ctx context.Context, idToken, expectedNonce string) (jwtv5.MapClaims, error) {
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, errors.New("bad jwt format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, err
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("unexpected alg: %s", header.Alg)
	}

	key, err := a.rsaKeyForKid(ctx, header.Kid)
	if err != nil {
		return nil, err
	}
	tok, err := jwtv5.Parse(idToken,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(issuerURL),
		jwtv5.WithAudience(a.ClientID),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid id_token")
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("claims type")
	}
	if expectedNonce != "" {
		if got, _ := claims["nonce"].(string); got != expectedNonce {
			return nil, errors.New("bad nonce")
		}
	}
	return claims, nil
}
