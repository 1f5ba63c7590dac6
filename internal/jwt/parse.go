package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func (i *Issuer) keyfunc(t *jwtv5.Token) (any, error) {
	return i.Secret, nil
}

func (i *Issuer) parseOpts() []jwtv5.ParserOption {
	return []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithLeeway(30 * time.Second),
		jwtv5.WithTimeFunc(i.now),
	}
}

// mapErr: fail closed. Expiración es lo único que se distingue; todo lo
// demás (firma, issuer, malformado) es ErrInvalid, sin confianza parcial.
func mapErr(err error) error {
	if errors.Is(err, jwtv5.ErrTokenExpired) {
		return ErrExpired
	}
	return ErrInvalid
}

// ParseAccess verifica un access token y devuelve sus claims.
func (i *Issuer) ParseAccess(raw string) (*AccessClaims, error) {
	var c AccessClaims
	tk, err := jwtv5.ParseWithClaims(raw, &c, i.keyfunc, i.parseOpts()...)
	if err != nil {
		return nil, mapErr(err)
	}
	if !tk.Valid || c.Use != UseAccess {
		return nil, ErrInvalid
	}
	return &c, nil
}

// ParseRefresh verifica un refresh token y devuelve sus claims.
func (i *Issuer) ParseRefresh(raw string) (*RefreshClaims, error) {
	var c RefreshClaims
	tk, err := jwtv5.ParseWithClaims(raw, &c, i.keyfunc, i.parseOpts()...)
	if err != nil {
		return nil, mapErr(err)
	}
	if !tk.Valid || c.Use != UseRefresh {
		return nil, ErrInvalid
	}
	return &c, nil
}
