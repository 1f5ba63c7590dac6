package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Errores de verificación. Cualquier falla (firma, payload malformado,
// claim use equivocado) colapsa a ErrInvalid; sólo la expiración se
// distingue, porque el silent-refresh la necesita.
var (
	ErrExpired = errors.New("jwt: token expired")
	ErrInvalid = errors.New("jwt: token invalid")
)

// Issuer firma y verifica access/refresh tokens con HS256.
type Issuer struct {
	Iss        string
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// now es inyectable en tests.
	now func() time.Time
}

func NewIssuer(iss string, secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Issuer{
		Iss:        iss,
		Secret:     secret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// SignAccess firma un access token con TTL corto.
func (i *Issuer) SignAccess(c AccessClaims) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.AccessTTL)

	c.Use = UseAccess
	c.Issuer = i.Iss
	c.IssuedAt = jwtv5.NewNumericDate(now)
	c.NotBefore = jwtv5.NewNumericDate(now)
	c.ExpiresAt = jwtv5.NewNumericDate(exp)

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c)
	signed, err := tk.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// SignRefresh firma un refresh token de larga vida.
func (i *Issuer) SignRefresh(c RefreshClaims) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.RefreshTTL)

	c.Use = UseRefresh
	c.Issuer = i.Iss
	c.IssuedAt = jwtv5.NewNumericDate(now)
	c.NotBefore = jwtv5.NewNumericDate(now)
	c.ExpiresAt = jwtv5.NewNumericDate(exp)

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c)
	signed, err := tk.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
