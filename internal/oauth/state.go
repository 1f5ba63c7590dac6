package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrBadState: state ausente, expirado o con firma inválida.
var ErrBadState = errors.New("oauth: invalid state")

// StateClaims viaja firmado como parámetro state del round trip OAuth.
// Lleva el nonce esperado del id_token y el proveedor que inició el flujo.
type StateClaims struct {
	Provider string `json:"prv"`
	Nonce    string `json:"nce"`
	jwtv5.RegisteredClaims
}

// StateSigner firma y verifica el state con HS256. TTL corto: el round
// trip por el proveedor toma segundos, no minutos.
type StateSigner struct {
	Secret []byte
	TTL    time.Duration

	now func() time.Time
}

func NewStateSigner(secret []byte) *StateSigner {
	return &StateSigner{Secret: secret, TTL: 10 * time.Minute, now: time.Now}
}

// NewNonce genera el nonce aleatorio que viaja al proveedor.
func NewNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Sign emite el state para el proveedor dado.
func (s *StateSigner) Sign(provider, nonce string) (string, error) {
	now := s.now()
	claims := StateClaims{
		Provider: provider,
		Nonce:    nonce,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.TTL)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.Secret)
}

// Verify valida firma y expiración y devuelve los claims. El caller debe
// chequear que Provider coincida con el proveedor del callback.
func (s *StateSigner) Verify(state string) (*StateClaims, error) {
	var claims StateClaims
	tok, err := jwtv5.ParseWithClaims(state, &claims,
		func(t *jwtv5.Token) (any, error) { return s.Secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrBadState
	}
	return &claims, nil
}
