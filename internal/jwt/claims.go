package jwt

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

// Usos de token. El claim "use" impide que un refresh se acepte como
// credencial de acceso (y viceversa).
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// AccessClaims es el snapshot point-in-time firmado en el access token.
// suspended/verified pueden quedar stale respecto de la DB hasta que el
// token expire; por eso el TTL de acceso es corto.
type AccessClaims struct {
	Use           string    `json:"use"`
	UserID        string    `json:"uid"`
	AccountID     string    `json:"acc"`
	SessionID     string    `json:"sid"`
	Role          core.Role `json:"role"`
	Suspended     bool      `json:"susp"`
	EmailVerified bool      `json:"emv"`
	PhoneVerified bool      `json:"phv"`
	IsPersonal    bool      `json:"pers"`
	WorkspaceID   string    `json:"wks,omitempty"`
	jwtv5.RegisteredClaims
}

// RefreshClaims lleva lo mínimo para re-derivar un access token nuevo.
// Nunca sirve como credencial de acceso directa.
type RefreshClaims struct {
	Use       string `json:"use"`
	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	AccountID string `json:"acc"`
	TokenID   string `json:"tid"`
	jwtv5.RegisteredClaims
}

// NewTokenID genera el tokenId de un refresh: timestamp + sufijo random.
// Hoy sólo se persiste junto a la sesión para revocación futura; no hay
// chequeo contra lista de revocados.
func NewTokenID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}
