// Package handlers contiene los handlers HTTP del servicio. Cada handler
// se construye con NewXHandler(c *app.Container) y asume que el
// middleware de autorización ya corrió: la identidad llega resuelta.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/mercadito/internal/app"
	httpx "github.com/dropDatabas3/mercadito/internal/http"
	"github.com/dropDatabas3/mercadito/internal/jwt"
	"github.com/dropDatabas3/mercadito/internal/session"
	"github.com/dropDatabas3/mercadito/internal/store/core"
)

// ─── DTOs compartidos ───

type userDTO struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	PhoneVerified bool   `json:"phone_verified"`
}

type accountDTO struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	IsPersonal  bool   `json:"is_personal"`
	Suspended   bool   `json:"suspended"`
}

type sessionDTO struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokensDTO struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type authResponse struct {
	User    userDTO    `json:"user"`
	Account accountDTO `json:"account"`
	Session sessionDTO `json:"session"`
	Tokens  tokensDTO  `json:"tokens"`
}

func toUserDTO(u *core.User) userDTO {
	return userDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
	}
}

func toAccountDTO(a *core.Account) accountDTO {
	return accountDTO{
		ID:          a.ID,
		Role:        string(a.Role),
		WorkspaceID: a.WorkspaceID,
		IsPersonal:  a.IsPersonal,
		Suspended:   a.Suspended,
	}
}

// startSession crea la sesión y firma el par access/refresh. GroupID
// vacío arranca una familia nueva (login desde un device nuevo); el
// switch de cuenta pasa el grupo de la sesión anterior.
func startSession(ctx context.Context, c *app.Container, u *core.User, acc *core.Account, r *http.Request, groupID string) (*authResponse, error) {
	tokenID := jwt.NewTokenID()
	id, sessExp, err := c.Sessions.Create(ctx, session.CreateParams{
		AccountID: acc.ID,
		UserID:    u.ID,
		GroupID:   groupID,
		IP:        httpx.ClientIP(r),
		Device:    r.UserAgent(),
		TokenID:   tokenID,
	})
	if err != nil {
		return nil, err
	}
	combined := id.String()

	access, accessExp, err := c.Issuer.SignAccess(jwt.AccessClaims{
		UserID:        u.ID,
		AccountID:     acc.ID,
		SessionID:     combined,
		Role:          acc.Role,
		Suspended:     acc.Suspended,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
		IsPersonal:    acc.IsPersonal,
		WorkspaceID:   acc.WorkspaceID,
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := c.Issuer.SignRefresh(jwt.RefreshClaims{
		SessionID: combined,
		UserID:    u.ID,
		AccountID: acc.ID,
		TokenID:   tokenID,
	})
	if err != nil {
		return nil, err
	}

	return &authResponse{
		User:    toUserDTO(u),
		Account: toAccountDTO(acc),
		Session: sessionDTO{ID: combined, ExpiresAt: sessExp},
		Tokens: tokensDTO{
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     refresh,
			RefreshExpiresAt: refreshExp,
		},
	}, nil
}

// setSessionCookies escribe el par de cookies a partir de la respuesta.
func setSessionCookies(w http.ResponseWriter, cookies *httpx.CookieWriter, res *authResponse) {
	cookies.SetPair(w,
		res.Tokens.AccessToken, res.Tokens.AccessExpiresAt,
		res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt,
	)
}

// personalAccount elige la cuenta personal del usuario; si no hay,
// la primera.
func personalAccount(accounts []core.Account) *core.Account {
	for i := range accounts {
		if accounts[i].IsPersonal {
			return &accounts[i]
		}
	}
	if len(accounts) > 0 {
		return &accounts[0]
	}
	return nil
}
