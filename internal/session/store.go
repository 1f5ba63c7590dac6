// Package session maneja los registros stateful de login: creación,
// verificación, rollover proactivo de expiración y borrado.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/google/uuid"
)

const (
	// DefaultTTL: 14 días desde la creación.
	DefaultTTL = 14 * 24 * time.Hour
)

// Store orquesta sesiones sobre el repositorio. El umbral de rollover es
// la mitad del TTL: si a la sesión le queda menos que eso, el caller debe
// extenderla en lugar de forzar re-login a mitad de uso.
type Store struct {
	Repo core.Repository
	TTL  time.Duration

	now func() time.Time
}

func NewStore(repo core.Repository, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Store{Repo: repo, TTL: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// RolloverThreshold es el margen bajo el cual Verify pide rollover.
func (s *Store) RolloverThreshold() time.Duration { return s.TTL / 2 }

// CreateParams para una sesión nueva.
type CreateParams struct {
	AccountID string
	UserID    string
	GroupID   string // vacío ⇒ familia nueva
	IP        string
	Device    string
	TokenID   string
	Metadata  map[string]any
}

// Create inserta la sesión y devuelve el id combinado + expiración.
// Si GroupID viene vacío arranca una familia de sesión nueva (device/browser).
func (s *Store) Create(ctx context.Context, p CreateParams) (ID, time.Time, error) {
	groupID := p.GroupID
	if groupID == "" {
		groupID = uuid.NewString()
	}
	sess := &core.Session{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		AccountID: p.AccountID,
		UserID:    p.UserID,
		IP:        p.IP,
		Device:    p.Device,
		TokenID:   p.TokenID,
		Metadata:  p.Metadata,
		ExpireAt:  s.now().UTC().Add(s.TTL),
	}
	if err := s.Repo.CreateSession(ctx, sess); err != nil {
		return ID{}, time.Time{}, err
	}
	return ID{GroupID: sess.GroupID, SessionID: sess.ID}, sess.ExpireAt, nil
}

// VerifyResult del lookup de una sesión.
type VerifyResult struct {
	Valid         bool
	NeedsRollover bool
	Session       *core.Session
}

// Verify resuelve el id combinado. Id inexistente, grupo equivocado o
// sesión expirada devuelven todas {Valid:false} sin distinguir causa
// (evita enumerar grupos de sesión). NeedsRollover se prende cuando a la
// sesión le queda menos de medio TTL.
func (s *Store) Verify(ctx context.Context, combined string) (VerifyResult, error) {
	id, err := Parse(combined)
	if err != nil {
		return VerifyResult{}, nil
	}
	now := s.now().UTC()
	sess, err := s.Repo.GetValidSession(ctx, id.SessionID, id.GroupID, now)
	if errors.Is(err, core.ErrNotFound) {
		return VerifyResult{}, nil
	}
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Valid:         true,
		NeedsRollover: sess.ExpireAt.Sub(now) <= s.RolloverThreshold(),
		Session:       sess,
	}, nil
}

// Rollover resetea expire_at a now + TTL, incondicional. Es un overwrite
// ciego: rollovers concurrentes son redundantes pero idempotentes.
func (s *Store) Rollover(ctx context.Context, sessionID string) (time.Time, error) {
	exp := s.now().UTC().Add(s.TTL)
	if err := s.Repo.UpdateSessionExpiry(ctx, sessionID, exp); err != nil {
		return time.Time{}, err
	}
	return exp, nil
}

// Delete borra la sesión (logout). Idempotente: borrar una sesión que no
// existe no es error. Un id malformado tampoco: no hay nada que borrar.
func (s *Store) Delete(ctx context.Context, combined string) error {
	id, err := Parse(combined)
	if err != nil {
		return nil
	}
	return s.Repo.DeleteSession(ctx, id.SessionID, id.GroupID)
}
