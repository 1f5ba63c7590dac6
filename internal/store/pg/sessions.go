package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateSession(ctx context.Context, sess *core.Session) error {
	var meta []byte
	if sess.Metadata != nil {
		meta, _ = json.Marshal(sess.Metadata)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session (id, group_id, account_id, user_id, ip, device, token_id, metadata, expire_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,'')::inet, NULLIF($6,''), $7, $8, $9)`,
		sess.ID, sess.GroupID, sess.AccountID, sess.UserID, sess.IP, sess.Device,
		sess.TokenID, meta, sess.ExpireAt,
	)
	return err
}

// GetValidSession: id equivocado, grupo equivocado o expirada devuelven todas
// ErrNotFound; no distinguimos para no permitir enumerar grupos de sesión.
func (s *Store) GetValidSession(ctx context.Context, id, groupID string, now time.Time) (*core.Session, error) {
	var (
		sess core.Session
		meta []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, group_id, account_id, user_id, coalesce(host(ip),''), coalesce(device,''),
		       token_id, metadata, created_at, expire_at
		FROM session
		WHERE id = $1 AND group_id = $2 AND expire_at > $3`,
		id, groupID, now,
	).Scan(&sess.ID, &sess.GroupID, &sess.AccountID, &sess.UserID, &sess.IP, &sess.Device,
		&sess.TokenID, &meta, &sess.CreatedAt, &sess.ExpireAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &sess.Metadata)
	}
	return &sess, nil
}

// UpdateSessionExpiry es un overwrite ciego de expire_at. Rollovers
// concurrentes sobre la misma sesión son redundantes pero inocuos.
func (s *Store) UpdateSessionExpiry(ctx context.Context, id string, expireAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE session SET expire_at = $2 WHERE id = $1`, id, expireAt)
	return err
}

// DeleteSession es idempotente: borrar una sesión inexistente no es error.
func (s *Store) DeleteSession(ctx context.Context, id, groupID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM session WHERE id = $1 AND group_id = $2`, id, groupID)
	return err
}
