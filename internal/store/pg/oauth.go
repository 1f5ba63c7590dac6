package pg

import (
	"context"
	"errors"

	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/jackc/pgx/v5"
)

const linkCols = `user_id, provider, provider_user_id, coalesce(email,''), created_at`

func scanLink(row pgx.Row) (*core.ProviderLink, error) {
	var l core.ProviderLink
	err := row.Scan(&l.UserID, &l.Provider, &l.ProviderUserID, &l.Email, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetProviderLink(ctx context.Context, p core.OAuthProvider, providerUserID string) (*core.ProviderLink, error) {
	return scanLink(s.pool.QueryRow(ctx,
		`SELECT `+linkCols+` FROM provider_link WHERE provider = $1 AND provider_user_id = $2`,
		p, providerUserID))
}

func (s *Store) GetProviderLinkByUser(ctx context.Context, userID string, p core.OAuthProvider) (*core.ProviderLink, error) {
	return scanLink(s.pool.QueryRow(ctx,
		`SELECT `+linkCols+` FROM provider_link WHERE user_id = $1 AND provider = $2`,
		userID, p))
}

// LinkProvider: vínculo + email_verified=true en una sola transacción.
// El índice único (provider, provider_user_id) es el invariante real; los
// checks previos del Linker sólo producen un error más amable.
func (s *Store) LinkProvider(ctx context.Context, link *core.ProviderLink) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO provider_link (user_id, provider, provider_user_id, email)
		VALUES ($1, $2, $3, NULLIF($4,''))
		ON CONFLICT (user_id, provider) DO UPDATE
		SET provider_user_id = EXCLUDED.provider_user_id, email = EXCLUDED.email
		WHERE provider_link.provider_user_id = EXCLUDED.provider_user_id`,
		link.UserID, link.Provider, link.ProviderUserID, link.Email,
	)
	if _, ok := uniqueViolation(err); ok {
		// (provider, provider_user_id) pertenece a otro usuario
		return core.ErrProviderLinked
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// El usuario ya tiene OTRO sujeto para este proveedor: el WHERE del
		// DO UPDATE no tocó la fila. Sin esto, una carrera que pasó los
		// pre-checks del Linker reportaría éxito sin vincular nada.
		return core.ErrProviderLinked
	}

	// El proveedor ya verificó el email fuera de banda.
	if _, err := tx.Exec(ctx,
		`UPDATE app_user SET email_verified = true WHERE id = $1`, link.UserID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
