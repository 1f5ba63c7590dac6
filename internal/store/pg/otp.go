package pg

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/jackc/pgx/v5"
)

// InsertOtp confía en el índice único otp_one_live para garantizar un solo
// código por (user_id, type). El pre-check de la app es sólo para devolver
// el cooldown amigable; el invariante real es este insert.
func (s *Store) InsertOtp(ctx context.Context, rec *core.OtpRecord) error {
	// El índice único no es parcial por expire_at: un código vencido del
	// mismo par bloquearía la re-emisión, así que se purga antes del insert.
	_, _ = s.pool.Exec(ctx,
		`DELETE FROM otp_code WHERE user_id = $1 AND type = $2 AND expire_at <= now()`,
		rec.UserID, rec.Type)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO otp_code (user_id, type, code, attempts, max_attempts, expire_at)
		VALUES ($1, $2, $3, 0, $4, $5)`,
		rec.UserID, rec.Type, rec.Code, rec.MaxAttempts, rec.ExpireAt,
	)
	if _, ok := uniqueViolation(err); ok {
		return core.ErrOtpActive
	}
	return err
}

func (s *Store) GetActiveOtp(ctx context.Context, userID string, t core.OtpType, now time.Time) (*core.OtpRecord, error) {
	var rec core.OtpRecord
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, type, code, attempts, max_attempts, created_at, expire_at
		FROM otp_code
		WHERE user_id = $1 AND type = $2 AND expire_at > $3`,
		userID, t, now,
	).Scan(&rec.UserID, &rec.Type, &rec.Code, &rec.Attempts, &rec.MaxAttempts, &rec.CreatedAt, &rec.ExpireAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// IncrementOtpAttempts devuelve el contador ya incrementado.
func (s *Store) IncrementOtpAttempts(ctx context.Context, userID string, t core.OtpType) (int, error) {
	var attempts int
	err := s.pool.QueryRow(ctx, `
		UPDATE otp_code SET attempts = attempts + 1
		WHERE user_id = $1 AND type = $2
		RETURNING attempts`,
		userID, t,
	).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	return attempts, err
}

func (s *Store) DeleteOtp(ctx context.Context, userID string, t core.OtpType) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM otp_code WHERE user_id = $1 AND type = $2`, userID, t)
	return err
}
