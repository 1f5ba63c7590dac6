package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userCols = `id, email, coalesce(phone,''), email_verified, phone_verified, coalesce(name,''), created_at`

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.EmailVerified, &u.PhoneVerified, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE lower(email) = $1`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

const accountCols = `id, user_id, coalesce(workspace_id,''), role, suspended, is_personal, created_at`

func scanAccount(row pgx.Row) (*core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.WorkspaceID, &a.Role, &a.Suspended, &a.IsPersonal, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM account WHERE id = $1`, id))
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountCols+` FROM account WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.WorkspaceID, &a.Role, &a.Suspended, &a.IsPersonal, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateUserWithAccount: user + credencial + cuenta personal, todo o nada.
func (s *Store) CreateUserWithAccount(ctx context.Context, u *core.User, passwordHash *string) (*core.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	_, err = tx.Exec(ctx, `
		INSERT INTO app_user (id, email, phone, email_verified, phone_verified, name)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,''))`,
		u.ID, u.Email, u.Phone, u.EmailVerified, u.PhoneVerified, u.Name,
	)
	if _, ok := uniqueViolation(err); ok {
		return nil, core.ErrConflict
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credential (user_id, password_hash) VALUES ($1, $2)`,
		u.ID, passwordHash,
	)
	if err != nil {
		return nil, err
	}

	acc := &core.Account{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		Role:       core.RoleStudent,
		IsPersonal: true,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO account (id, user_id, role, suspended, is_personal)
		VALUES ($1, $2, $3, false, true)
		RETURNING `+accountCols,
		acc.ID, acc.UserID, acc.Role,
	)
	acc, err = scanAccount(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Store) GetCredential(ctx context.Context, userID string) (*core.Credential, error) {
	var c core.Credential
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, password_hash, updated_at FROM credential WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE app_user SET email_verified = $2 WHERE id = $1`, userID, verified)
	return err
}

func (s *Store) SetPhoneVerified(ctx context.Context, userID string, verified bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE app_user SET phone_verified = $2 WHERE id = $1`, userID, verified)
	return err
}
