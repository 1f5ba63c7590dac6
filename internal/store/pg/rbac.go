package pg

import (
	"context"

	"github.com/dropDatabas3/mercadito/internal/store/core"
)

func (s *Store) PermissionsForRole(ctx context.Context, role core.Role) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT permission FROM role_permission WHERE role = $1 ORDER BY permission`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
