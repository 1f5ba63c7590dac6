package authz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/mercadito/internal/cache"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	"golang.org/x/sync/singleflight"
)

// PermissionResolver resuelve el set de permisos de un rol, con cache de
// TTL corto adelante de la DB. singleflight evita estampidas por rol ante
// misses concurrentes.
type PermissionResolver struct {
	Repo  core.Repository
	Cache cache.Client
	TTL   time.Duration

	sf singleflight.Group
}

func NewPermissionResolver(repo core.Repository, c cache.Client, ttl time.Duration) *PermissionResolver {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &PermissionResolver{Repo: repo, Cache: c, TTL: ttl}
}

func permKey(role core.Role) string { return "perms:" + string(role) }

// ForRole devuelve el set de permisos del rol.
func (p *PermissionResolver) ForRole(ctx context.Context, role core.Role) ([]string, error) {
	if p.Cache != nil {
		if raw, err := p.Cache.Get(ctx, permKey(role)); err == nil {
			var perms []string
			if json.Unmarshal([]byte(raw), &perms) == nil {
				return perms, nil
			}
		}
	}

	v, err, _ := p.sf.Do(string(role), func() (any, error) {
		perms, err := p.Repo.PermissionsForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		if p.Cache != nil {
			if raw, err := json.Marshal(perms); err == nil {
				_ = p.Cache.Set(ctx, permKey(role), string(raw), p.TTL)
			}
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	perms, _ := v.([]string)
	return perms, nil
}

// Has chequea pertenencia en el set resuelto.
func Has(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}
