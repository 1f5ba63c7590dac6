// Package storetest provee una implementación en memoria de
// core.Repository para tests. Replica la semántica de errores del
// backend de Postgres (sentinelas, unicidad, ventanas de expiración).
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/core"
)

type Fake struct {
	mu sync.Mutex

	// Now es el reloj del "motor SQL" (chequeo de código OTP vivo).
	// Settable en tests que viajan en el tiempo.
	Now func() time.Time

	users    map[string]*core.User
	accounts map[string]*core.Account
	creds    map[string]*core.Credential
	sessions map[string]*core.Session
	otps     map[string]*core.OtpRecord
	links    map[string]*core.ProviderLink
	perms    map[core.Role][]string

	seq atomic.Int64
}

func New() *Fake {
	return &Fake{
		Now:      time.Now,
		users:    map[string]*core.User{},
		accounts: map[string]*core.Account{},
		creds:    map[string]*core.Credential{},
		sessions: map[string]*core.Session{},
		otps:     map[string]*core.OtpRecord{},
		links:    map[string]*core.ProviderLink{},
		perms:    map[core.Role][]string{},
	}
}

func (f *Fake) nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, f.seq.Add(1))
}

func otpKey(userID string, t core.OtpType) string     { return userID + "|" + string(t) }
func linkKey(p core.OAuthProvider, pid string) string { return string(p) + "|" + pid }

func (f *Fake) Ping(ctx context.Context) error { return nil }

type noopTx struct{}

func (noopTx) Commit(ctx context.Context) error   { return nil }
func (noopTx) Rollback(ctx context.Context) error { return nil }

func (f *Fake) BeginTx(ctx context.Context) (core.Tx, error) { return noopTx{}, nil }

// ------- Users / Accounts -------

func (f *Fake) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *Fake) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *Fake) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *Fake) ListAccountsByUser(ctx context.Context, userID string) ([]core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *Fake) CreateUserWithAccount(ctx context.Context, u *core.User, passwordHash *string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, core.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = f.nextID("user")
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	f.users[u.ID] = &cp

	acc := &core.Account{
		ID:         f.nextID("acc"),
		UserID:     u.ID,
		Role:       core.RoleStudent,
		IsPersonal: true,
		CreatedAt:  u.CreatedAt,
	}
	f.accounts[acc.ID] = acc
	if passwordHash != nil {
		f.creds[u.ID] = &core.Credential{UserID: u.ID, PasswordHash: passwordHash}
	}
	out := *acc
	return &out, nil
}

// AddUser inserta directamente (setup de tests).
func (f *Fake) AddUser(u *core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
}

// AddAccount inserta directamente (setup de tests).
func (f *Fake) AddAccount(a *core.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.ID] = &cp
}

// SetPerms define el set de permisos de un rol (setup de tests).
func (f *Fake) SetPerms(role core.Role, perms []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms[role] = perms
}

func (f *Fake) GetCredential(ctx context.Context, userID string) (*core.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.EmailVerified = verified
	return nil
}

func (f *Fake) SetPhoneVerified(ctx context.Context, userID string, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.PhoneVerified = verified
	return nil
}

// ------- RBAC -------

func (f *Fake) PermissionsForRole(ctx context.Context, role core.Role) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.perms[role]...), nil
}

// ------- Sessions -------

func (f *Fake) CreateSession(ctx context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; ok {
		return core.ErrConflict
	}
	s.CreatedAt = time.Now().UTC()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *Fake) GetValidSession(ctx context.Context, id, groupID string, now time.Time) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.GroupID != groupID || !s.ExpireAt.After(now) {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) UpdateSessionExpiry(ctx context.Context, id string, expireAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return core.ErrNotFound
	}
	s.ExpireAt = expireAt
	return nil
}

func (f *Fake) DeleteSession(ctx context.Context, id, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.GroupID == groupID {
		delete(f.sessions, id)
	}
	return nil
}

// ------- OTP -------

func (f *Fake) InsertOtp(ctx context.Context, rec *core.OtpRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := otpKey(rec.UserID, rec.Type)
	if existing, ok := f.otps[key]; ok && existing.ExpireAt.After(f.Now().UTC()) {
		return core.ErrOtpActive
	}
	rec.CreatedAt = time.Now().UTC()
	cp := *rec
	f.otps[key] = &cp
	return nil
}

func (f *Fake) GetActiveOtp(ctx context.Context, userID string, t core.OtpType, now time.Time) (*core.OtpRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.otps[otpKey(userID, t)]
	if !ok || !rec.ExpireAt.After(now) {
		return nil, core.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *Fake) IncrementOtpAttempts(ctx context.Context, userID string, t core.OtpType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.otps[otpKey(userID, t)]
	if !ok {
		return 0, core.ErrNotFound
	}
	rec.Attempts++
	return rec.Attempts, nil
}

func (f *Fake) DeleteOtp(ctx context.Context, userID string, t core.OtpType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.otps, otpKey(userID, t))
	return nil
}

// ------- OAuth links -------

func (f *Fake) GetProviderLink(ctx context.Context, p core.OAuthProvider, providerUserID string) (*core.ProviderLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[linkKey(p, providerUserID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *Fake) GetProviderLinkByUser(ctx context.Context, userID string, p core.OAuthProvider) (*core.ProviderLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.UserID == userID && l.Provider == p {
			cp := *l
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *Fake) LinkProvider(ctx context.Context, link *core.ProviderLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := linkKey(link.Provider, link.ProviderUserID)
	if existing, ok := f.links[key]; ok && existing.UserID != link.UserID {
		return core.ErrProviderLinked
	}
	// Mismo comportamiento que pg: el usuario ya tiene OTRO sujeto para
	// este proveedor, el upsert condicionado no toca nada.
	for _, l := range f.links {
		if l.UserID == link.UserID && l.Provider == link.Provider && l.ProviderUserID != link.ProviderUserID {
			return core.ErrProviderLinked
		}
	}
	link.CreatedAt = time.Now().UTC()
	cp := *link
	f.links[key] = &cp
	if u, ok := f.users[link.UserID]; ok {
		u.EmailVerified = true
	}
	return nil
}
