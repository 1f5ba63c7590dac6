package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/core"
)

func testIssuer(now time.Time) *Issuer {
	i := NewIssuer("mercadito-test", []byte("secreto-de-test"), 15*time.Minute, 30*24*time.Hour)
	return i.WithClock(func() time.Time { return now })
}

func TestAccessRoundTrip(t *testing.T) {
	now := time.Now()
	i := testIssuer(now)

	signed, exp, err := i.SignAccess(AccessClaims{
		UserID:        "user-1",
		AccountID:     "acc-1",
		SessionID:     "grp:sess",
		Role:          core.RoleTeacher,
		EmailVerified: true,
		WorkspaceID:   "ws-1",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if want := now.UTC().Add(15 * time.Minute); !exp.Equal(want) {
		t.Fatalf("exp = %v, quiero %v", exp, want)
	}

	c, err := i.ParseAccess(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UserID != "user-1" || c.AccountID != "acc-1" || c.SessionID != "grp:sess" {
		t.Fatalf("claims: %+v", c)
	}
	if c.Role != core.RoleTeacher || !c.EmailVerified || c.WorkspaceID != "ws-1" {
		t.Fatalf("claims: %+v", c)
	}
	if c.Use != UseAccess {
		t.Fatalf("use = %q", c.Use)
	}
}

func TestAccessExpiry(t *testing.T) {
	now := time.Now()
	i := testIssuer(now)

	signed, _, err := i.SignAccess(AccessClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// dentro del leeway todavía pasa
	i.WithClock(func() time.Time { return now.Add(15*time.Minute + 10*time.Second) })
	if _, err := i.ParseAccess(signed); err != nil {
		t.Fatalf("dentro del leeway: %v", err)
	}

	i.WithClock(func() time.Time { return now.Add(16 * time.Minute) })
	if _, err := i.ParseAccess(signed); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, quiero ErrExpired", err)
	}
}

func TestRefreshRejectedAsAccess(t *testing.T) {
	i := testIssuer(time.Now())

	signed, _, err := i.SignRefresh(RefreshClaims{SessionID: "grp:sess", UserID: "user-1"})
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	// el claim use corta el cruce en ambas direcciones
	if _, err := i.ParseAccess(signed); !errors.Is(err, ErrInvalid) {
		t.Fatalf("refresh como access: err = %v, quiero ErrInvalid", err)
	}

	access, _, err := i.SignAccess(AccessClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	if _, err := i.ParseRefresh(access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("access como refresh: err = %v, quiero ErrInvalid", err)
	}
}

func TestWrongSecretAndIssuer(t *testing.T) {
	now := time.Now()
	i := testIssuer(now)
	signed, _, err := i.SignAccess(AccessClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewIssuer("mercadito-test", []byte("otro-secreto"), 0, 0).
		WithClock(func() time.Time { return now })
	if _, err := other.ParseAccess(signed); !errors.Is(err, ErrInvalid) {
		t.Fatalf("firma ajena: err = %v, quiero ErrInvalid", err)
	}

	otherIss := NewIssuer("otro-servicio", []byte("secreto-de-test"), 0, 0).
		WithClock(func() time.Time { return now })
	if _, err := otherIss.ParseAccess(signed); !errors.Is(err, ErrInvalid) {
		t.Fatalf("issuer ajeno: err = %v, quiero ErrInvalid", err)
	}

	if _, err := i.ParseAccess("no-es-un-jwt"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("basura: err = %v, quiero ErrInvalid", err)
	}
}

func TestNewTokenIDUnique(t *testing.T) {
	a, b := NewTokenID(), NewTokenID()
	if a == b {
		t.Fatal("dos tokenIds iguales")
	}
}
