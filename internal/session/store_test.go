package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/storetest"
)

func testStore(now time.Time) (*Store, *storetest.Fake) {
	repo := storetest.New()
	s := NewStore(repo, 14*24*time.Hour).WithClock(func() time.Time { return now })
	return s, repo
}

func TestParseCombinedID(t *testing.T) {
	id, err := Parse("grupo-1:sesion-1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.GroupID != "grupo-1" || id.SessionID != "sesion-1" {
		t.Fatalf("id = %+v", id)
	}
	if got := id.String(); got != "grupo-1:sesion-1" {
		t.Fatalf("roundtrip = %q", got)
	}

	for _, bad := range []string{"", "sin-separador", ":solo-sesion", "solo-grupo:"} {
		if _, err := Parse(bad); !errors.Is(err, ErrBadID) {
			t.Fatalf("Parse(%q) err = %v, quiero ErrBadID", bad, err)
		}
	}

	// el sessionID puede llevar ':' adentro; el split es en el primero
	id, err = Parse("grp:a:b")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.GroupID != "grp" || id.SessionID != "a:b" {
		t.Fatalf("id = %+v", id)
	}
}

func TestCreateAndVerify(t *testing.T) {
	now := time.Now()
	s, _ := testStore(now)
	ctx := context.Background()

	id, exp, err := s.Create(ctx, CreateParams{AccountID: "acc-1", UserID: "user-1", IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id.IsZero() {
		t.Fatal("id vacío")
	}
	if want := now.UTC().Add(14 * 24 * time.Hour); !exp.Equal(want) {
		t.Fatalf("exp = %v, quiero %v", exp, want)
	}

	res, err := s.Verify(ctx, id.String())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Valid || res.NeedsRollover {
		t.Fatalf("res = %+v, sesión recién creada", res)
	}
	if res.Session.AccountID != "acc-1" || res.Session.UserID != "user-1" {
		t.Fatalf("session = %+v", res.Session)
	}
}

func TestCreatePreservesGroup(t *testing.T) {
	s, _ := testStore(time.Now())
	ctx := context.Background()

	first, _, err := s.Create(ctx, CreateParams{AccountID: "acc-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// switch de cuenta: misma familia, sesión nueva
	second, _, err := s.Create(ctx, CreateParams{AccountID: "acc-2", UserID: "user-1", GroupID: first.GroupID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.GroupID != first.GroupID {
		t.Fatalf("group = %q, quiero %q", second.GroupID, first.GroupID)
	}
	if second.SessionID == first.SessionID {
		t.Fatal("la sesión tiene que ser nueva")
	}
}

func TestVerifyInvalidInputs(t *testing.T) {
	now := time.Now()
	s, _ := testStore(now)
	ctx := context.Background()

	id, _, err := s.Create(ctx, CreateParams{AccountID: "acc-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// malformado, inexistente y grupo equivocado: todos {Valid:false} sin error
	for _, combined := range []string{
		"malformado",
		"otro-grupo:" + id.SessionID,
		id.GroupID + ":otra-sesion",
	} {
		res, err := s.Verify(ctx, combined)
		if err != nil {
			t.Fatalf("Verify(%q): %v", combined, err)
		}
		if res.Valid {
			t.Fatalf("Verify(%q) válido, no debería", combined)
		}
	}
}

func TestVerifyExpiryAndRolloverWindow(t *testing.T) {
	now := time.Now()
	s, _ := testStore(now)
	ctx := context.Background()

	id, _, err := s.Create(ctx, CreateParams{AccountID: "acc-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name     string
		at       time.Time
		valid    bool
		rollover bool
	}{
		{"recién creada", now, true, false},
		{"justo antes de mitad de vida", now.Add(7*24*time.Hour - time.Minute), true, false},
		{"pasada mitad de vida", now.Add(7*24*time.Hour + time.Minute), true, true},
		{"justo antes de expirar", now.Add(14*24*time.Hour - time.Minute), true, true},
		{"expirada", now.Add(14*24*time.Hour + time.Minute), false, false},
	}
	for _, tc := range cases {
		s.WithClock(func() time.Time { return tc.at })
		res, err := s.Verify(ctx, id.String())
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if res.Valid != tc.valid || res.NeedsRollover != tc.rollover {
			t.Fatalf("%s: valid=%v rollover=%v, quiero valid=%v rollover=%v",
				tc.name, res.Valid, res.NeedsRollover, tc.valid, tc.rollover)
		}
	}
}

func TestRolloverExtends(t *testing.T) {
	now := time.Now()
	s, _ := testStore(now)
	ctx := context.Background()

	id, _, err := s.Create(ctx, CreateParams{AccountID: "acc-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := now.Add(8 * 24 * time.Hour)
	s.WithClock(func() time.Time { return later })

	exp, err := s.Rollover(ctx, id.SessionID)
	if err != nil {
		t.Fatalf("rollover: %v", err)
	}
	if want := later.UTC().Add(14 * 24 * time.Hour); !exp.Equal(want) {
		t.Fatalf("exp = %v, quiero %v", exp, want)
	}

	// rollover repetido es idempotente: mismo resultado, sin error
	exp2, err := s.Rollover(ctx, id.SessionID)
	if err != nil {
		t.Fatalf("rollover 2: %v", err)
	}
	if !exp2.Equal(exp) {
		t.Fatalf("exp2 = %v, quiero %v", exp2, exp)
	}

	res, err := s.Verify(ctx, id.String())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Valid || res.NeedsRollover {
		t.Fatalf("res = %+v, la sesión quedó extendida", res)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s, _ := testStore(time.Now())
	ctx := context.Background()

	id, _, err := s.Create(ctx, CreateParams{AccountID: "acc-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, id.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	res, err := s.Verify(ctx, id.String())
	if err != nil || res.Valid {
		t.Fatalf("res = %+v err = %v, la sesión tiene que estar borrada", res, err)
	}
	// re-borrar o borrar basura no es error
	if err := s.Delete(ctx, id.String()); err != nil {
		t.Fatalf("delete 2: %v", err)
	}
	if err := s.Delete(ctx, "malformado"); err != nil {
		t.Fatalf("delete malformado: %v", err)
	}
}
