package routes

import (
	"errors"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry([]EndpointConfig{
		{PathPattern: "/v1/auth/login", Method: "POST"},
		{PathPattern: "/v1/workspaces/:workspaceId/cards", Method: "GET", AuthRequired: true, Permission: PermCardRead, WorkspaceScoped: true},
		{PathPattern: "/v1/workspaces/:workspaceId/cards", Method: "POST", AuthRequired: true, Permission: PermCardWrite, WorkspaceScoped: true},
		{PathPattern: "/v1/workspaces/self/cards", Method: "GET", AuthRequired: true},
		{PathPattern: "/v1/auth/social/:provider/callback", Method: "GET"},
		{PathPattern: "/v1/auth/social/:provider/callback", Method: "POST"},
	})
}

func TestResolveExtractsParams(t *testing.T) {
	r := testRegistry(t)

	m, err := r.Resolve("GET", "/v1/workspaces/ws-42/cards")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Pattern != "/v1/workspaces/:workspaceId/cards" {
		t.Fatalf("pattern = %q", m.Pattern)
	}
	if got := m.Params["workspaceId"]; got != "ws-42" {
		t.Fatalf("workspaceId = %q, quiero ws-42", got)
	}
	if !m.Config.WorkspaceScoped {
		t.Fatal("config equivocado: WorkspaceScoped debería ser true")
	}
}

func TestResolveSegmentCountMustMatch(t *testing.T) {
	r := testRegistry(t)

	// un segmento de más / de menos nunca matchea
	for _, path := range []string{
		"/v1/workspaces/ws-1/cards/extra",
		"/v1/workspaces/cards",
		"/v1",
		"/",
	} {
		if _, err := r.Resolve("GET", path); !errors.Is(err, ErrNoRoute) {
			t.Fatalf("Resolve(%q) err = %v, quiero ErrNoRoute", path, err)
		}
	}
}

func TestResolveLiteralBeatsParam(t *testing.T) {
	r := testRegistry(t)

	m, err := r.Resolve("GET", "/v1/workspaces/self/cards")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Pattern != "/v1/workspaces/self/cards" {
		t.Fatalf("pattern = %q, gana el literal", m.Pattern)
	}
	if len(m.Params) != 0 {
		t.Fatalf("params = %v, el literal no extrae nada", m.Params)
	}
}

func TestResolveMethodNotAllowed(t *testing.T) {
	r := testRegistry(t)

	// path registrado, método equivocado ⇒ 405, no 404
	if _, err := r.Resolve("DELETE", "/v1/workspaces/ws-1/cards"); !errors.Is(err, ErrMethodNotAllowed) {
		t.Fatalf("err = %v, quiero ErrMethodNotAllowed", err)
	}
	if _, err := r.Resolve("GET", "/v1/auth/login"); !errors.Is(err, ErrMethodNotAllowed) {
		t.Fatalf("err = %v, quiero ErrMethodNotAllowed", err)
	}
	// path inexistente ⇒ 404
	if _, err := r.Resolve("GET", "/v1/nope"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, quiero ErrNoRoute", err)
	}
}

func TestResolveSameBothMethods(t *testing.T) {
	r := testRegistry(t)

	for _, method := range []string{"GET", "POST"} {
		m, err := r.Resolve(method, "/v1/auth/social/apple/callback")
		if err != nil {
			t.Fatalf("%s callback: %v", method, err)
		}
		if m.Params["provider"] != "apple" {
			t.Fatalf("provider = %q", m.Params["provider"])
		}
	}
}

func TestNewRegistryPanicsOnBadPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("patrón sin / inicial tiene que panicear al arranque")
		}
	}()
	NewRegistry([]EndpointConfig{{PathPattern: "sin-barra", Method: "GET"}})
}

func TestTableCompiles(t *testing.T) {
	r := NewRegistry(Table)
	if got, want := len(r.Patterns()), len(Table); got != want {
		t.Fatalf("patterns = %d, quiero %d", got, want)
	}
}
