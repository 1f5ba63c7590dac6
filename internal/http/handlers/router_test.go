package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/mercadito/internal/app"
	"github.com/dropDatabas3/mercadito/internal/authz"
	"github.com/dropDatabas3/mercadito/internal/cache"
	"github.com/dropDatabas3/mercadito/internal/config"
	"github.com/dropDatabas3/mercadito/internal/email"
	"github.com/dropDatabas3/mercadito/internal/jwt"
	"github.com/dropDatabas3/mercadito/internal/oauth"
	"github.com/dropDatabas3/mercadito/internal/otp"
	"github.com/dropDatabas3/mercadito/internal/routes"
	"github.com/dropDatabas3/mercadito/internal/session"
	"github.com/dropDatabas3/mercadito/internal/sms"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/dropDatabas3/mercadito/internal/store/storetest"
)

// testApp arma el servicio entero contra el repo en memoria, sin red ni
// DB: el mismo grafo que main pero con fakes en los bordes.
func testApp(t *testing.T) (*app.Container, http.Handler, *storetest.Fake) {
	t.Helper()

	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.JWT.Secret = "secreto-de-test"

	repo := storetest.New()
	cacheClient, err := cache.New(cache.Config{Kind: "memory", DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { _ = cacheClient.Close() })

	issuer := jwt.NewIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.Secret), 15*time.Minute, 30*24*time.Hour)
	sessions := session.NewStore(repo, 14*24*time.Hour)
	engine := otp.NewEngine(repo, email.LogSender{}, sms.LogSender{}, 6, 10*time.Minute, 5)

	c := &app.Container{
		Cfg:      cfg,
		Store:    repo,
		Cache:    cacheClient,
		Issuer:   issuer,
		Sessions: sessions,
		Authz: &authz.Authorizer{
			Issuer:   issuer,
			Sessions: sessions,
			Perms:    authz.NewPermissionResolver(repo, cacheClient, time.Minute),
			Repo:     repo,
		},
		Otp:       engine,
		Providers: oauth.NewRegistry(),
		Linker:    oauth.NewLinker(repo),
		States:    oauth.NewStateSigner([]byte(cfg.JWT.Secret)),
		Routes:    routes.NewRegistry(routes.Table),
	}
	return c, NewRouter(c, nil), repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if mod != nil {
		mod(r)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func registerUser(t *testing.T, h http.Handler, emailAddr string) (res authResponse) {
	t.Helper()
	rec := doJSON(t, h, "POST", "/v1/auth/register", map[string]string{
		"email": emailAddr, "password": "superSecreta1", "name": "Ana",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &res)
	return res
}

func TestRegisterLoginMe(t *testing.T) {
	_, h, _ := testApp(t)

	res := registerUser(t, h, "ana@example.com")
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("tokens vacíos: %+v", res.Tokens)
	}
	if !res.Account.IsPersonal {
		t.Fatalf("account = %+v, el alta crea cuenta personal", res.Account)
	}

	// email duplicado
	rec := doJSON(t, h, "POST", "/v1/auth/register", map[string]string{
		"email": "ana@example.com", "password": "superSecreta1",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicado status = %d", rec.Code)
	}

	// password equivocada: mismo 401 que usuario inexistente
	rec = doJSON(t, h, "POST", "/v1/auth/login", map[string]string{
		"email": "ana@example.com", "password": "equivocada!",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login malo status = %d", rec.Code)
	}
	rec = doJSON(t, h, "POST", "/v1/auth/login", map[string]string{
		"email": "nadie@example.com", "password": "superSecreta1",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login inexistente status = %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/v1/auth/login", map[string]string{
		"email": "ana@example.com", "password": "superSecreta1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", rec.Code, rec.Body.String())
	}
	var login authResponse
	decode(t, rec, &login)

	// /v1/me con Bearer
	rec = doJSON(t, h, "GET", "/v1/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+login.Tokens.AccessToken)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d body = %s", rec.Code, rec.Body.String())
	}
	var me struct {
		User userDTO `json:"user"`
	}
	decode(t, rec, &me)
	if me.User.Email != "ana@example.com" {
		t.Fatalf("me = %+v", me)
	}

	// sin credenciales
	rec = doJSON(t, h, "GET", "/v1/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me sin creds status = %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	_, h, _ := testApp(t)

	rec := doJSON(t, h, "POST", "/v1/auth/register", map[string]string{
		"email": "no-es-email", "password": "superSecreta1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("email inválido status = %d", rec.Code)
	}
	rec = doJSON(t, h, "POST", "/v1/auth/register", map[string]string{
		"email": "ana@example.com", "password": "corta",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("password corta status = %d", rec.Code)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	_, h, _ := testApp(t)

	rec := doJSON(t, h, "GET", "/v1/no-existe", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, quiero 404", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/v1/auth/login", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, quiero 405", rec.Code)
	}
}

func TestOtpVerifyFlow(t *testing.T) {
	_, h, repo := testApp(t)
	res := registerUser(t, h, "ana@example.com")
	bearer := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+res.Tokens.AccessToken)
	}

	// el alta ya emitió el código de registro; pedir otro da cooldown
	rec := doJSON(t, h, "POST", "/v1/otp/send", map[string]string{"type": "registration"}, bearer)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("re-send status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("falta Retry-After")
	}

	// espiar el código persistido y verificarlo
	otpRec, err := repo.GetActiveOtp(context.Background(), res.User.ID, core.OtpRegistration, time.Now())
	if err != nil {
		t.Fatalf("get otp: %v", err)
	}

	rec = doJSON(t, h, "POST", "/v1/otp/verify", map[string]string{
		"type": "registration", "code": "000000",
	}, bearer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("código malo status = %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/v1/otp/verify", map[string]string{
		"type": "registration", "code": otpRec.Code,
	}, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d body = %s", rec.Code, rec.Body.String())
	}

	u, err := repo.GetUserByID(context.Background(), res.User.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.EmailVerified {
		t.Fatal("el código de registro tiene que verificar el email")
	}
}

func TestRefreshAndLogout(t *testing.T) {
	_, h, _ := testApp(t)
	res := registerUser(t, h, "ana@example.com")

	rec := doJSON(t, h, "POST", "/v1/auth/refresh", map[string]string{
		"refresh_token": res.Tokens.RefreshToken,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body = %s", rec.Code, rec.Body.String())
	}
	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, rec, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatal("refresh sin access nuevo")
	}

	rec = doJSON(t, h, "POST", "/v1/auth/logout", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+res.Tokens.AccessToken)
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	// la sesión murió: el refresh viejo ya no sirve
	rec = doJSON(t, h, "POST", "/v1/auth/refresh", map[string]string{
		"refresh_token": res.Tokens.RefreshToken,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh post-logout status = %d", rec.Code)
	}
}

func TestWorkspaceScopedDenied(t *testing.T) {
	_, h, repo := testApp(t)
	res := registerUser(t, h, "ana@example.com")
	repo.SetPerms(core.RoleStudent, []string{routes.PermCardRead})

	// cuenta personal sin workspace: 403 contra cualquier workspace
	rec := doJSON(t, h, "GET", "/v1/workspaces/ws-1/cards", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+res.Tokens.AccessToken)
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	_, h, _ := testApp(t)
	rec := doJSON(t, h, "GET", "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/readyz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestSocialStartUnknownProvider(t *testing.T) {
	_, h, _ := testApp(t)
	rec := doJSON(t, h, "GET", "/v1/auth/social/github/start", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, proveedor fuera del set", rec.Code)
	}
}
