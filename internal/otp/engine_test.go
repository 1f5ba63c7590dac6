package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/dropDatabas3/mercadito/internal/store/storetest"
)

type capturingMail struct {
	mu    sync.Mutex
	sent  []string // bodies
	fail  bool
	count int
}

func (m *capturingMail) Send(to, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	if m.fail {
		return errors.New("smtp caído")
	}
	m.sent = append(m.sent, htmlBody)
	return nil
}

type capturingSMS struct {
	mu   sync.Mutex
	to   []string
	body []string
}

func (s *capturingSMS) Send(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return nil
}

func testEngine(t *testing.T) (*Engine, *storetest.Fake, *capturingMail, *capturingSMS) {
	t.Helper()
	repo := storetest.New()
	mail := &capturingMail{}
	txt := &capturingSMS{}
	e := NewEngine(repo, mail, txt, 6, 10*time.Minute, 3)
	return e, repo, mail, txt
}

func testUser() *core.User {
	return &core.User{ID: "user-1", Email: "ana@example.com", Phone: "+5491122334455"}
}

func TestGenerateDigits(t *testing.T) {
	e, _, _, _ := testEngine(t)
	code, err := e.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("len = %d", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("código no numérico: %q", code)
		}
	}
}

func TestIssueCooldown(t *testing.T) {
	e, _, mail, _ := testEngine(t)
	ctx := context.Background()
	u := testUser()

	if err := e.Issue(ctx, u, core.OtpEmailVerification); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if mail.count != 1 {
		t.Fatalf("mails = %d", mail.count)
	}

	// segundo pedido dentro del TTL: cooldown, sin re-emisión
	err := e.Issue(ctx, u, core.OtpEmailVerification)
	var sent *AlreadySentError
	if !errors.As(err, &sent) {
		t.Fatalf("err = %v, quiero AlreadySentError", err)
	}
	if sent.NextAvailableIn <= 0 || sent.NextAvailableIn > 10*time.Minute {
		t.Fatalf("cooldown = %v", sent.NextAvailableIn)
	}
	if mail.count != 1 {
		t.Fatalf("mails = %d, no debía reenviar", mail.count)
	}

	// otro tipo para el mismo usuario no comparte cooldown
	if err := e.Issue(ctx, u, core.Otp2FAEmail); err != nil {
		t.Fatalf("issue otro tipo: %v", err)
	}
}

func TestIssueAfterExpiry(t *testing.T) {
	e, repo, _, _ := testEngine(t)
	ctx := context.Background()
	u := testUser()
	now := time.Now()
	e.WithClock(func() time.Time { return now })

	if err := e.Issue(ctx, u, core.OtpEmailVerification); err != nil {
		t.Fatalf("issue: %v", err)
	}
	later := now.Add(11 * time.Minute)
	e.WithClock(func() time.Time { return later })
	repo.Now = func() time.Time { return later }
	if err := e.Issue(ctx, u, core.OtpEmailVerification); err != nil {
		t.Fatalf("issue post-expiración: %v", err)
	}
}

// racingOtpRepo simula una carrera: el pre-check del engine no ve ningún
// código vivo, pero para cuando llega el insert otro request ya emitió.
type racingOtpRepo struct {
	*storetest.Fake
	prechecked bool
}

func (r *racingOtpRepo) GetActiveOtp(ctx context.Context, userID string, t core.OtpType, now time.Time) (*core.OtpRecord, error) {
	if !r.prechecked {
		r.prechecked = true
		return nil, core.ErrNotFound
	}
	return r.Fake.GetActiveOtp(ctx, userID, t, now)
}

func TestIssueRaceReturnsRealCooldown(t *testing.T) {
	fake := storetest.New()
	repo := &racingOtpRepo{Fake: fake}
	mail := &capturingMail{}
	e := NewEngine(repo, mail, &capturingSMS{}, 6, 10*time.Minute, 3)

	now := time.Now()
	e.WithClock(func() time.Time { return now })
	fake.Now = func() time.Time { return now }
	ctx := context.Background()
	u := testUser()

	// el código ganador fue emitido hace 6 minutos por el otro request
	if err := fake.InsertOtp(ctx, &core.OtpRecord{
		UserID: u.ID, Type: core.OtpEmailVerification, Code: "123456",
		MaxAttempts: 3, ExpireAt: now.Add(4 * time.Minute).UTC(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := e.Issue(ctx, u, core.OtpEmailVerification)
	var sent *AlreadySentError
	if !errors.As(err, &sent) {
		t.Fatalf("err = %v, quiero AlreadySentError", err)
	}
	// el cooldown es lo que le queda al código ganador, no el TTL entero
	if sent.NextAvailableIn != 4*time.Minute {
		t.Fatalf("cooldown = %v, quiero 4m", sent.NextAvailableIn)
	}
	if mail.count != 0 {
		t.Fatalf("mails = %d, no debía emitir", mail.count)
	}
}

func TestIssueSMSChannel(t *testing.T) {
	e, _, mail, txt := testEngine(t)
	ctx := context.Background()
	u := testUser()

	if err := e.Issue(ctx, u, core.OtpPhoneVerification); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(txt.to) != 1 || txt.to[0] != u.Phone {
		t.Fatalf("sms a %v", txt.to)
	}
	if mail.count != 0 {
		t.Fatal("un tipo SMS no manda mail")
	}
}

func TestIssueDeliveryFailureIsNotFatal(t *testing.T) {
	e, repo, mail, _ := testEngine(t)
	mail.fail = true
	ctx := context.Background()
	u := testUser()

	// la entrega es fire-and-forget: el código queda emitido igual
	if err := e.Issue(ctx, u, core.OtpEmailVerification); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := repo.GetActiveOtp(ctx, u.ID, core.OtpEmailVerification, time.Now()); err != nil {
		t.Fatalf("el código tiene que existir: %v", err)
	}
}

// issuedCode emite y espía el código persistido.
func issuedCode(t *testing.T, e *Engine, repo *storetest.Fake, u *core.User, typ core.OtpType) string {
	t.Helper()
	if err := e.Issue(context.Background(), u, typ); err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec, err := repo.GetActiveOtp(context.Background(), u.ID, typ, time.Now())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return rec.Code
}

func TestValidateHappyPathSingleUse(t *testing.T) {
	e, repo, _, _ := testEngine(t)
	ctx := context.Background()
	u := testUser()
	code := issuedCode(t, e, repo, u, core.OtpEmailVerification)

	if err := e.Validate(ctx, u.ID, core.OtpEmailVerification, code); err != nil {
		t.Fatalf("validate: %v", err)
	}
	// single use: el mismo código no entra dos veces
	if err := e.Validate(ctx, u.ID, core.OtpEmailVerification, code); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, quiero ErrExpired", err)
	}
}

func TestValidateMismatchThenSuccess(t *testing.T) {
	e, repo, _, _ := testEngine(t)
	ctx := context.Background()
	u := testUser()
	code := issuedCode(t, e, repo, u, core.OtpEmailVerification)

	if err := e.Validate(ctx, u.ID, core.OtpEmailVerification, "000000"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("err = %v, quiero ErrMismatch", err)
	}
	if err := e.Validate(ctx, u.ID, core.OtpEmailVerification, code); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateExhaustedNeverSucceeds(t *testing.T) {
	e, repo, _, _ := testEngine(t)
	ctx := context.Background()
	u := testUser()
	code := issuedCode(t, e, repo, u, core.OtpEmailVerification)

	// MaxAttempts = 3: tres errores queman el código
	for i := 0; i < 3; i++ {
		if err := e.Validate(ctx, u.ID, core.OtpEmailVerification, "000000"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("intento %d: err = %v", i, err)
		}
	}
	// el código correcto ya no sirve y el registro se descarta
	err := e.Validate(ctx, u.ID, core.OtpEmailVerification, code)
	if !errors.Is(err, ErrExhausted) && !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, quiero ErrExhausted/ErrExpired", err)
	}
	if _, err := repo.GetActiveOtp(ctx, u.ID, core.OtpEmailVerification, time.Now()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("el registro quemado tiene que borrarse: %v", err)
	}
	// post-descarte se puede re-emitir
	if err := e.Issue(ctx, u, core.OtpEmailVerification); err != nil {
		t.Fatalf("re-issue: %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	e, repo, _, _ := testEngine(t)
	ctx := context.Background()
	u := testUser()
	now := time.Now()
	e.WithClock(func() time.Time { return now })
	code := issuedCode(t, e, repo, u, core.OtpEmailVerification)

	e.WithClock(func() time.Time { return now.Add(11 * time.Minute) })
	if err := e.Validate(ctx, u.ID, core.OtpEmailVerification, code); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, quiero ErrExpired", err)
	}
}
