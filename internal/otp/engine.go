// Package otp genera, limita, entrega y valida códigos one-time para 2FA
// y verificación de contacto.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dropDatabas3/mercadito/internal/email"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/sms"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/dropDatabas3/mercadito/internal/util"
)

// Errores tipados del engine. AlreadySentError lleva el cooldown restante.
var (
	ErrExpired   = errors.New("otp: expired or missing")
	ErrMismatch  = errors.New("otp: code mismatch")
	ErrExhausted = errors.New("otp: attempts exhausted")
)

type AlreadySentError struct {
	NextAvailableIn time.Duration
}

func (e *AlreadySentError) Error() string {
	return fmt.Sprintf("otp: code already sent, retry in %s", e.NextAvailableIn.Round(time.Second))
}

// Engine emite y valida códigos. Garantiza a lo sumo un código vivo por
// (userID, type): el pre-check devuelve el cooldown amigable, el índice
// único del storage es el invariante real bajo concurrencia.
type Engine struct {
	Repo        core.Repository
	Email       email.Sender
	SMS         sms.Sender
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int

	now func() time.Time
}

func NewEngine(repo core.Repository, mail email.Sender, txt sms.Sender, codeLength int, ttl time.Duration, maxAttempts int) *Engine {
	if codeLength == 0 {
		codeLength = 6
	}
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	return &Engine{
		Repo:        repo,
		Email:       mail,
		SMS:         txt,
		CodeLength:  codeLength,
		TTL:         ttl,
		MaxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Generate produce un código numérico de CodeLength dígitos con
// crypto/rand.
func (e *Engine) Generate() (string, error) {
	out := make([]byte, e.CodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}

// Issue emite y entrega un código para (user, type). Si ya hay un código
// vivo devuelve *AlreadySentError con el cooldown restante en lugar de
// emitir un segundo código.
func (e *Engine) Issue(ctx context.Context, u *core.User, t core.OtpType) error {
	now := e.now().UTC()

	// Pre-check amigable: cooldown restante si hay código vivo.
	if rec, err := e.Repo.GetActiveOtp(ctx, u.ID, t, now); err == nil {
		return &AlreadySentError{NextAvailableIn: rec.ExpireAt.Sub(now)}
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	code, err := e.Generate()
	if err != nil {
		return err
	}
	rec := &core.OtpRecord{
		UserID:      u.ID,
		Type:        t,
		Code:        code,
		MaxAttempts: e.MaxAttempts,
		ExpireAt:    now.Add(e.TTL),
	}
	if err := e.Repo.InsertOtp(ctx, rec); err != nil {
		if errors.Is(err, core.ErrOtpActive) {
			// Perdimos la carrera contra otro request; el índice único
			// mantuvo el invariante. Releemos para devolver el cooldown
			// real del código ganador, no el TTL completo.
			if live, lerr := e.Repo.GetActiveOtp(ctx, u.ID, t, now); lerr == nil {
				return &AlreadySentError{NextAvailableIn: live.ExpireAt.Sub(now)}
			}
			return &AlreadySentError{NextAvailableIn: e.TTL}
		}
		return err
	}

	e.deliver(ctx, u, t, code)
	return nil
}

// deliver es fire-and-forget: el error de entrega se loguea y listo.
// La política de retry pertenece al colaborador de mail/SMS, no acá.
func (e *Engine) deliver(ctx context.Context, u *core.User, t core.OtpType, code string) {
	log := logger.From(ctx).With(logger.Component("otp"), logger.UserID(u.ID), logger.OtpType(string(t)))
	if t.IsSMS() {
		if u.Phone == "" {
			log.Warn("sin teléfono para entregar código")
			return
		}
		if err := e.SMS.Send(ctx, u.Phone, fmt.Sprintf("Tu código de mercadito es %s", code)); err != nil {
			log.Warn("sms delivery failed", logger.Err(err), logger.String("to", util.MaskPhone(u.Phone)))
		}
		return
	}
	subject, html := renderEmail(t, code)
	if err := e.Email.Send(u.Email, subject, html, ""); err != nil {
		log.Warn("email delivery failed", logger.Err(err), logger.String("to", util.MaskEmail(u.Email)))
	}
}

// Validate consume un intento. El contador avanza ANTES de comparar: una
// vez agotado, el código queda inválido aunque sea correcto y el registro
// se descarta, forzando re-emisión. Validación exitosa borra el registro
// (single use).
func (e *Engine) Validate(ctx context.Context, userID string, t core.OtpType, submitted string) error {
	now := e.now().UTC()

	rec, err := e.Repo.GetActiveOtp(ctx, userID, t, now)
	if errors.Is(err, core.ErrNotFound) {
		return ErrExpired
	}
	if err != nil {
		return err
	}

	if rec.Attempts >= rec.MaxAttempts {
		_ = e.Repo.DeleteOtp(ctx, userID, t)
		return ErrExhausted
	}

	attempts, err := e.Repo.IncrementOtpAttempts(ctx, userID, t)
	if err != nil {
		return err
	}
	if attempts > rec.MaxAttempts {
		_ = e.Repo.DeleteOtp(ctx, userID, t)
		return ErrExhausted
	}

	if rec.Code != submitted {
		return ErrMismatch
	}

	return e.Repo.DeleteOtp(ctx, userID, t)
}

func renderEmail(t core.OtpType, code string) (subject, html string) {
	switch t {
	case core.OtpEmailVerification, core.OtpRegistration:
		subject = "Verificá tu email"
	case core.Otp2FAEmail:
		subject = "Tu código de ingreso"
	default:
		subject = "Tu código de mercadito"
	}
	html = fmt.Sprintf(
		`<p>Tu código es <strong style="font-size:1.4em">%s</strong>.</p><p>Vence en unos minutos. Si no lo pediste, ignorá este mail.</p>`,
		code,
	)
	return subject, html
}
