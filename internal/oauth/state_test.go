package oauth

import (
	"errors"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	s := NewStateSigner([]byte("secreto-de-test"))

	nonce := NewNonce()
	state, err := s.Sign("google", nonce)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := s.Verify(state)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Provider != "google" || claims.Nonce != nonce {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestStateExpiry(t *testing.T) {
	now := time.Now()
	s := NewStateSigner([]byte("secreto-de-test"))
	s.now = func() time.Time { return now }

	state, err := s.Sign("google", NewNonce())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s.now = func() time.Time { return now.Add(11 * time.Minute) }
	if _, err := s.Verify(state); !errors.Is(err, ErrBadState) {
		t.Fatalf("err = %v, quiero ErrBadState", err)
	}
}

func TestStateTamper(t *testing.T) {
	s := NewStateSigner([]byte("secreto-de-test"))
	state, err := s.Sign("google", NewNonce())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewStateSigner([]byte("otro-secreto"))
	if _, err := other.Verify(state); !errors.Is(err, ErrBadState) {
		t.Fatalf("firma ajena: err = %v, quiero ErrBadState", err)
	}
	if _, err := s.Verify(state + "x"); !errors.Is(err, ErrBadState) {
		t.Fatalf("alterado: err = %v, quiero ErrBadState", err)
	}
	if _, err := s.Verify(""); !errors.Is(err, ErrBadState) {
		t.Fatalf("vacío: err = %v, quiero ErrBadState", err)
	}
}

func TestNewNonceUnique(t *testing.T) {
	if NewNonce() == NewNonce() {
		t.Fatal("dos nonces iguales")
	}
}
