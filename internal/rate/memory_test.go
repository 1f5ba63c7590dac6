package rate

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func fixedClock(l *MemoryLimiter, at time.Time) {
	l.now = func() time.Time { return at }
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Now().Truncate(time.Minute)
	fixedClock(l, now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "k")
		if err != nil || !res.Allowed {
			t.Fatalf("hit %d: res = %+v err = %v", i, res, err)
		}
	}
	res, err := l.Allow(ctx, "k")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("tercer hit tenía que rebotar")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v", res.RetryAfter)
	}

	// ventana nueva: el contador arranca de cero
	fixedClock(l, now.Add(time.Minute))
	res, err = l.Allow(ctx, "k")
	if err != nil || !res.Allowed {
		t.Fatalf("post-ventana: res = %+v err = %v", res, err)
	}
}

func TestMemoryLimiterEvictsExpiredWindows(t *testing.T) {
	l := NewMemoryLimiter(10, time.Minute)
	now := time.Now().Truncate(time.Minute)
	fixedClock(l, now)
	l.lastSweep = now
	ctx := context.Background()

	// una key por (ip, email) distinto: el login genera muchas
	for i := 0; i < 50; i++ {
		if _, err := l.Allow(ctx, fmt.Sprintf("login:10.0.0.%d:ana@example.com", i)); err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
	}
	if len(l.wins) != 50 {
		t.Fatalf("wins = %d", len(l.wins))
	}

	// pasada la ventana, el próximo Allow barre todo lo vencido
	fixedClock(l, now.Add(2*time.Minute))
	if _, err := l.Allow(ctx, "otra"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if len(l.wins) != 1 {
		t.Fatalf("wins = %d, las ventanas vencidas tienen que purgarse", len(l.wins))
	}
}
