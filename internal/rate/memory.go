package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: fixed window en memoria, para dev o cuando no hay redis.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu        sync.Mutex
	wins      map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	start time.Time
	hits  int64
}

func NewMemoryLimiter(max int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:       int64(max),
		Window:    win,
		wins:      map[string]*window{},
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.wins[key]
	if w == nil || now.Sub(w.start) >= l.Window {
		w = &window{start: now.Truncate(l.Window)}
		l.wins[key] = w
	}
	w.hits++

	// Sin esto el mapa crece una entrada por key distinta (ip+email en
	// login) y nunca libera nada.
	l.sweep(now)

	remaining := l.Max - w.hits
	if remaining < 0 {
		remaining = 0
	}
	ttl := l.Window - now.Sub(w.start)
	res := Result{
		Allowed:     w.hits <= l.Max,
		Remaining:   remaining,
		CurrentHits: w.hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

// sweep purga ventanas vencidas a lo sumo una vez por Window. Se llama con
// el lock tomado.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.Window {
		return
	}
	l.lastSweep = now
	for key, w := range l.wins {
		if now.Sub(w.start) >= l.Window {
			delete(l.wins, key)
		}
	}
}
