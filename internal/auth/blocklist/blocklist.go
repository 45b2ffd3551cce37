// Package blocklist keeps revoked access tokens unusable until they expire.
//
// Redis is the primary store so revocations apply across replicas. When
// Redis is unreachable the ledger degrades to an in-process bounded map:
// revocations still take effect locally instead of being dropped, at the
// cost of being process-local and lost on restart.
package blocklist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "token:block:"

// maxLocalEntries bounds the fallback map so a Redis outage cannot grow
// memory without limit.
const maxLocalEntries = 10000

// Ledger records revoked tokens for the lifetime they could still verify.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	local map[string]time.Time
}

// New constructs a Ledger. ttl must cover the maximum access token
// lifetime; client may be nil, in which case only the local map is used.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Ledger {
	return &Ledger{
		client: client,
		ttl:    ttl,
		logger: logger,
		local:  make(map[string]time.Time),
	}
}

// Revoke marks the token unusable. The entry lives exactly as long as the
// token could, so the ledger never grows beyond the active token window.
func (l *Ledger) Revoke(ctx context.Context, token string) error {
	if l.client != nil {
		err := l.client.Set(ctx, keyPrefix+token, "1", l.ttl).Err()
		if err == nil {
			return nil
		}
		if l.logger != nil {
			l.logger.Warn("token ledger falling back to local map", slog.Any("error", err))
		}
	}
	l.revokeLocal(token)
	return nil
}

// IsRevoked reports whether the token has been revoked. Local entries are
// consulted first so revocations made during a Redis outage still hold.
func (l *Ledger) IsRevoked(ctx context.Context, token string) bool {
	if l.isRevokedLocal(token) {
		return true
	}
	if l.client == nil {
		return false
	}
	n, err := l.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("token ledger lookup failed", slog.Any("error", err))
		}
		return false
	}
	return n > 0
}

func (l *Ledger) revokeLocal(token string) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for tok, exp := range l.local {
		if exp.Before(now) {
			delete(l.local, tok)
		}
	}
	if len(l.local) >= maxLocalEntries {
		l.evictSoonestLocked()
	}
	l.local[token] = now.Add(l.ttl)
}

func (l *Ledger) isRevokedLocal(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.local[token]
	if !ok {
		return false
	}
	if exp.Before(time.Now()) {
		delete(l.local, token)
		return false
	}
	return true
}

// evictSoonestLocked drops the entry closest to expiry. Called with mu held.
func (l *Ledger) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for tok, exp := range l.local {
		if victim == "" || exp.Before(soonest) {
			victim = tok
			soonest = exp
		}
	}
	if victim != "" {
		delete(l.local, victim)
	}
}
