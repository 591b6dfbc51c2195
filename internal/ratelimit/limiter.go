// Package ratelimit provides a per-domain token-bucket limiter, used by
// the dark-web crawler, so no single onion service is hammered beyond its
// configured rate.
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces an independent rate.Limiter per domain/host, created
// lazily on first use with a default rate, and overridable per domain.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultEvery time.Duration
	defaultBurst int
}

// New creates a Limiter that allows one request per "every" duration per
// domain by default, with a burst of burst requests.
func New(every time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultEvery: every,
		defaultBurst: burst,
	}
}

// Wait blocks until rawURL's domain permits one more request, or ctx is
// cancelled first.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain := extractDomain(rawURL)
	if domain == "" {
		return nil
	}
	return l.limiterFor(domain).Wait(ctx)
}

// Allow reports whether rawURL's domain currently has a token available,
// without blocking; used by callers that prefer to skip rather than wait.
func (l *Limiter) Allow(rawURL string) bool {
	domain := extractDomain(rawURL)
	if domain == "" {
		return true
	}
	return l.limiterFor(domain).Allow()
}

// SetDomainRate overrides the rate for a specific domain.
func (l *Limiter) SetDomainRate(domain string, every time.Duration, burst int) {
	if burst < 1 {
		burst = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[domain] = rate.NewLimiter(rate.Every(every), burst)
}

func (l *Limiter) limiterFor(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[domain]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.defaultEvery), l.defaultBurst)
		l.limiters[domain] = lim
	}
	return lim
}

// extractDomain parses the host out of rawURL, returning "" on malformed
// input so callers can treat it as unthrottled rather than failing.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
