// Package ratelimit throttles clients with one token bucket per IP.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*client
	stopCleanup  chan struct{}
	shutdownOnce sync.Once

	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	interval time.Duration
	now      func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Config struct {
	RPS   float64
	Burst int
	// Clients idle longer than IdleTTL are forgotten by the cleanup pass.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RPS:             10,
		Burst:           30,
		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter starts the cleanup goroutine; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	if cfg.Burst < 1 {
		cfg.Burst = def.Burst
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		clients:     make(map[string]*client),
		stopCleanup: make(chan struct{}),
		rps:         rate.Limit(cfg.RPS),
		burst:       cfg.Burst,
		idleTTL:     cfg.IdleTTL,
		interval:    cfg.CleanupInterval,
		now:         time.Now,
	}
	go l.startCleanup()
	return l
}

// Allow takes one token from ip's bucket.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (l *Limiter) startCleanup() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupIdle()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanupIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	n := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

// ActiveClients returns the number of tracked IPs.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}

// Options tune Middleware.
type Options struct {
	ExtractIP func(*http.Request) string
	// Skip exempts a request from limiting, e.g. reads.
	Skip    func(*http.Request) bool
	OnLimit func(http.ResponseWriter, *http.Request)
}

// WritesOnly skips safe methods so page loads are never throttled.
func WritesOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (l *Limiter) Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Skip != nil && opts.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			ip := r.RemoteAddr
			if opts.ExtractIP != nil {
				ip = opts.ExtractIP(r)
			}
			if !l.Allow(ip) {
				if opts.OnLimit != nil {
					opts.OnLimit(w, r)
					return
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
