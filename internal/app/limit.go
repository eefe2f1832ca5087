package app

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limitMessage = "Too many requests. Please try again in a few minutes."

// ClientLimiter allows each client address a number of requests per
// window.
type ClientLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimit
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter returns nil when n is not positive.
func NewClientLimiter(n int, window time.Duration) *ClientLimiter {
	if n <= 0 || window <= 0 {
		return nil
	}
	return &ClientLimiter{
		limit:   rate.Every(window / time.Duration(n)),
		burst:   n,
		window:  window,
		clients: make(map[string]*clientLimit),
	}
}

// Allow reports whether client may make one more request now.
func (l *ClientLimiter) Allow(client string) bool {
	return l.AllowAt(client, time.Now())
}

func (l *ClientLimiter) AllowAt(client string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, k)
		}
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimit{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *App) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow(clientAddress(r)) {
			writeError(w, limitMessage, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
