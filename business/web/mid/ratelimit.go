package mid

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/servicechain/business/web/errs"
	"github.com/ardanlabs/servicechain/foundation/web"
	"golang.org/x/time/rate"
)

// staleLimiter is how long a client limiter is kept without requests.
const staleLimiter = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit enforces a token bucket per client address. rps is the steady
// state requests per second and burst the maximum burst size. A rps of zero
// disables the limit.
func RateLimit(rps float64, burst int) web.Middleware {
	if rps <= 0 {
		return nil
	}

	var mu sync.Mutex
	limiters := make(map[string]*clientLimiter)
	lastSweep := time.Now()

	limiter := func(client string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastSweep) > staleLimiter {
			for c, l := range limiters {
				if now.Sub(l.lastSeen) > staleLimiter {
					delete(limiters, c)
				}
			}
			lastSweep = now
		}

		l, exists := limiters[client]
		if !exists {
			l = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[client] = l
		}
		l.lastSeen = now

		return l.limiter
	}

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			client, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				client = r.RemoteAddr
			}

			if !limiter(client).Allow() {
				w.Header().Set("Retry-After", "1")
				return errs.NewTrusted(errors.New("rate limit exceeded"), http.StatusTooManyRequests)
			}

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
