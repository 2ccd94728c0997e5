package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// limit guards a route with the named rate-limit policy. Every response
// carries X-RateLimit-* headers; a denied request gets 429 with a
// Retry-After hint and consumes no quota.
func (h *Handler) limit(policy string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			d, err := h.limiter.Check(r.Context(), policy, clientIdentifier(r))
			if err != nil {
				h.logger.Error("rate limit check failed", "policy", policy, "error", err)
				h.writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				h.engine.NotifyRateLimited(r.Context(), policy, clientIdentifier(r))
				seconds := int64(d.RetryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
				h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIdentifier picks the bucket key for a request: the account user
// id when the route carries one, else the caller-declared user header,
// else the remote address.
func clientIdentifier(r *http.Request) string {
	if uid := chi.URLParam(r, "userID"); uid != "" {
		return uid
	}
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		return uid
	}
	return r.RemoteAddr
}
