package handler

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/auth"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Logger writes one access log line per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("%s %s %d %dB %s reqid=%s",
			r.Method, r.URL.RequestURI(), status, ww.BytesWritten(),
			time.Since(start).Round(time.Microsecond), chimiddleware.GetReqID(r.Context()))
	})
}

// CORS allows any origin to call the API from a browser.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticator turns a bearer token into the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// Authenticate attaches the identity of a valid bearer token to the request
// context. Requests without a token pass through anonymously; bad tokens are
// rejected with 401.
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			id, err := authn.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevokedToken) {
					writeError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				log.Printf("authenticate: %v", err)
				writeError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		if id.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Rate limiting ────────────────────────────────────────────────────────────

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller in memory.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*keyLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter constructs a RateLimiter refilling rps tokens per second up
// to burst. Buckets idle for longer than idleTTL are dropped.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		buckets: make(map[string]*keyLimiter),
		now:     time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) > rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &keyLimiter{limiter: lim, lastSeen: now}
	return lim
}

// Middleware answers 429 once the caller's bucket is empty. Callers are keyed
// by user id when authenticated and by client IP otherwise.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(callerKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// ─── Response cache ───────────────────────────────────────────────────────────

type cachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

func cacheKey(r *http.Request) string {
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return "cache:http:" + hex.EncodeToString(sum[:])
}

// ResponseCache serves repeated GET responses from Redis for ttl. Only 2xx
// responses are stored. X-Cache reports HIT or MISS. Redis failures degrade
// to serving uncached.
func ResponseCache(rdb *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := cacheKey(r)

			b, err := rdb.Get(r.Context(), key).Bytes()
			if err == nil {
				var hit cachedResponse
				if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
					for k, vals := range hit.Header {
						w.Header()[k] = vals
					}
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(hit.Status)
					_, _ = w.Write(hit.Body)
					return
				}
			} else if !errors.Is(err, redis.Nil) {
				log.Printf("response cache get: %v", err)
			}

			var buf bytes.Buffer
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)
			w.Header().Set("X-Cache", "MISS")

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < 200 || status >= 300 {
				return
			}
			header := w.Header().Clone()
			header.Del("X-Cache")

			var out bytes.Buffer
			if err := gob.NewEncoder(&out).Encode(cachedResponse{Status: status, Header: header, Body: buf.Bytes()}); err != nil {
				log.Printf("response cache encode: %v", err)
				return
			}
			if err := rdb.Set(r.Context(), key, out.Bytes(), ttl).Err(); err != nil {
				log.Printf("response cache set: %v", err)
			}
		})
	}
}
