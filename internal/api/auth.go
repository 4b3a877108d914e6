package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"syncq/internal/config"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	clientKeyUnknown    = "unknown"
)

// HTTPAuth checks the API key header and applies a per-client rate
// limit. With auth disabled, rate limiting falls back to the remote
// address as the client key.
type HTTPAuth struct {
	cfg config.APIConfig

	clientsByAPIKey map[string]config.APIClientKey
	limiter         *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	return &HTTPAuth{
		cfg:             cfg,
		clientsByAPIKey: m,
		limiter:         newRateLimiter(cfg.RateLimit),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))

		if a.cfg.Auth.Enabled {
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			if !a.validKey(apiKey) {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}

		if a.cfg.RateLimit.RPS > 0 {
			key := apiKey
			if key == "" {
				key = remoteHost(r)
			}
			if !a.limiter.getLimiter(key).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) headerName() string {
	h := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if h == "" {
		h = apiKeyHeaderDefault
	}
	return h
}

func (a *HTTPAuth) validKey(apiKey string) bool {
	client, ok := a.clientsByAPIKey[apiKey]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(client.Key), []byte(apiKey)) == 1
}

func remoteHost(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		addr = addr[:i]
	}
	if addr == "" {
		return clientKeyUnknown
	}
	return addr
}

type rateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{cfg: cfg}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
