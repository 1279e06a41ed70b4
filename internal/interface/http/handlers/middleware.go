package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALLER IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Header names.
const (
	HeaderUserID = "X-User-ID"
	HeaderAPIKey = "X-API-Key"
)

// Caller is the identity attached to a request.
type Caller struct {
	UserID string
	Admin  bool
}

type callerKey struct{}

// WithCaller stores the caller in the context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored in the context.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Authorize allows admins everything and learners only their own data.
func Authorize(ctx context.Context, ownerID string) error {
	c, ok := CallerFrom(ctx)
	if !ok || (c.UserID == "" && !c.Admin) {
		return shared.ErrMissingCallerIdent
	}
	if c.Admin || c.UserID == ownerID {
		return nil
	}
	return shared.ErrAccessDenied
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN KEY AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// AdminKeyAuth verifies admin API keys against bcrypt hashes.
type AdminKeyAuth struct {
	headerName string
	mu         sync.RWMutex
	hashes     [][]byte
}

// NewAdminKeyAuth creates an authenticator. Malformed hashes are skipped.
func NewAdminKeyAuth(headerName string, hashes []string) *AdminKeyAuth {
	if headerName == "" {
		headerName = HeaderAPIKey
	}
	a := &AdminKeyAuth{headerName: headerName}
	for _, h := range hashes {
		_ = a.AddHash(h)
	}
	return a
}

// AddHash registers a bcrypt hash of an admin key.
func (a *AdminKeyAuth) AddHash(hash string) error {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("invalid admin key hash: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hashes = append(a.hashes, []byte(hash))
	return nil
}

// IsValid checks a plaintext key against every registered hash.
func (a *AdminKeyAuth) IsValid(key string) bool {
	if key == "" {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return true
		}
	}
	return false
}

// Middleware resolves the caller from the request headers.
// A present but wrong API key and a request without any identity get 401.
func (a *AdminKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := Caller{UserID: strings.TrimSpace(r.Header.Get(HeaderUserID))}

		if key := r.Header.Get(a.headerName); key != "" {
			if !a.IsValid(key) {
				writeUnauthorized(w, "invalid_api_key", "Invalid API key")
				return
			}
			caller.Admin = true
		}

		if caller.UserID == "" && !caller.Admin {
			writeUnauthorized(w, "missing_identity", "Caller identity is required")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"success":false,"error":{"code":%q,"message":%q}}`, code, message)
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds security-related headers for a JSON API.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				fmt.Fprint(w, `{"success":false,"error":{"code":"payload_too_large","message":"Request body too large"}}`)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
