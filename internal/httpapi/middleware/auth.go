package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

// LocalOwner owns every request when no keys are configured.
const LocalOwner domain.OwnerID = "local"

// AdminOwner is the owner an admin key acts as on owner-scoped routes.
const AdminOwner domain.OwnerID = "admin"

type Keys struct {
	// Owners maps an API key to the owner it authenticates.
	Owners map[string]domain.OwnerID
	Admin  []string
}

func (k Keys) enabled() bool { return len(k.Owners) > 0 || len(k.Admin) > 0 }

type ownerKey struct{}

// WithOwner stores the authenticated owner on ctx.
func WithOwner(ctx context.Context, owner domain.OwnerID) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner set by Authenticate.
func OwnerFrom(ctx context.Context) (domain.OwnerID, bool) {
	o, ok := ctx.Value(ownerKey{}).(domain.OwnerID)
	return o, ok && o != ""
}

func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return ""
}

func hasKey(given string, set []string) bool {
	if given == "" || len(set) == 0 {
		return false
	}
	for _, k := range set {
		if k == given {
			return true
		}
	}
	return false
}

// Authenticate resolves the presented key to an owner and stores it on the
// request context. If no keys are configured, every request is LocalOwner
// (handy for local dev).
func Authenticate(keys Keys) func(http.Handler) http.Handler {
	enabled := keys.enabled()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), LocalOwner)))
				return
			}
			key := readAuth(r)
			owner, ok := keys.Owners[key]
			if !ok && hasKey(key, keys.Admin) {
				owner, ok = AdminOwner, true
			}
			if !ok || key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// RequireAdmin only permits requests that present an admin key.
// If no admin keys are configured, it allows all requests (dev).
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := readAuth(r)
			if hasKey(key, keys.Admin) {
				next.ServeHTTP(w, r)
				return
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
