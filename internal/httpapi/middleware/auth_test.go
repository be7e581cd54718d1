package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := OwnerFrom(r.Context())
		_, _ = w.Write([]byte(owner))
	})
}

func TestAuthenticate_MapsKeysToOwners(t *testing.T) {
	keys := Keys{
		Owners: map[string]domain.OwnerID{"key_a": "alice", "key_b": "bob"},
		Admin:  []string{"adm_key"},
	}
	h := Authenticate(keys)(ownerEcho())

	cases := []struct {
		name   string
		header string
		value  string
		code   int
		owner  string
	}{
		{"x-api-key", "X-API-Key", "key_a", http.StatusOK, "alice"},
		{"bearer", "Authorization", "Bearer key_b", http.StatusOK, "bob"},
		{"admin", "X-API-Key", "adm_key", http.StatusOK, string(AdminOwner)},
		{"unknown", "X-API-Key", "nope", http.StatusUnauthorized, ""},
		{"missing", "", "", http.StatusUnauthorized, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/monitors", nil)
			if c.header != "" {
				req.Header.Set(c.header, c.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != c.code {
				t.Fatalf("want %d got %d", c.code, rec.Code)
			}
			if c.code == http.StatusOK && rec.Body.String() != c.owner {
				t.Fatalf("want owner %q got %q", c.owner, rec.Body.String())
			}
		})
	}
}

func TestAuthenticate_NoKeysIsLocalOwner(t *testing.T) {
	rec := httptest.NewRecorder()
	Authenticate(Keys{})(ownerEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != string(LocalOwner) {
		t.Fatalf("want local owner, got %d %q", rec.Code, rec.Body.String())
	}
}
