package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(t *testing.T, gotUser *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthMissingHeader(t *testing.T) {
	var user string
	h := APIKeyAuth(map[string]string{"key-1": "alice"})(authedHandler(t, &user))

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuthInvalidKey(t *testing.T) {
	var user string
	h := APIKeyAuth(map[string]string{"key-1": "alice"})(authedHandler(t, &user))

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuthBearerAndBareFormats(t *testing.T) {
	for _, header := range []string{"Bearer key-1", "key-1"} {
		var user string
		h := APIKeyAuth(map[string]string{"key-1": "alice"})(authedHandler(t, &user))

		req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%q: expected 200, got %d", header, w.Code)
		}
		if user != "alice" {
			t.Errorf("%q: expected user alice in context, got %q", header, user)
		}
	}
}

func TestGetUserFromContextEmptyWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserFromContext(req.Context()); got != "" {
		t.Errorf("expected empty user, got %q", got)
	}
}
