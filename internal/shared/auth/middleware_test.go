package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/eglise-connect/platform/internal/shared/config"
	"github.com/eglise-connect/platform/internal/shared/types"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}
}

func authedRequest(token string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestMiddlewareValidToken(t *testing.T) {
	cfg := testAuthConfig()
	user := User{ID: types.NewID(), Username: "marc", Role: "referent", City: "Lyon"}

	token, err := NewToken(cfg, user)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var got *User
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got == nil || got.Username != "marc" || got.Role != "referent" || got.City != "Lyon" {
		t.Errorf("Claims should carry into the request context, got %+v", got)
	}
}

func TestMiddlewareRejectsUnsignedToken(t *testing.T) {
	cfg := testAuthConfig()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   types.NewID().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "marc",
		Role:     "super_admin",
	}

	// A token with alg "none" must never pass, whatever its claims say.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for an unsigned token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(unsigned))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	cfg := testAuthConfig()

	other := cfg
	other.JWTSecret = "other-secret"
	token, err := NewToken(other, User{ID: types.NewID(), Username: "marc", Role: "referent"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for a token signed with another secret")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
