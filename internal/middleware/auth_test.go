package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"user_id": "uid-1",
		"email":   "alice@example.com",
		"name":    "Alice",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authedHandler(t *testing.T) http.Handler {
	t.Helper()
	return Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetUserFromContext(r)
		if !ok {
			t.Error("expected claims in context")
		}
		if claims.UserID != "uid-1" {
			t.Errorf("unexpected user id %q", claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthValidToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/trip", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()

	authedHandler(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/trip", nil)
	rec := httptest.NewRecorder()

	authedHandler(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthWrongSecret(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/trip", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()

	authedHandler(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/trip", nil)
	req.Header.Set("Authorization", "token abc def")
	rec := httptest.NewRecorder()

	authedHandler(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
