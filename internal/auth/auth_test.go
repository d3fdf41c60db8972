package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-unit-tests-only"

func TestSignAndVerify(t *testing.T) {
	sess, err := Sign(testSecret, "frontdesk-1", []string{"frontdesk"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sess.Subject != "frontdesk-1" || sess.IsZero() {
		t.Fatalf("unexpected session %+v", sess)
	}

	claims, err := NewVerifier(testSecret).Verify(sess.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "frontdesk-1" || len(claims.Roles) != 1 || claims.Roles[0] != "frontdesk" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestVerify_Rejects(t *testing.T) {
	good, _ := Sign(testSecret, "a", nil, time.Hour)
	expired, _ := Sign(testSecret, "a", nil, -time.Minute)
	otherKey, _ := Sign("another-secret", "a", nil, time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired.Token},
		{"wrong key", otherKey.Token},
		{"alg none", noneToken},
		{"garbage", "not-a-jwt"},
		{"truncated", good.Token[:len(good.Token)-4]},
	}

	v := NewVerifier(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	sess, _ := Sign(testSecret, "doc", nil, time.Hour)

	var seen string
	h := Middleware(NewVerifier(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFrom(r.Context())
		if !ok {
			t.Error("claims missing from context")
		} else {
			seen = c.Subject
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", sess.Authorization(), http.StatusNoContent},
		{"lowercase scheme", "bearer " + sess.Token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	if seen != "doc" {
		t.Errorf("expected subject doc, got %q", seen)
	}
}

func TestSession_Zero(t *testing.T) {
	var s Session
	if !s.IsZero() || s.Authorization() != "" {
		t.Fatalf("zero session should send no header, got %q", s.Authorization())
	}
}
