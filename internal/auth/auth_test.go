package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestMintAndVerify(t *testing.T) {
	v := NewVerifier(secret, "gigledger", time.Hour)
	token, err := v.Mint("u1", "a@b.c")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != (Identity{UserID: "u1", Email: "a@b.c"}) {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(secret, "gigledger", time.Hour)

	other, _ := NewVerifier("ffffffffffffffffffffffffffffffff", "gigledger", time.Hour).Mint("u1", "")
	wrongIssuer, _ := NewVerifier(secret, "someone-else", time.Hour).Mint("u1", "")

	expiredV := NewVerifier(secret, "gigledger", time.Hour)
	expiredV.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredV.Mint("u1", "")

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "gigledger"},
	}).SignedString([]byte(secret))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "gigledger"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": other,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no subject":   noSubject,
		"alg none":     none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIssuerOptional(t *testing.T) {
	token, _ := NewVerifier(secret, "anything", time.Hour).Mint("u1", "")
	if _, err := NewVerifier(secret, "", time.Hour).Verify(token); err != nil {
		t.Fatalf("Verify without issuer check: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(secret, "", time.Hour)
	token, _ := v.Mint("u1", "a@b.c")

	var got Identity
	var ok bool
	h := Middleware(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		wantOK bool
	}{
		{"anonymous", func(r *http.Request) {}, false},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, true},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, true},
		{"bad token passes anonymous", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, false},
		{"basic scheme ignored", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok = Identity{}, false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if ok != tt.wantOK {
				t.Fatalf("authenticated = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.UserID != "u1" {
				t.Fatalf("identity = %+v", got)
			}
		})
	}
}

func TestSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, httptest.NewRequest(http.MethodPost, "/session", nil), "tok", time.Hour)
	c := rec.Result().Cookies()[0]
	if c.Name != CookieName || c.Value != "tok" || !c.HttpOnly || c.MaxAge != 3600 {
		t.Fatalf("cookie = %+v", c)
	}

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec)
	if c := rec.Result().Cookies()[0]; c.MaxAge >= 0 {
		t.Fatalf("cleared cookie MaxAge = %d", c.MaxAge)
	}
}
