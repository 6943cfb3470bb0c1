// Package auth verifies the identity provider's tokens and carries the
// resulting identity through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gigledger/internal/log"
)

// CookieName is the cookie holding the session token.
const CookieName = "session"

var ErrInvalidToken = errors.New("invalid token")

// Claims are the token claims the ledger reads. The user id is the subject.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity is the authenticated user behind a request.
type Identity struct {
	UserID string
	Email  string
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewVerifier builds a verifier. An empty issuer skips the issuer check; ttl
// is the lifetime of minted tokens and session cookies.
func NewVerifier(secret, issuer string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (v *Verifier) TTL() time.Duration { return v.ttl }

// Verify parses the token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Mint signs a token for uid. It backs development sign-in.
func (v *Verifier) Mint(uid, email string) (string, error) {
	if strings.TrimSpace(uid) == "" {
		return "", errors.New("user id is required")
	}
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type ctxKey struct{}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// Middleware attaches the identity of a valid token to the request. Requests
// without one pass through anonymous.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				if logger != nil {
					logger.DebugContext(r.Context(), "Rejected session token",
						log.FieldComponent, log.ComponentAuth, log.FieldError, err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

// ExtractToken reads a bearer token, falling back to the session cookie.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetSessionCookie stores token in the HttpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
