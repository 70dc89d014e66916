package admin

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("admin: missing bearer token")
	ErrInvalidToken = errors.New("admin: invalid token")
	ErrForbidden    = errors.New("admin: required role missing")
)

// Claims are the bearer token claims read by the admin endpoints.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether role, or its ROLE_ prefixed form, is in the claims.
func (c *Claims) HasRole(role string) bool {
	return slices.ContainsFunc(c.Roles, func(r string) bool {
		return r == role || r == "ROLE_"+role
	})
}

// TokenValidator checks HS256 tokens signed with a shared secret.
type TokenValidator struct {
	secret []byte
	now    func() time.Time
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

// Validate parses token and returns its claims. Expiry is enforced when the
// token carries one.
func (v *TokenValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: expected a bearer authorization header", ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}

// RequireRole rejects requests without a valid token carrying role. Missing
// or invalid tokens get 401, a valid token without the role gets 403.
func RequireRole(v *TokenValidator, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			var claims *Claims
			claims, err = v.Validate(token)
			if err == nil && !claims.HasRole(role) {
				writeJSON(w, http.StatusForbidden, Response{Message: ErrForbidden.Error()})
				return
			}
		}
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="catalogsync"`)
			writeJSON(w, http.StatusUnauthorized, Response{Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}
