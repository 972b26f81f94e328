package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoTenant is returned for tokens without a subject.
var ErrNoTenant = errors.New("auth: token has no tenant")

// Claims is the JWT payload. The subject is the tenant (user) id that scopes
// every keyword and summary request.
type Claims struct {
	TenantID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssueJWT signs a token for a tenant.
func IssueJWT(secret, tenantID string, ttl time.Duration) (string, error) {
	if tenantID == "" {
		return "", ErrNoTenant
	}
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   tenantID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyJWT validates a JWT and returns the claims.
func VerifyJWT(secret, tokenStr string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("auth: jwt verify: %w", err)
	}
	if claims.TenantID == "" {
		claims.TenantID = claims.Subject
	}
	if claims.TenantID == "" {
		return nil, ErrNoTenant
	}
	return &claims, nil
}

// TokenEqual compares a presented static token with the configured one in
// constant time. An empty configured token never matches.
func TokenEqual(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
