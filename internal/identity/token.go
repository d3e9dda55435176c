package identity

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSecret is returned when tokens are issued or verified without a key.
var ErrNoSecret = errors.New("operator token secret not configured")

// OperatorClaims are the JWT claims of an operator token. Tenants lists the
// tenant ids the bearer may manage; Role "admin" manages all of them.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Tenants []string `json:"tenants,omitempty"`
	Role    string   `json:"role,omitempty"`
}

// OperatorTokenIssuer issues and verifies operator tokens signed with a
// shared HMAC secret.
type OperatorTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewOperatorTokenIssuer creates an OperatorTokenIssuer.
//
//	secret: HMAC-SHA256 key shared by the service and the CLI.
//	issuer: the "iss" claim value; empty skips the issuer check.
//	ttl   : token lifetime (default: 24 hours).
func NewOperatorTokenIssuer(secret []byte, issuer string, ttl time.Duration) *OperatorTokenIssuer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &OperatorTokenIssuer{secret: secret, issuer: issuer, ttl: ttl}
}

// Configured reports whether a signing secret is set.
func (o *OperatorTokenIssuer) Configured() bool {
	return len(o.secret) > 0
}

// Issue creates a signed operator token for subject.
func (o *OperatorTokenIssuer) Issue(subject string, tenants []string, role string) (string, error) {
	if !o.Configured() {
		return "", ErrNoSecret
	}
	now := time.Now().UTC()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    o.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
			ID:        uuid.New().String(),
		},
		Tenants: tenants,
		Role:    role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(o.secret)
	if err != nil {
		return "", fmt.Errorf("sign operator token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an operator token, returning its claims.
func (o *OperatorTokenIssuer) Verify(tokenStr string) (*OperatorClaims, error) {
	if !o.Configured() {
		return nil, ErrNoSecret
	}
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if o.issuer != "" {
		opts = append(opts, jwt.WithIssuer(o.issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&OperatorClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return o.secret, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("verify operator token: %w", err)
	}
	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid operator token claims")
	}
	return claims, nil
}

// CanManage reports whether claims authorize operations on tenantID.
func CanManage(claims *OperatorClaims, tenantID string) bool {
	if claims == nil {
		return false
	}
	return claims.Role == RoleAdmin || slices.Contains(claims.Tenants, tenantID)
}
