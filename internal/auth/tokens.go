// Package auth issues and validates the HS256 bearer tokens that back both
// session roles.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// Claims is what a parsed token carries.
type Claims struct {
	Principal domain.Principal
	Role      domain.Role
}

// Issuer signs and parses role-scoped access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer with the shared HS256 secret.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for a principal acting under a role.
func (i *Issuer) Issue(principal domain.Principal, role domain.Role) (string, time.Time, error) {
	if err := principal.Validate(); err != nil {
		return "", time.Time{}, err
	}
	exp := time.Now().UTC().Add(i.ttl)
	claims := jwt.MapClaims{
		"sub":   principal.ID,
		"name":  principal.Name,
		"email": principal.Email,
		"role":  string(role),
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates a raw token and extracts its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	out := &Claims{
		Principal: domain.Principal{
			ID:    asString(claims["sub"]),
			Name:  asString(claims["name"]),
			Email: asString(claims["email"]),
		},
		Role: domain.Role(asString(claims["role"])),
	}
	if !domain.ValidRole(out.Role) {
		return nil, domain.ErrUnauthorized
	}
	if err := out.Principal.Validate(); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return out, nil
}

// NewChallengeToken returns an opaque token identifying an in-flight sign-in
// challenge.
func NewChallengeToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
