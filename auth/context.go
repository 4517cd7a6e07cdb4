// Package auth provides request context helpers for verified session claims.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

type ctxKey int

const claimsKey ctxKey = iota

// ErrUnauthorized is returned when a request carries no verified identity.
var ErrUnauthorized = errors.New("unauthorized")

// Claims contains the verified token details we care about.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	Email     string
	Name      string
}

// WithClaims stores auth claims in a context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns claims from a context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// RequireUser resolves the caller's user id or fails with ErrUnauthorized.
func RequireUser(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims == nil {
		return "", ErrUnauthorized
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", ErrUnauthorized
	}
	return sub, nil
}
