package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const leeway = 30 * time.Second

var signingMethods = []string{
	jwt.SigningMethodRS256.Name,
	jwt.SigningMethodRS384.Name,
	jwt.SigningMethodRS512.Name,
}

// ErrVerifierNotConfigured is returned when issuer or audience is missing.
var ErrVerifierNotConfigured = errors.New("auth issuer and audience must be set")

// accessClaims is the shape of the identity provider's access tokens.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verifier checks RS-signed access tokens against the issuer's JWKS.
type Verifier struct {
	keys   keyfunc.Keyfunc
	parser *jwt.Parser
}

// NewVerifier builds a verifier for issuer and audience. jwksURL defaults to
// the issuer's well-known key set.
func NewVerifier(issuer, audience, jwksURL string) (*Verifier, error) {
	issuer = normalizeIssuer(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" || audience == "" {
		return nil, ErrVerifierNotConfigured
	}
	if jwksURL == "" {
		jwksURL = issuer + ".well-known/jwks.json"
	}

	keys, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}

	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithLeeway(leeway),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods(signingMethods),
		),
	}, nil
}

// Verify parses tokenString and returns the session claims it carries.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	var ac accessClaims
	if _, err := v.parser.ParseWithClaims(tokenString, &ac, v.keys.Keyfunc); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(ac.Subject)
	if subject == "" {
		return nil, errors.New("token missing sub")
	}

	claims := &Claims{
		Subject:  subject,
		Issuer:   ac.Issuer,
		Audience: ac.Audience,
		Email:    strings.TrimSpace(ac.Email),
		Name:     strings.TrimSpace(ac.Name),
	}
	if ac.ExpiresAt != nil {
		claims.ExpiresAt = ac.ExpiresAt.Time
	}
	return claims, nil
}

func normalizeIssuer(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" || strings.HasSuffix(issuer, "/") {
		return issuer
	}
	return issuer + "/"
}

// AuthDisabled reports whether AUTH_DISABLED=true applies. It is ignored on
// Lambda unless ENV=local.
func AuthDisabled() bool {
	if !strings.EqualFold(os.Getenv("AUTH_DISABLED"), "true") {
		return false
	}
	return strings.EqualFold(os.Getenv("ENV"), "local") || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == ""
}
