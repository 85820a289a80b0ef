package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/xtrobe/internal/shared"
)

// DefaultTokenTTL is used when no lifetime is configured.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the JWT claims issued by [TokenProvider]. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies HS256 bearer tokens.
type TokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenProvider creates a [TokenProvider]. The secret must not be empty.
func NewTokenProvider(secret, issuer string, ttl time.Duration) (*TokenProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: auth.jwt_secret is required", shared.ErrInvalidConfig)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenProvider{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID. A non-positive ttl uses the provider default.
func (p *TokenProvider) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	if ttl <= 0 {
		ttl = p.ttl
	}

	now := p.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        shared.GenerateID(),
	}}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of a token and returns its subject.
func (p *TokenProvider) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", shared.ErrTokenExpired
	case err != nil:
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	case claims.Subject == "":
		return "", fmt.Errorf("%w: missing subject", shared.ErrInvalidToken)
	}
	return claims.Subject, nil
}

// CurrentUser implements [Provider] for requests that passed bearer verification.
func (p *TokenProvider) CurrentUser(ctx context.Context) (string, error) {
	if id, ok := UserFromContext(ctx); ok {
		return id, nil
	}
	return "", shared.ErrNotAuthenticated
}
