// Package tokens issues and verifies the signed bearer tokens that carry a
// user's identity between requests.
//
// Tokens are HS256 JWTs whose subject is the user id. There is no server-side
// session table: a token stays usable until it expires, and the subject is
// only checked against the credential store when the token is verified.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/credentials"
)

var (
	ErrMissingSigningKey = errors.New("tokens: missing signing key")
	ErrInvalidTTL        = errors.New("tokens: ttl must be positive")
	ErrEmptySubject      = errors.New("tokens: empty subject")
	ErrMissingResolver   = errors.New("tokens: missing subject resolver")
)

// Claims are the registered claims carried by every token: sub, iat, exp, jti.
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver turns a token subject back into a stored identity. It must return
// common.ErrNotFound when the id is unknown.
type Resolver interface {
	FindByID(ctx context.Context, id string) (*credentials.Identity, error)
}

type Service struct {
	secret []byte
	ttl    time.Duration
	users  Resolver
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service signing with secret. Tokens issued by
// Issue live for ttl.
func NewService(secret []byte, ttl time.Duration, users Resolver, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if users == nil {
		return nil, ErrMissingResolver
	}

	s := &Service{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the lifetime of tokens created by Issue.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subjectID with the configured ttl.
func (s *Service) Issue(subjectID string) (string, error) {
	return s.IssueWithTTL(subjectID, s.ttl)
}

// IssueWithTTL signs a token for subjectID that expires ttl after issuance.
// The subject is not looked up.
func (s *Service) IssueWithTTL(subjectID string, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", ErrEmptySubject
	}

	// Truncate so that exp is exactly iat+ttl at the claim precision.
	issuedAt := s.now().Truncate(jwt.TimePrecision)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Parse checks signature, structure and expiry and returns the claims.
// It fails with common.ErrMalformedOrTamperedToken or common.ErrExpiredToken.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		// Reject non-canonical base64url so every character of a segment is
		// covered by the signature.
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		// The signature is verified before the claims, so an expired token
		// here is known to be authentic.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedOrTamperedToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrMalformedOrTamperedToken)
	}
	return claims, nil
}

// Verify authenticates a presented token and resolves its subject.
//
// Failures are classified as common.ErrMalformedOrTamperedToken,
// common.ErrExpiredToken or common.ErrUnknownSubject. Any other error comes
// from the resolver and is not an authentication failure.
func (s *Service) Verify(ctx context.Context, tokenString string) (*credentials.Identity, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	identity, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnknownSubject
		}
		return nil, fmt.Errorf("resolve subject: %w", err)
	}
	return identity, nil
}
