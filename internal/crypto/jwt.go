package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "studyai"
	tokenAudience = "studyai-api"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// malformed input, wrong issuer or audience, and expiry all look the same.
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidTTL   = errors.New("token ttl must be positive")
)

// Claims represents the JWT claims for StudyAI access tokens.
// The subject is the user's email; ID is a unique token id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue creates a signed token for subject that expires after ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, ErrInvalidTTL
	}

	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify parses and validates a token string, returning its claims if valid.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
