package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/studyai/studyai-go/internal/crypto"
	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/repository"
	"github.com/studyai/studyai-go/internal/validator"
)

const tokenTypeBearer = "bearer"

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthorized       = errors.New("could not validate credentials")
)

// AuthService handles registration, login and bearer token resolution.
type AuthService struct {
	users    UserStore
	denylist TokenDenylist
	hasher   *crypto.Hasher
	tokens   *crypto.TokenService
	tokenTTL time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, denylist TokenDenylist, hasher *crypto.Hasher, tokens *crypto.TokenService, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		denylist: denylist,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
	}
}

// Register creates a new user account. The existence check gives a fast
// answer; concurrent registrations are settled by the store's unique index.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validator.Struct(req); err != nil {
		return model.UserResponse{}, &ValidationError{Err: err}
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return model.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.UserResponse{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, err
	}

	user := &model.User{
		Email:          req.Email,
		HashedPassword: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user.ToResponse(), nil
}

// Login checks credentials and issues an access token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	if err := validator.Struct(req); err != nil {
		return model.TokenResponse{}, &ValidationError{Err: err}
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, fmt.Errorf("lookup user: %w", err)
	}

	match, err := s.hasher.Verify(user.HashedPassword, req.Password)
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.Email, s.tokenTTL)
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("issue token: %w", err)
	}

	return model.TokenResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
	}, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
// A bad or expired token, a revoked token and a user that no longer exists
// all return ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return model.Identity{}, ErrUnauthorized
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return model.Identity{}, ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Identity{}, ErrUnauthorized
		}
		return model.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	return model.Identity{
		User:      *user,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token behind id for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, id model.Identity) error {
	if err := s.denylist.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	slog.InfoContext(ctx, "token revoked", "user_id", id.User.ID)
	return nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUnauthorized
		}
		return model.UserResponse{}, err
	}
	return user.ToResponse(), nil
}
