package service

import (
	"context"
	"time"

	"github.com/studyai/studyai-go/internal/model"
)

//go:generate mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// UserStore persists user records. Implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TokenDenylist tracks revoked token ids until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
