package model

import "time"

// User represents a user in the database.
type User struct {
	ID             int64  `db:"id"`
	Email          string `db:"email"`
	HashedPassword string `db:"hashed_password"`
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginRequest carries form credentials; the email is sent as "username".
type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Identity is the result of authenticating a bearer token.
type Identity struct {
	User      User
	TokenID   string
	ExpiresAt time.Time
}

// ToResponse strips the password digest.
func (u User) ToResponse() UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email}
}
