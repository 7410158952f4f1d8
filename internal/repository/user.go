package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/studyai/studyai-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets the generated ID on the user struct.
// The unique index on email is the authoritative duplicate check.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	var err error
	if r.db.DriverName() == "mysql" {
		err = r.createWithLastInsertID(ctx, user)
	} else {
		query := r.db.Rebind(`INSERT INTO users (email, hashed_password) VALUES (?, ?) RETURNING id`)
		err = r.db.QueryRowxContext(ctx, query, user.Email, user.HashedPassword).Scan(&user.ID)
	}
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) createWithLastInsertID(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO users (email, hashed_password) VALUES (?, ?)`,
		user.Email, user.HashedPassword)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetByEmail retrieves a user by exact email match.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, email, hashed_password FROM users WHERE email = ?`, email)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, email, hashed_password FROM users WHERE id = ?`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	if err := r.db.GetContext(ctx, user, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// isDuplicateEntryError reports whether err is a unique constraint violation
// from any of the supported drivers.
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
