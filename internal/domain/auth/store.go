package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"openpay/internal/platform/querier"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID       string
	Email    string
	Role     string
	Password string
	Active   bool
}

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	UpsertUser(ctx context.Context, email, passwordHash, role string) (string, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	var out User
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, email, role, password_hash, active
    FROM users
    WHERE lower(email) = lower($1) AND active
  `, email).Scan(&out.ID, &out.Email, &out.Role, &out.Password, &out.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

// UpsertUser creates the user or resets the password and role of an existing one.
func (s *Store) UpsertUser(ctx context.Context, email, passwordHash, role string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role, active)
    VALUES ($1, $2, $3, true)
    ON CONFLICT (email) DO UPDATE
    SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, active = true
    RETURNING id::text
  `, email, passwordHash, role).Scan(&id)
	return id, err
}
