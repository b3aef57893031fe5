package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	errs "chaters/tools/errs"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser inserts a new user; email uniqueness is enforced by the
// caller's pre-check plus the unique index.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, nickname string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, nickname)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, nickname, created_at`,
		email, passwordHash, nickname,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, nickname, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user by email")
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, userID int64) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, nickname, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user by id")
	}
	return u, nil
}

// Nickname resolves just the display name; the gateway caches the
// result per connection.
func (s *Store) Nickname(ctx context.Context, userID int64) (string, error) {
	var nickname string
	err := s.pool.QueryRow(ctx,
		`SELECT nickname FROM users WHERE id = $1`, userID,
	).Scan(&nickname)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.ErrUserNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "select nickname")
	}
	return nickname, nil
}

func (s *Store) UpdateNickname(ctx context.Context, userID int64, nickname string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET nickname = $1 WHERE id = $2`, nickname, userID)
	return errors.Wrap(err, "update nickname")
}
