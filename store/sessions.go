package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	errs "chaters/tools/errs"
)

// CreateSession stores an issued token with its expiry.
func (s *Store) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt)
	return errors.Wrap(err, "insert session")
}

// SessionUser returns the user id owning a live (non-expired) session.
func (s *Store) SessionUser(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM sessions WHERE token = $1 AND expires_at > NOW()`,
		token,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.ErrSessionNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "select session")
	}
	return userID, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return errors.Wrap(err, "delete session")
}

// DeleteExpiredSessions drops sessions past their expiry; run by the
// cleanup job.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	return tag.RowsAffected(), nil
}
