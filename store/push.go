package store

import (
	"context"

	"github.com/pkg/errors"
)

// PushSubscription is one browser push endpoint for a user.
type PushSubscription struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Endpoint  string `json:"endpoint"`
	P256dh    string `json:"p256dh"`
	Auth      string `json:"auth"`
	UserAgent string `json:"user_agent"`
}

// SavePushSubscription replaces any subscription with the same endpoint
// (a browser re-subscribing gets a fresh row).
func (s *Store) SavePushSubscription(ctx context.Context, sub *PushSubscription) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, sub.Endpoint,
	); err != nil {
		return errors.Wrap(err, "delete stale subscription")
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, user_agent)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent,
	); err != nil {
		return errors.Wrap(err, "insert subscription")
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

// DeletePushSubscription removes the user's subscription for the
// endpoint; unsubscribing an unknown endpoint is a no-op.
func (s *Store) DeletePushSubscription(ctx context.Context, userID int64, endpoint string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1 AND user_id = $2`,
		endpoint, userID)
	return errors.Wrap(err, "delete subscription")
}

// DeletePushEndpoint removes a dead endpoint regardless of owner; used
// when the push service reports 404/410.
func (s *Store) DeletePushEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return errors.Wrap(err, "delete endpoint")
}

func (s *Store) PushSubscriptionsForUser(ctx context.Context, userID int64) ([]PushSubscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, COALESCE(user_agent, '')
		FROM push_subscriptions WHERE user_id = $1`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "select subscriptions")
	}
	defer rows.Close()

	var out []PushSubscription
	for rows.Next() {
		var sub PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.UserAgent); err != nil {
			return nil, errors.Wrap(err, "scan subscription")
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
