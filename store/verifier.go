package store

import (
	"context"

	"chaters/tools/security"
)

// SessionVerifier is the gateway's identity verifier: a token is valid
// when its signature checks out and a live session row still backs it
// (logout revokes the row before the JWT expires).
type SessionVerifier struct {
	Store *Store
	Opts  security.Options
}

func (v *SessionVerifier) Verify(ctx context.Context, token string) (int64, error) {
	userID, err := security.Verify(v.Opts, token)
	if err != nil {
		return 0, err
	}
	sessionUser, err := v.Store.SessionUser(ctx, token)
	if err != nil {
		return 0, err
	}
	if sessionUser != userID {
		return 0, security.ErrInvalidToken
	}
	return userID, nil
}
