package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: presence:<user>
// value: gateway id; the TTL bounds staleness when a gateway dies
// without cleaning up. The in-memory registries stay authoritative on
// the gateway itself; this mirror only answers "is anyone connected
// anywhere" for the notify worker.
const presenceTTL = 5 * time.Minute

func presenceKey(userID int64) string {
	return "presence:" + strconv.FormatInt(userID, 10)
}

// Presence mirrors connection liveness into redis.
type Presence struct {
	rdb *redis.Client
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb}
}

// Online marks the user online on the given gateway and renews the TTL.
func (p *Presence) Online(ctx context.Context, userID int64, gatewayID string) error {
	return p.rdb.Set(ctx, presenceKey(userID), gatewayID, presenceTTL).Err()
}

// Offline removes the user's presence entry.
func (p *Presence) Offline(ctx context.Context, userID int64) error {
	return p.rdb.Del(ctx, presenceKey(userID)).Err()
}

// Lookup returns the gateway the user is connected to, if any.
func (p *Presence) Lookup(ctx context.Context, userID int64) (gatewayID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
