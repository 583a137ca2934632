package cache

import (
	"context"
	"time"

	"taskmaker/backend/internal/auth"

	"github.com/sirupsen/logrus"
)

const revokedKeyPrefix = "revoked_token:"

// TokenDenylist records revoked token IDs in process memory and, when
// configured, in redis so every instance sees the revocation.
type TokenDenylist struct {
	local *auth.MemoryDenylist
	redis *RedisCache
	log   logrus.FieldLogger
}

var _ auth.Denylist = (*TokenDenylist)(nil)

func NewTokenDenylist(redisCache *RedisCache, log logrus.FieldLogger) *TokenDenylist {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &TokenDenylist{
		local: auth.NewMemoryDenylist(),
		redis: redisCache,
		log:   log,
	}
}

func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if err := d.local.Revoke(ctx, tokenID, until); err != nil {
		return err
	}
	if d.redis == nil {
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, revokedKeyPrefix+tokenID, true, ttl); err != nil {
		d.log.WithError(err).WithField("jti", tokenID).Warn("failed to publish token revocation")
	}
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := d.local.IsRevoked(ctx, tokenID)
	if err != nil || revoked || d.redis == nil {
		return revoked, err
	}
	found, err := d.redis.Exists(ctx, revokedKeyPrefix+tokenID)
	if err != nil {
		d.log.WithError(err).WithField("jti", tokenID).Warn("failed to check token revocation")
		return false, nil
	}
	return found, nil
}
