package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const identityKeyPrefix = "identity:app:"

// CachedIdentities is a read-through Redis cache in front of another
// IdentitiesRepository. Only resolved identities are cached; Redis failures
// fall back to the store.
type CachedIdentities struct {
	next IdentitiesRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedIdentities(next IdentitiesRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedIdentities {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedIdentities{next: next, rdb: rdb, ttl: ttl, log: log}
}

var _ IdentitiesRepository = (*CachedIdentities)(nil)

func (c *CachedIdentities) IdentityByApplication(ctx context.Context, applicationID string) (*model.PartyIdentity, error) {
	if c.ttl <= 0 || c.rdb == nil {
		return c.next.IdentityByApplication(ctx, applicationID)
	}
	key := identityKeyPrefix + applicationID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p model.PartyIdentity
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return &p, nil
		}
		c.log.Warn("discard corrupt identity cache entry", zap.String("key", key))
	case err != redis.Nil:
		c.log.Warn("identity cache read failed", zap.Error(err))
	}

	p, err := c.next.IdentityByApplication(ctx, applicationID)
	if err != nil || p == nil {
		return p, err
	}

	if b, jerr := json.Marshal(p); jerr == nil {
		if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Warn("identity cache write failed", zap.Error(serr))
		}
	}
	return p, nil
}
