package jurisdiction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/interfaces"
	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ratesKeyPrefix  = "jurisdiction:rates:"
	defaultCacheTTL = 24 * time.Hour
)

// CachedLookup is a read-through Redis cache over a rate lookup. Jurisdiction
// rates change on effective-date boundaries, so a day of staleness is
// acceptable. Cache failures degrade to the inner lookup, never to an error.
type CachedLookup struct {
	inner  interfaces.JurisdictionLookup
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup wraps a lookup with a Redis cache. ttl of zero uses the
// default of 24 hours.
func NewCachedLookup(inner interfaces.JurisdictionLookup, client *redis.Client, ttl time.Duration) *CachedLookup {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &CachedLookup{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.Log,
	}
}

// LookupRates serves from cache when possible. Negative results (unmapped
// ZIPs) are not cached; a provider data update should take effect
// immediately.
func (c *CachedLookup) LookupRates(ctx context.Context, zip, stateCode string) (*business.JurisdictionRates, error) {
	key := ratesKey(zip, stateCode)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rates business.JurisdictionRates
		if unmarshalErr := json.Unmarshal(data, &rates); unmarshalErr == nil {
			return &rates, nil
		}
		// Corrupt entry; fall through and refresh it.
		c.logger.Warn("Discarding corrupt cached jurisdiction rates", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Jurisdiction cache read failed",
			zap.String("key", key),
			zap.Error(err))
	}

	rates, err := c.inner.LookupRates(ctx, zip, stateCode)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(rates)
	if err == nil {
		if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("Jurisdiction cache write failed",
				zap.String("key", key),
				zap.Error(setErr))
		}
	}

	return rates, nil
}

func ratesKey(zip, stateCode string) string {
	return fmt.Sprintf("%s%s:%s", ratesKeyPrefix, stateCode, zip)
}
