package data

import (
	"context"
	"encoding/json"
	"time"

	"esim-service/internal/biz"
	"esim-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

// catalogCache caches per-country bundle catalogs in Redis as JSON with a TTL.
type catalogCache struct {
	data *Data
	log  *log.Helper
}

// NewCatalogCache creates the catalog cache (returns the biz.CatalogCache interface)
func NewCatalogCache(data *Data, logger log.Logger) biz.CatalogCache {
	return &catalogCache{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetBundles returns the cached catalog for a country. A miss is (nil, nil).
func (c *catalogCache) GetBundles(ctx context.Context, countryCode string) ([]*biz.Bundle, error) {
	raw, err := c.data.rdb.Get(ctx, constants.RedisKeyCatalog+countryCode).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var bundles []*biz.Bundle
	if err := json.Unmarshal([]byte(raw), &bundles); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		c.log.Warnf("catalog cache entry corrupt: country=%s, error=%v", countryCode, err)
		return nil, nil
	}
	return bundles, nil
}

// SetBundles stores the catalog for a country with the given TTL
func (c *catalogCache) SetBundles(ctx context.Context, countryCode string, bundles []*biz.Bundle, ttl time.Duration) error {
	raw, err := json.Marshal(bundles)
	if err != nil {
		return err
	}
	return c.data.rdb.Set(ctx, constants.RedisKeyCatalog+countryCode, raw, ttl).Err()
}
