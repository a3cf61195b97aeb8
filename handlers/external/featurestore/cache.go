package featurestore

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/coocood/freecache"
	"github.com/rs/zerolog"
)

// CachedClient answers from an in-process cache and forwards misses. Only found records
// are cached.
type CachedClient struct {
	next    Client
	cache   *freecache.Cache
	ttlSec  int
	metrics metrics.Client
	logger  zerolog.Logger
}

func NewCachedClient(next Client, sizeBytes, ttlSec int, metricsClient metrics.Client, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		next:    next,
		cache:   freecache.NewCache(sizeBytes),
		ttlSec:  ttlSec,
		metrics: metricsClient,
		logger:  logger,
	}
}

func cacheKey(userID int64) []byte {
	return []byte("user:" + strconv.FormatInt(userID, 10))
}

func (c *CachedClient) GetRecords(ctx context.Context, userIDs []int64) (map[int64]Record, error) {
	result := make(map[int64]Record, len(userIDs))
	var misses []int64
	for _, id := range userIDs {
		if _, done := result[id]; done {
			continue
		}
		result[id] = nil
		raw, err := c.cache.Get(cacheKey(id))
		if err != nil {
			misses = append(misses, id)
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.cache.Del(cacheKey(id))
			misses = append(misses, id)
			continue
		}
		result[id] = rec
	}
	hits := len(result) - len(misses)
	c.metrics.Count("onscene.featurestore.cache.count", int64(hits), []string{"result:hit"})
	c.metrics.Count("onscene.featurestore.cache.count", int64(len(misses)), []string{"result:miss"})
	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.next.GetRecords(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		rec := fetched[id]
		result[id] = rec
		if rec == nil {
			continue
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if err := c.cache.Set(cacheKey(id), raw, c.ttlSec); err != nil {
			c.logger.Debug().Err(err).Int64("user_id", id).Msg("unable to cache feature record")
		}
	}
	return result, nil
}
