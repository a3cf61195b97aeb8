package featurestore

import (
	"context"
	"strconv"
	"strings"
	"time"

	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/circuitbreaker"
	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/Meesho/BharatMLStack/onscene/pkg/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	FieldUserID    = "user_id"
	FieldPosition  = "position"
	FieldProvScore = "prov_score"
)

var fsMetricTags = []string{"ext-service:featurestore"}

// Record is the raw feature set of one user.
type Record map[string]string

// Client reads per-user provider features.
type Client interface {
	// GetRecords returns a value for every requested id; users without a record map to nil.
	GetRecords(ctx context.Context, userIDs []int64) (map[int64]Record, error)
}

// HashStore fetches one hash per key in a single round trip. Missing keys yield empty maps.
type HashStore interface {
	HGetAll(ctx context.Context, keys []string) ([]map[string]string, error)
}

type Config struct {
	KeyPrefix string
	BatchSize int
	Timeout   time.Duration
}

func ConfigFrom(configs *configs.AppConfigs) Config {
	return Config{
		KeyPrefix: configs.Configs.FeatureStore_KeyPrefix,
		BatchSize: configs.Configs.FeatureStore_BatchSize,
		Timeout:   time.Duration(configs.Configs.FeatureStore_TimeoutMs) * time.Millisecond,
	}
}

func BreakerConfigFrom(configs *configs.AppConfigs) circuitbreaker.Config {
	c := configs.Configs
	return circuitbreaker.Config{
		Name:                 "featurestore",
		Enabled:              c.FeatureStore_CBEnabled,
		FailureRateThreshold: c.FeatureStore_CBFailureRate,
		FailureMinRequests:   c.FeatureStore_CBMinRequests,
		FailureWindow:        time.Duration(c.FeatureStore_CBWindowMs) * time.Millisecond,
		SuccessThreshold:     c.FeatureStore_CBSuccessRatio,
		SuccessCapacity:      c.FeatureStore_CBSuccessWindow,
		Delay:                time.Duration(c.FeatureStore_CBDelayMs) * time.Millisecond,
	}
}

// StoreClient serves records out of a HashStore, batching ids and failing fast while the
// breaker is open.
type StoreClient struct {
	store   HashStore
	config  Config
	breaker circuitbreaker.ManualCircuitBreaker
	metrics metrics.Client
	logger  zerolog.Logger
}

func NewStoreClient(store HashStore, config Config, breaker circuitbreaker.ManualCircuitBreaker, metricsClient metrics.Client, logger zerolog.Logger) *StoreClient {
	if breaker == nil {
		breaker = circuitbreaker.NewPassThroughBreaker()
	}
	return &StoreClient{store: store, config: config, breaker: breaker, metrics: metricsClient, logger: logger}
}

func (c *StoreClient) key(userID int64) string {
	return c.config.KeyPrefix + ":" + strconv.FormatInt(userID, 10)
}

func (c *StoreClient) GetRecords(ctx context.Context, userIDs []int64) (map[int64]Record, error) {
	result := make(map[int64]Record, len(userIDs))
	unique := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if _, seen := result[id]; !seen {
			result[id] = nil
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindDeadlineExceeded, err, "feature store call cancelled")
	}
	if !c.breaker.IsAllowed() {
		c.metrics.Incr("onscene.featurestore.request.count", append([]string{"status:circuit_open"}, fsMetricTags...))
		return nil, onsceneerrors.New(onsceneerrors.KindFeatureStoreUnavailable, "feature store circuit is open")
	}

	startTime := time.Now()
	batches := utils.PartitionSlice(unique, c.config.BatchSize)
	records := make([][]map[string]string, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			callCtx := gctx
			if c.config.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, c.config.Timeout)
				defer cancel()
			}
			keys := make([]string, len(batch))
			for j, id := range batch {
				keys[j] = c.key(id)
			}
			hashes, err := c.store.HGetAll(callCtx, keys)
			if err != nil {
				return err
			}
			records[i] = hashes
			return nil
		})
	}
	err := g.Wait()
	c.metrics.Timing("onscene.featurestore.latency_ms", time.Since(startTime), fsMetricTags)
	c.metrics.Count("onscene.featurestore.request.batch", int64(len(batches)), fsMetricTags)

	if err != nil {
		if ctx.Err() != nil {
			c.breaker.Release()
			c.metrics.Incr("onscene.featurestore.request.count", append([]string{"status:deadline"}, fsMetricTags...))
			return nil, onsceneerrors.Wrap(onsceneerrors.KindDeadlineExceeded, ctx.Err(), "feature store call cancelled")
		}
		c.breaker.RecordFailure()
		c.metrics.Incr("onscene.featurestore.request.count", append([]string{"status:error"}, fsMetricTags...))
		c.logger.Error().Err(err).Int("user_ids", len(unique)).Msg("feature store lookup failed")
		return nil, onsceneerrors.Wrap(onsceneerrors.KindFeatureStoreUnavailable, err, "feature store unreachable")
	}
	c.breaker.RecordSuccess()
	c.metrics.Incr("onscene.featurestore.request.count", append([]string{"status:ok"}, fsMetricTags...))

	for i, batch := range batches {
		for j, id := range batch {
			if j < len(records[i]) && len(records[i][j]) > 0 {
				result[id] = Record(records[i][j])
			}
		}
	}
	return result, nil
}

// splitEndpoints accepts a comma separated list of host:port.
func splitEndpoints(endpoint string) []string {
	var addrs []string
	for _, a := range strings.Split(endpoint, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}
