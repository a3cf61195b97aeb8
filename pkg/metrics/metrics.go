package metrics

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/rs/zerolog"
)

// Client is the metrics façade handed to every component. Implementations are safe for
// concurrent use.
type Client interface {
	Count(name string, value int64, tags []string)
	Incr(name string, tags []string)
	Timing(name string, value time.Duration, tags []string)
	Gauge(name string, value float64, tags []string)
	Distribution(name string, value float64, tags []string)
}

var (
	_ Client = (*StatsD)(nil)
	_ Client = Noop{}
	_ Client = (*Recorder)(nil)
)

// StatsD ships metrics to telegraf / the datadog agent.
type StatsD struct {
	client       statsd.ClientInterface
	samplingRate float64
	logger       zerolog.Logger
}

func NewStatsD(configs *configs.AppConfigs, logger zerolog.Logger) (*StatsD, error) {
	client, err := statsd.New(
		getTelegrafAddress(configs),
		statsd.WithTags(getGlobalTags(configs)),
	)
	if err != nil {
		return nil, err
	}
	rate := configs.Configs.MetricsSamplingRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	logger.Info().
		Str("address", getTelegrafAddress(configs)).
		Float64("sampling_rate", rate).
		Msg("Metrics client initialized")
	return &StatsD{client: client, samplingRate: rate, logger: logger}, nil
}

func getGlobalTags(configs *configs.AppConfigs) []string {
	return []string{
		"env:" + configs.Configs.ApplicationEnv,
		"service:" + configs.Configs.ApplicationName,
	}
}

func getTelegrafAddress(configs *configs.AppConfigs) string {
	return configs.Configs.Telegraf_Host + ":" + configs.Configs.Telegraf_Port
}

func (s *StatsD) Count(name string, value int64, tags []string) {
	if err := s.client.Count(name, value, tags, s.samplingRate); err != nil {
		s.logger.Warn().Err(err).Msg("Error occurred while doing statsd count")
	}
}

func (s *StatsD) Incr(name string, tags []string) {
	if err := s.client.Incr(name, tags, s.samplingRate); err != nil {
		s.logger.Warn().Err(err).Msg("Error occurred while doing statsd incr")
	}
}

func (s *StatsD) Timing(name string, value time.Duration, tags []string) {
	if err := s.client.Timing(name, value, tags, s.samplingRate); err != nil {
		s.logger.Warn().Err(err).Msg("Error occurred while doing statsd timing")
	}
}

func (s *StatsD) Gauge(name string, value float64, tags []string) {
	if err := s.client.Gauge(name, value, tags, s.samplingRate); err != nil {
		s.logger.Warn().Err(err).Msg("Error occurred while doing statsd gauge")
	}
}

func (s *StatsD) Distribution(name string, value float64, tags []string) {
	if err := s.client.Distribution(name, value, tags, s.samplingRate); err != nil {
		s.logger.Warn().Err(err).Msg("Error occurred while doing statsd distribution")
	}
}

// Close flushes buffered metrics.
func (s *StatsD) Close() error {
	return s.client.Close()
}

// Noop drops everything.
type Noop struct{}

func (Noop) Count(string, int64, []string)          {}
func (Noop) Incr(string, []string)                  {}
func (Noop) Timing(string, time.Duration, []string) {}
func (Noop) Gauge(string, float64, []string)        {}
func (Noop) Distribution(string, float64, []string) {}

// BuildTag joins a key and value into a statsd tag.
func BuildTag(key, value string) string {
	return key + ":" + value
}
