package kafka

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/Meesho/BharatMLStack/onscene/handlers/registry"
	pkgkafka "github.com/Meesho/BharatMLStack/onscene/pkg/kafka"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	shadowDroppedMetric   = "onscene.shadow.dropped"
	shadowPublishedMetric = "onscene.shadow.published"
)

// Publisher enqueues a message without blocking.
type Publisher interface {
	Publish(key, value []byte) error
}

// ShadowSink streams shadow events, keyed by care request id.
type ShadowSink struct {
	publisher Publisher
	metrics   metrics.Client
	logger    zerolog.Logger
}

func NewShadowSink(publisher Publisher, metricsClient metrics.Client, logger zerolog.Logger) *ShadowSink {
	return &ShadowSink{publisher: publisher, metrics: metricsClient, logger: logger}
}

func (s *ShadowSink) Emit(event registry.ShadowEvent) {
	tags := []string{metrics.BuildTag("shadow_version", event.ShadowVersion)}
	value, err := json.Marshal(event)
	if err != nil {
		s.metrics.Incr(shadowDroppedMetric, append(tags, metrics.BuildTag("reason", "marshal")))
		s.logger.Error().Err(err).Str("shadow_version", event.ShadowVersion).Msg("cannot encode shadow event")
		return
	}
	err = s.publisher.Publish([]byte(strconv.FormatInt(event.CareRequestID, 10)), value)
	switch {
	case err == nil:
		s.metrics.Incr(shadowPublishedMetric, tags)
	case errors.Is(err, pkgkafka.ErrBufferFull):
		s.metrics.Incr(shadowDroppedMetric, append(tags, metrics.BuildTag("reason", "buffer_full")))
	default:
		s.metrics.Incr(shadowDroppedMetric, append(tags, metrics.BuildTag("reason", "publish")))
		s.logger.Warn().Err(err).Str("shadow_version", event.ShadowVersion).Msg("cannot publish shadow event")
	}
}

var _ registry.ShadowSink = (*ShadowSink)(nil)
var _ Publisher = (*pkgkafka.Producer)(nil)
