package registry

import (
	"time"

	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
)

const (
	ShadowStatusOK      = "ok"
	ShadowStatusError   = "error"
	ShadowStatusTimeout = "timeout"
)

// ShadowPrediction compares one shift team's raw minutes between the factual and a shadow
// model.
type ShadowPrediction struct {
	ShiftTeamID    int64   `json:"shift_team_id"`
	FactualMinutes float64 `json:"factual_minutes"`
	ShadowMinutes  float64 `json:"shadow_minutes"`
	DeltaMinutes   float64 `json:"delta_minutes"`
}

type ShadowEvent struct {
	RequestID      string             `json:"request_id"`
	CareRequestID  int64              `json:"care_request_id"`
	FactualVersion string             `json:"factual_version"`
	ShadowVersion  string             `json:"shadow_version"`
	Status         string             `json:"status"`
	Latency        time.Duration      `json:"-"`
	LatencyMs      int64              `json:"latency_ms"`
	Error          string             `json:"error,omitempty"`
	Predictions    []ShadowPrediction `json:"predictions,omitempty"`
	EmittedAt      time.Time          `json:"emitted_at"`
}

// ShadowSink receives shadow outcomes. Implementations must not block and must be safe
// for concurrent use.
type ShadowSink interface {
	Emit(event ShadowEvent)
}

// MetricsSink records shadow outcomes as metrics.
type MetricsSink struct {
	metrics metrics.Client
}

func NewMetricsSink(metricsClient metrics.Client) *MetricsSink {
	return &MetricsSink{metrics: metricsClient}
}

func (s *MetricsSink) Emit(event ShadowEvent) {
	versionTag := metrics.BuildTag("shadow_version", event.ShadowVersion)
	s.metrics.Incr("onscene.shadow.count", []string{versionTag, metrics.BuildTag("status", event.Status)})
	s.metrics.Timing("onscene.shadow.latency_ms", event.Latency, []string{versionTag})
	if event.Status != ShadowStatusOK {
		return
	}
	tags := []string{versionTag, metrics.BuildTag("factual_version", event.FactualVersion)}
	for _, p := range event.Predictions {
		s.metrics.Distribution("onscene.shadow.delta_minutes", p.DeltaMinutes, tags)
	}
}

// MultiSink emits to every sink in order.
type MultiSink []ShadowSink

func (m MultiSink) Emit(event ShadowEvent) {
	for _, s := range m {
		s.Emit(event)
	}
}
