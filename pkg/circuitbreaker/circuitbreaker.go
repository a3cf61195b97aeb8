package circuitbreaker

import (
	"time"

	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	fscb "github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/rs/zerolog"
)

// ManualCircuitBreaker is driven by the caller: ask before the call, report after it.
// Every allowed call must end in exactly one of RecordSuccess, RecordFailure or Release.
type ManualCircuitBreaker interface {
	IsAllowed() bool
	RecordSuccess()
	RecordFailure()
	// Release settles a call that ended without a verdict on the backend, e.g. the
	// caller went away.
	Release()
}

type Config struct {
	Name    string
	Enabled bool
	// open when FailureRateThreshold percent of at least FailureMinRequests calls within
	// FailureWindow fail
	FailureRateThreshold int
	FailureMinRequests   int
	FailureWindow        time.Duration
	// close again after SuccessThreshold of SuccessCapacity half-open calls succeed
	SuccessThreshold int
	SuccessCapacity  int
	Delay            time.Duration
}

// New returns a failsafe-go backed breaker, or a pass-through one when disabled.
func New(config Config, metricsClient metrics.Client, logger zerolog.Logger) ManualCircuitBreaker {
	if !config.Enabled {
		return NewPassThroughBreaker()
	}
	cb := fscb.Builder[any]().
		WithFailureRateThreshold(uint(config.FailureRateThreshold), uint(config.FailureMinRequests), config.FailureWindow).
		WithSuccessThresholdRatio(uint(config.SuccessThreshold), uint(config.SuccessCapacity)).
		WithDelay(config.Delay).
		OnStateChanged(func(event fscb.StateChangedEvent) {
			logger.Warn().
				Str("breaker", config.Name).
				Str("from", event.OldState.String()).
				Str("to", event.NewState.String()).
				Msg("circuit breaker changed state")
			metricsClient.Incr("onscene.circuitbreaker.state_changed", []string{
				metrics.BuildTag("name", config.Name),
				metrics.BuildTag("to", event.NewState.String()),
			})
		}).
		Build()
	return &failsafeBreaker{breaker: cb}
}

type failsafeBreaker struct {
	breaker fscb.CircuitBreaker[any]
}

func (b *failsafeBreaker) IsAllowed() bool {
	return b.breaker.TryAcquirePermit()
}

func (b *failsafeBreaker) RecordSuccess() {
	b.breaker.RecordSuccess()
}

func (b *failsafeBreaker) RecordFailure() {
	b.breaker.RecordFailure()
}

// Release counts an unfinished half-open trial as failed, which returns its permit.
// Closed breakers hold no permits.
func (b *failsafeBreaker) Release() {
	if b.breaker.IsHalfOpen() {
		b.breaker.RecordFailure()
	}
}

// passThroughBreaker allows every call.
type passThroughBreaker struct{}

func NewPassThroughBreaker() ManualCircuitBreaker {
	return passThroughBreaker{}
}

func (passThroughBreaker) IsAllowed() bool { return true }
func (passThroughBreaker) RecordSuccess()  {}
func (passThroughBreaker) RecordFailure()  {}
func (passThroughBreaker) Release()        {}
