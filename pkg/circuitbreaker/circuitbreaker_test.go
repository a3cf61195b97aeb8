package circuitbreaker

import (
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPassThroughWhenDisabled(t *testing.T) {
	cb := New(Config{Name: "fs", Enabled: false}, metrics.Noop{}, zerolog.Nop())
	for i := 0; i < 10; i++ {
		cb.RecordFailure()
	}
	assert.True(t, cb.IsAllowed())
}

func TestOpensAfterFailures(t *testing.T) {
	recorder := metrics.NewRecorder()
	cb := New(Config{
		Name:                 "fs",
		Enabled:              true,
		FailureRateThreshold: 50,
		FailureMinRequests:   4,
		FailureWindow:        time.Minute,
		SuccessThreshold:     1,
		SuccessCapacity:      1,
		Delay:                time.Minute,
	}, recorder, zerolog.Nop())

	assert.True(t, cb.IsAllowed())
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	assert.False(t, cb.IsAllowed())
	assert.NotEmpty(t, recorder.Events("onscene.circuitbreaker.state_changed"))
}

func TestReleaseReturnsHalfOpenPermit(t *testing.T) {
	cb := New(Config{
		Name:                 "fs",
		Enabled:              true,
		FailureRateThreshold: 100,
		FailureMinRequests:   2,
		FailureWindow:        time.Minute,
		SuccessThreshold:     1,
		SuccessCapacity:      1,
		Delay:                20 * time.Millisecond,
	}, metrics.Noop{}, zerolog.Nop())

	// released calls while closed carry no verdict
	for i := 0; i < 5; i++ {
		assert.True(t, cb.IsAllowed())
		cb.Release()
	}
	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsAllowed())

	for i := 0; i < 3; i++ {
		assert.Eventually(t, cb.IsAllowed, time.Second, 5*time.Millisecond, "half-open trial %d", i)
		cb.Release()
	}
	assert.Eventually(t, cb.IsAllowed, time.Second, 5*time.Millisecond)
	cb.RecordSuccess()
	assert.True(t, cb.IsAllowed())
}
