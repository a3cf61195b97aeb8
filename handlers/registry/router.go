package registry

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/config"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/Meesho/BharatMLStack/onscene/pkg/utils"
	"github.com/rs/zerolog"
)

// Dispatch is one request's input to the router.
type Dispatch struct {
	RequestID     string
	CareRequestID int64
	ShiftTeamIDs  []int64
	Frame         *matrix.Frame
}

// Result carries the factual model's raw minutes, one per shift team.
type Result struct {
	Entry   *Entry
	Minutes []float64
}

type RouterConfig struct {
	ShadowDeadline      time.Duration
	ShadowSamplePercent int
}

// Router serves the factual model and runs shadows in the background.
type Router struct {
	config  RouterConfig
	sink    ShadowSink
	metrics metrics.Client
	logger  zerolog.Logger
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewRouter(cfg RouterConfig, sink ShadowSink, metricsClient metrics.Client, logger zerolog.Logger) *Router {
	return &Router{config: cfg, sink: sink, metrics: metricsClient, logger: logger, now: time.Now}
}

// Route predicts with the snapshot's factual model and schedules its shadows. The
// result never depends on a shadow.
func (r *Router) Route(ctx context.Context, snapshot *Snapshot, d Dispatch) (*Result, error) {
	factual, err := snapshot.Factual()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindDeadlineExceeded, err, "deadline exceeded before prediction")
	}
	minutes, err := predict(factual, d.Frame)
	if err != nil {
		return nil, err
	}
	if len(minutes) != len(d.ShiftTeamIDs) {
		return nil, onsceneerrors.New(onsceneerrors.KindServiceInternal,
			"model %s returned %d predictions for %d shift teams", factual.Version, len(minutes), len(d.ShiftTeamIDs))
	}
	if err := ctx.Err(); err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindDeadlineExceeded, err, "deadline exceeded during prediction")
	}

	r.schedule(ctx, snapshot.Shadows(), factual.Version, minutes, d)
	return &Result{Entry: factual, Minutes: minutes}, nil
}

// schedule starts shadows detached from the caller's deadline.
func (r *Router) schedule(ctx context.Context, shadows []*Entry, factualVersion string, factualMinutes []float64, d Dispatch) {
	if len(shadows) == 0 {
		return
	}
	if !utils.IsEnabledForID(d.CareRequestID, r.config.ShadowSamplePercent) {
		r.metrics.Incr("onscene.shadow.sampled_out", nil)
		return
	}
	shadowCtx := context.WithoutCancel(ctx)
	for _, shadow := range shadows {
		r.wg.Add(1)
		go r.runShadow(shadowCtx, shadow, factualVersion, factualMinutes, d)
	}
}

// Wait blocks until every scheduled shadow has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

func predict(entry *Entry, frame *matrix.Frame) ([]float64, error) {
	x, err := entry.Artifact.Transform(frame)
	if err != nil {
		return nil, err
	}
	return entry.Artifact.Predict(x)
}

type shadowOutcome struct {
	minutes []float64
	err     error
}

func (r *Router) runShadow(ctx context.Context, shadow *Entry, factualVersion string, factualMinutes []float64, d Dispatch) {
	defer r.wg.Done()
	logger := r.logger.With().
		Str("request_id", d.RequestID).
		Int64("care_request_id", d.CareRequestID).
		Str("shadow_version", shadow.Version).
		Str("factual_version", factualVersion).
		Logger()

	if r.config.ShadowDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ShadowDeadline)
		defer cancel()
	}

	startTime := time.Now()
	done := make(chan shadowOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- shadowOutcome{err: fmt.Errorf("shadow model panicked: %v", rec)}
			}
		}()
		minutes, err := predict(shadow, d.Frame)
		done <- shadowOutcome{minutes: minutes, err: err}
	}()

	event := ShadowEvent{
		RequestID:      d.RequestID,
		CareRequestID:  d.CareRequestID,
		FactualVersion: factualVersion,
		ShadowVersion:  shadow.Version,
	}
	select {
	case <-ctx.Done():
		event.Status = ShadowStatusTimeout
		event.Error = ctx.Err().Error()
		logger.Warn().Dur("deadline", r.config.ShadowDeadline).Msg("shadow prediction timed out")
	case out := <-done:
		switch {
		case out.err != nil:
			event.Status = ShadowStatusError
			event.Error = out.err.Error()
			logger.Warn().Err(out.err).Msg("shadow prediction failed")
		case len(out.minutes) != len(factualMinutes):
			event.Status = ShadowStatusError
			event.Error = fmt.Sprintf("shadow returned %d predictions, factual %d", len(out.minutes), len(factualMinutes))
			logger.Warn().Msg(event.Error)
		default:
			event.Status = ShadowStatusOK
			event.Predictions = make([]ShadowPrediction, len(out.minutes))
			for i, m := range out.minutes {
				event.Predictions[i] = ShadowPrediction{
					ShiftTeamID:    d.ShiftTeamIDs[i],
					FactualMinutes: factualMinutes[i],
					ShadowMinutes:  m,
					DeltaMinutes:   m - factualMinutes[i],
				}
			}
		}
	}
	event.Latency = time.Since(startTime)
	event.LatencyMs = event.Latency.Milliseconds()
	event.EmittedAt = r.now().UTC()
	r.sink.Emit(event)
}

// Shape applies the model config to raw minutes: add the adjustment, floor at the
// minimum, then round half to even.
func Shape(minutes float64, cfg config.OnSceneModelConfig) int64 {
	v := minutes + float64(cfg.PredictionAdjustment)
	if v < float64(cfg.MinimumOnSceneTime) {
		v = float64(cfg.MinimumOnSceneTime)
	}
	return int64(math.RoundToEven(v))
}
