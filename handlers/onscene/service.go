package onscene

import (
	"context"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/features"
	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	"github.com/Meesho/BharatMLStack/onscene/handlers/registry"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/metrics"
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	phaseValidate = "validate"
	phaseUsers    = "users"
	phaseFeatures = "features"
	phasePredict  = "predict"
	phaseTotal    = "total"

	statusOK = "ok"
)

type UserResolver interface {
	GetUsers(ctx context.Context, userIDs []int64) (map[int64]*models.User, error)
}

type SnapshotSource interface {
	Current() *registry.Snapshot
}

type Router interface {
	Route(ctx context.Context, snapshot *registry.Snapshot, d registry.Dispatch) (*registry.Result, error)
}

// Service answers PredictOnScene: validate, resolve users, assemble features, predict
// with the factual model, shape and respond.
type Service struct {
	users     UserResolver
	snapshots SnapshotSource
	assembler *features.Assembler
	router    Router
	deadline  time.Duration
	metrics   metrics.Client
	logger    zerolog.Logger
}

func NewService(users UserResolver, snapshots SnapshotSource, assembler *features.Assembler, router Router,
	deadline time.Duration, metricsClient metrics.Client, logger zerolog.Logger) *Service {
	return &Service{
		users:     users,
		snapshots: snapshots,
		assembler: assembler,
		router:    router,
		deadline:  deadline,
		metrics:   metricsClient,
		logger:    logger,
	}
}

type requestIDKey struct{}

// ContextWithRequestID carries a caller supplied request id into PredictOnScene.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Service) PredictOnScene(ctx context.Context, req *models.OnSceneRequest) (*models.OnSceneResponse, error) {
	startTime := time.Now()
	requestID := requestIDFrom(ctx)
	logCtx := s.logger.With().Str("request_id", requestID)
	if req != nil {
		logCtx = logCtx.Int64("care_request_id", req.CareRequestID)
	}
	logger := logCtx.Logger()

	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deadline)
		defer cancel()
	}

	resp, err := s.predict(ctx, logger, requestID, req)

	status := statusOK
	if err != nil {
		kind := onsceneerrors.KindOf(err)
		status = kind.String()
		if kind.IsValidation() {
			logger.Info().Err(err).Msg("rejected on scene request")
		} else {
			logger.Error().Err(err).Msg("on scene prediction failed")
		}
	}
	s.metrics.Incr("onscene.request.count", []string{metrics.BuildTag("status", status)})
	s.metrics.Timing("onscene.latency_ms", time.Since(startTime), []string{metrics.BuildTag("phase", phaseTotal)})
	return resp, err
}

func (s *Service) predict(ctx context.Context, logger zerolog.Logger, requestID string, req *models.OnSceneRequest) (*models.OnSceneResponse, error) {
	phaseStart := time.Now()
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	// one snapshot per request
	snapshot := s.snapshots.Current()
	if _, err := snapshot.Factual(); err != nil {
		return nil, err
	}
	phaseStart = s.timePhase(phaseValidate, phaseStart)

	memberIDs := uniqueMemberIDs(req.ShiftTeams)
	users, err := s.users.GetUsers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, onsceneerrors.Wrap(onsceneerrors.KindDeadlineExceeded, err, "deadline exceeded after user lookup")
	}
	if unresolved := unresolvedIDs(memberIDs, users); len(unresolved) > 0 {
		logger.Warn().Ints64("user_ids", unresolved).Msg("shift team members not found in feature store")
	}
	phaseStart = s.timePhase(phaseUsers, phaseStart)

	frame, err := s.assembler.Assemble(req, users)
	if err != nil {
		return nil, err
	}
	phaseStart = s.timePhase(phaseFeatures, phaseStart)

	teamIDs := make([]int64, len(req.ShiftTeams))
	for i, team := range req.ShiftTeams {
		teamIDs[i] = team.ID
	}
	result, err := s.router.Route(ctx, snapshot, registry.Dispatch{
		RequestID:     requestID,
		CareRequestID: req.CareRequestID,
		ShiftTeamIDs:  teamIDs,
		Frame:         frame,
	})
	if err != nil {
		return nil, err
	}
	s.timePhase(phasePredict, phaseStart)

	predictions := make([]models.Prediction, len(req.ShiftTeams))
	for i, teamID := range teamIDs {
		predictions[i] = models.Prediction{
			ShiftTeamID:             teamID,
			PredictedOnSceneMinutes: registry.Shape(result.Minutes[i], result.Entry.Config),
			ModelVersion:            result.Entry.Version,
		}
	}
	return &models.OnSceneResponse{CareRequestID: req.CareRequestID, Predictions: predictions}, nil
}

func (s *Service) timePhase(phase string, since time.Time) time.Time {
	now := time.Now()
	s.metrics.Timing("onscene.latency_ms", now.Sub(since), []string{metrics.BuildTag("phase", phase)})
	return now
}

// uniqueMemberIDs returns every member id once, in order of first appearance.
func uniqueMemberIDs(teams []models.ShiftTeam) []int64 {
	set := linkedhashset.New()
	for _, team := range teams {
		for _, id := range team.MemberIDs {
			set.Add(id)
		}
	}
	ids := make([]int64, 0, set.Size())
	for _, v := range set.Values() {
		ids = append(ids, v.(int64))
	}
	return ids
}

func unresolvedIDs(ids []int64, users map[int64]*models.User) []int64 {
	var out []int64
	for _, id := range ids {
		if users[id] == nil {
			out = append(out, id)
		}
	}
	return out
}
