package users

import (
	"context"
	"math"
	"strconv"

	"github.com/Meesho/BharatMLStack/onscene/handlers/external/featurestore"
	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	"github.com/rs/zerolog"
)

// Lookup turns feature store records into users.
type Lookup struct {
	client featurestore.Client
	logger zerolog.Logger
}

func NewLookup(client featurestore.Client, logger zerolog.Logger) *Lookup {
	return &Lookup{client: client, logger: logger}
}

// GetUser returns nil when the user has no usable record.
func (l *Lookup) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	records, err := l.client.GetRecords(ctx, []int64{userID})
	if err != nil {
		return nil, err
	}
	return toUser(records[userID]), nil
}

// GetUsers returns an entry for every id in userIDs; unresolved ids map to nil.
func (l *Lookup) GetUsers(ctx context.Context, userIDs []int64) (map[int64]*models.User, error) {
	if len(userIDs) == 0 {
		l.logger.Warn().Msg("get_users called with no user ids")
		return map[int64]*models.User{}, nil
	}
	records, err := l.client.GetRecords(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*models.User, len(userIDs))
	for _, id := range userIDs {
		out[id] = toUser(records[id])
	}
	return out, nil
}

func toUser(rec featurestore.Record) *models.User {
	if rec == nil {
		return nil
	}
	rawID, ok := rec[featurestore.FieldUserID]
	if !ok {
		return nil
	}
	position, ok := rec[featurestore.FieldPosition]
	if !ok {
		return nil
	}
	rawScore, ok := rec[featurestore.FieldProvScore]
	if !ok {
		return nil
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil
	}
	score, err := strconv.ParseFloat(rawScore, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return nil
	}
	return &models.User{UserID: userID, Position: position, ProvScore: score}
}
