package users

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Meesho/BharatMLStack/onscene/handlers/external/featurestore"
	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetUsersEmptyInputWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	client := &featurestore.MockClient{}
	lookup := NewLookup(client, zerolog.New(&buf))

	got, err := lookup.GetUsers(context.Background(), []int64{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, 1, strings.Count(buf.String(), `"level":"warn"`))
	client.AssertNotCalled(t, "GetRecords", mock.Anything, mock.Anything)
}

func TestGetUsers(t *testing.T) {
	ctx := context.Background()
	ids := []int64{19, 20, 10001, 21, 22, 23}
	client := &featurestore.MockClient{}
	client.On("GetRecords", ctx, ids).Return(map[int64]featurestore.Record{
		19:    {"user_id": "19", "position": "Advanced Practice Provider", "prov_score": "-0.16424"},
		20:    {"user_id": "20", "position": "DHMT"},
		10001: nil,
		21:    {"user_id": "21", "position": "DHMT", "prov_score": "not-a-number"},
		22:    {"user_id": "22", "position": "DHMT", "prov_score": "NaN"},
		23:    {"user_id": "23", "position": "APP", "prov_score": "+Inf"},
	}, nil)

	got, err := NewLookup(client, zerolog.Nop()).GetUsers(ctx, ids)
	require.NoError(t, err)

	assert.Len(t, got, len(ids))
	for _, id := range ids {
		assert.Contains(t, got, id)
	}
	assert.Equal(t, &models.User{UserID: 19, Position: "Advanced Practice Provider", ProvScore: -0.16424}, got[19])
	assert.Nil(t, got[20], "missing prov_score")
	assert.Nil(t, got[10001], "no record")
	assert.Nil(t, got[21], "unparseable prov_score")
	assert.Nil(t, got[22], "NaN prov_score")
	assert.Nil(t, got[23], "infinite prov_score")
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	client := &featurestore.MockClient{}
	client.On("GetRecords", ctx, []int64{7}).Return(map[int64]featurestore.Record{
		7: {"user_id": "7", "position": "Virtual Doctor", "prov_score": "16.424"},
	}, nil)
	client.On("GetRecords", ctx, []int64{8}).Return(map[int64]featurestore.Record{8: nil}, nil)
	client.On("GetRecords", ctx, []int64{9}).
		Return(nil, onsceneerrors.New(onsceneerrors.KindFeatureStoreUnavailable, "down"))

	lookup := NewLookup(client, zerolog.Nop())

	user, err := lookup.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Virtual Doctor", user.Position)
	assert.InDelta(t, 16.424, user.ProvScore, 1e-9)

	user, err = lookup.GetUser(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, user)

	_, err = lookup.GetUser(ctx, 9)
	assert.True(t, onsceneerrors.Is(err, onsceneerrors.KindFeatureStoreUnavailable))
}
