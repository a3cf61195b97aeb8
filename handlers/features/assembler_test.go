package features

import (
	"math"
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 10, 18, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func numeric(t *testing.T, frame *matrix.Frame, col string) []float64 {
	t.Helper()
	values, ok := frame.Numeric(col)
	require.True(t, ok, col)
	return values
}

func baseRequest() *models.OnSceneRequest {
	return &models.OnSceneRequest{
		CareRequestID:       99,
		ProtocolName:        "Chest Pain",
		ServiceLine:         "Acute Care",
		PlaceOfService:      "Home",
		NumCRs:              int64Ptr(3),
		PatientDOB:          &models.Date{Year: 1982, Month: 3, Day: 10},
		RiskAssessmentScore: float64Ptr(1.2),
		ShiftTeams: []models.ShiftTeam{
			{ID: 7, MemberIDs: []int64{19}},
			{ID: 8, MemberIDs: []int64{19, 20, 21, 10001}},
			{ID: 9, MemberIDs: []int64{10001, 10002}},
		},
	}
}

func baseUsers() map[int64]*models.User {
	return map[int64]*models.User{
		19:    {UserID: 19, Position: "Advanced Practice Provider", ProvScore: -0.16424},
		20:    {UserID: 20, Position: "DHMT", ProvScore: 1.0},
		21:    {UserID: 21, Position: "Nurse", ProvScore: 2.0},
		10001: nil,
		10002: nil,
	}
}

func TestAssemble(t *testing.T) {
	a := NewAssemblerWithClock(-999, func() time.Time { return fixedNow })
	frame, err := a.Assemble(baseRequest(), baseUsers())
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Rows())
	assert.Equal(t, []string{
		ColProtocolName, ColServiceLine, ColPlaceOfService,
		ColMaxNumCareRequests, ColPatientAge, ColRiskScore, ColShiftTeamScore,
		ColTeamSize, ColNumAPP, ColNumDHMT, ColNumOther,
	}, frame.Columns())

	protocol, ok := frame.Categorical(ColProtocolName)
	require.True(t, ok)
	assert.Equal(t, []string{"Chest Pain", "Chest Pain", "Chest Pain"}, protocol)
	assert.Equal(t, []float64{3, 3, 3}, numeric(t, frame, ColMaxNumCareRequests))
	assert.Equal(t, []float64{42, 42, 42}, numeric(t, frame, ColPatientAge))
	assert.Equal(t, []float64{1.2, 1.2, 1.2}, numeric(t, frame, ColRiskScore))

	score := numeric(t, frame, ColShiftTeamScore)
	assert.InDelta(t, -0.16424, score[0], 1e-12)
	assert.InDelta(t, (-0.16424+1.0+2.0)/3, score[1], 1e-12)
	assert.Equal(t, -999.0, score[2], "all members unresolved")

	assert.Equal(t, []float64{1, 4, 2}, numeric(t, frame, ColTeamSize))
	assert.Equal(t, []float64{1, 1, 0}, numeric(t, frame, ColNumAPP))
	assert.Equal(t, []float64{0, 1, 0}, numeric(t, frame, ColNumDHMT))
	assert.Equal(t, []float64{0, 1, 0}, numeric(t, frame, ColNumOther))
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := NewAssemblerWithClock(-1, func() time.Time { return fixedNow })
	first, err := a.Assemble(baseRequest(), baseUsers())
	require.NoError(t, err)
	second, err := a.Assemble(baseRequest(), baseUsers())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssembleMissingOptionalFields(t *testing.T) {
	req := baseRequest()
	req.PatientDOB = nil
	req.RiskAssessmentScore = nil

	frame, err := NewAssembler().Assemble(req, baseUsers())
	require.NoError(t, err)
	for _, v := range numeric(t, frame, ColPatientAge) {
		assert.True(t, math.IsNaN(v))
	}
	for _, v := range numeric(t, frame, ColRiskScore) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestAssembleUsesRequestTime(t *testing.T) {
	req := baseRequest()
	// day before the 42nd birthday, in a zone where it is already the birthday in UTC
	requestTime := time.Date(2024, time.March, 9, 20, 0, 0, 0, time.FixedZone("PST", -8*3600))
	req.RequestTime = &requestTime

	frame, err := NewAssemblerWithClock(-1, func() time.Time { return fixedNow }).Assemble(req, baseUsers())
	require.NoError(t, err)
	assert.Equal(t, 42.0, numeric(t, frame, ColPatientAge)[0])

	requestTime = time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)
	frame, err = NewAssemblerWithClock(-1, func() time.Time { return fixedNow }).Assemble(req, baseUsers())
	require.NoError(t, err)
	assert.Equal(t, 41.0, numeric(t, frame, ColPatientAge)[0])
}

func TestAssembleMalformedDOB(t *testing.T) {
	req := baseRequest()
	req.PatientDOB = &models.Date{Year: 2023, Month: 2, Day: 30}
	_, err := NewAssembler().Assemble(req, baseUsers())
	assert.True(t, onsceneerrors.Is(err, onsceneerrors.KindRequestValidation))
}

func TestAgeInYears(t *testing.T) {
	dob := time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		ref  time.Time
		want int
	}{
		{time.Date(2001, time.February, 28, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2001, time.March, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2004, time.February, 29, 0, 0, 0, 0, time.UTC), 4},
		{time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.ref.Format(time.DateOnly), func(t *testing.T) {
			assert.Equal(t, tt.want, AgeInYears(dob, tt.ref))
		})
	}
}

func TestPositionGroup(t *testing.T) {
	assert.Equal(t, "app", PositionGroup("Advanced Practice Provider"))
	assert.Equal(t, "app", PositionGroup(" APP "))
	assert.Equal(t, "dhmt", PositionGroup("Emergency Medical Technician"))
	assert.Equal(t, "dhmt", PositionGroup("emt"))
	assert.Equal(t, "other", PositionGroup("Nurse Practitioner"))
	assert.Equal(t, "other", PositionGroup(""))
}
