package features

import (
	"math"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
)

// Assembler builds the raw feature frame for a request, one row per shift team.
// Values the request or feature store cannot supply are set to the sentinel, which the
// model pipeline imputes.
type Assembler struct {
	sentinel float64
	now      func() time.Time
}

// NewAssembler uses NaN as the sentinel and the wall clock for requests without a
// request time.
func NewAssembler() *Assembler {
	return &Assembler{sentinel: math.NaN(), now: time.Now}
}

func NewAssemblerWithClock(sentinel float64, now func() time.Time) *Assembler {
	return &Assembler{sentinel: sentinel, now: now}
}

type teamAggregate struct {
	score   float64
	size    int
	byGroup map[string]int
}

// Assemble expects a validated request; users must hold an entry (possibly nil) for
// every member id.
func (a *Assembler) Assemble(req *models.OnSceneRequest, users map[int64]*models.User) (*matrix.Frame, error) {
	rows := len(req.ShiftTeams)
	age, err := a.patientAge(req)
	if err != nil {
		return nil, err
	}
	numCRs, risk := a.sentinel, a.sentinel
	if req.NumCRs != nil {
		numCRs = float64(*req.NumCRs)
	}
	if req.RiskAssessmentScore != nil {
		risk = *req.RiskAssessmentScore
	}

	cols := map[string][]float64{
		ColMaxNumCareRequests: make([]float64, rows),
		ColPatientAge:         make([]float64, rows),
		ColRiskScore:          make([]float64, rows),
		ColShiftTeamScore:     make([]float64, rows),
		ColTeamSize:           make([]float64, rows),
		ColNumAPP:             make([]float64, rows),
		ColNumDHMT:            make([]float64, rows),
		ColNumOther:           make([]float64, rows),
	}
	protocol := make([]string, rows)
	serviceLine := make([]string, rows)
	placeOfService := make([]string, rows)

	for i, team := range req.ShiftTeams {
		agg := a.aggregate(team, users)
		protocol[i] = req.ProtocolName
		serviceLine[i] = req.ServiceLine
		placeOfService[i] = req.PlaceOfService
		cols[ColMaxNumCareRequests][i] = numCRs
		cols[ColPatientAge][i] = age
		cols[ColRiskScore][i] = risk
		cols[ColShiftTeamScore][i] = agg.score
		cols[ColTeamSize][i] = float64(agg.size)
		cols[ColNumAPP][i] = float64(agg.byGroup[positionAPP])
		cols[ColNumDHMT][i] = float64(agg.byGroup[positionDHMT])
		cols[ColNumOther][i] = float64(agg.byGroup[positionOther])
	}

	frame := matrix.NewFrame(rows)
	for _, col := range []struct {
		name   string
		values []string
	}{
		{ColProtocolName, protocol},
		{ColServiceLine, serviceLine},
		{ColPlaceOfService, placeOfService},
	} {
		if err := frame.SetCategorical(col.name, col.values); err != nil {
			return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "cannot build feature frame")
		}
	}
	for _, name := range []string{
		ColMaxNumCareRequests, ColPatientAge, ColRiskScore, ColShiftTeamScore,
		ColTeamSize, ColNumAPP, ColNumDHMT, ColNumOther,
	} {
		if err := frame.SetNumeric(name, cols[name]); err != nil {
			return nil, onsceneerrors.Wrap(onsceneerrors.KindServiceInternal, err, "cannot build feature frame")
		}
	}
	return frame, nil
}

// aggregate averages prov_score over resolved members and buckets their positions.
// Unresolved members only count toward the team size.
func (a *Assembler) aggregate(team models.ShiftTeam, users map[int64]*models.User) teamAggregate {
	agg := teamAggregate{score: a.sentinel, size: len(team.MemberIDs), byGroup: make(map[string]int, 3)}
	var sum float64
	var resolved int
	for _, id := range team.MemberIDs {
		user := users[id]
		if user == nil {
			continue
		}
		resolved++
		sum += user.ProvScore
		agg.byGroup[PositionGroup(user.Position)]++
	}
	if resolved > 0 {
		agg.score = sum / float64(resolved)
	}
	return agg
}

// PositionGroup maps a free-text position to app, dhmt or other.
func PositionGroup(position string) string {
	if group, ok := positionBuckets[strings.ToLower(strings.TrimSpace(position))]; ok {
		return group
	}
	return positionOther
}

func (a *Assembler) patientAge(req *models.OnSceneRequest) (float64, error) {
	if req.PatientDOB == nil {
		return a.sentinel, nil
	}
	dob, err := req.PatientDOB.Time()
	if err != nil {
		return 0, onsceneerrors.Wrap(onsceneerrors.KindRequestValidation, err, "malformed patient_dob")
	}
	ref := a.now().UTC()
	if req.RequestTime != nil && !req.RequestTime.IsZero() {
		ref = req.RequestTime.UTC()
	}
	return float64(AgeInYears(dob, ref)), nil
}

// AgeInYears counts completed years between dob and ref by calendar day.
func AgeInYears(dob, ref time.Time) int {
	years := ref.Year() - dob.Year()
	if ref.Month() < dob.Month() || (ref.Month() == dob.Month() && ref.Day() < dob.Day()) {
		years--
	}
	return years
}
