package onscene

import (
	"math"

	"github.com/Meesho/BharatMLStack/onscene/handlers/models"
	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
)

const (
	minRiskScore = -10
	maxRiskScore = 50
)

// ValidateRequest checks the fields a prediction needs. It performs no I/O.
func ValidateRequest(req *models.OnSceneRequest) error {
	if req == nil {
		return onsceneerrors.New(onsceneerrors.KindRequestValidation, "request is empty")
	}
	if req.NumCRs == nil || *req.NumCRs <= 0 {
		return onsceneerrors.New(onsceneerrors.KindMissingCareRequest, "num_crs must be a positive count")
	}
	if len(req.ShiftTeams) == 0 {
		return onsceneerrors.New(onsceneerrors.KindMissingShiftTeams, "shift_teams is required")
	}
	for _, team := range req.ShiftTeams {
		if len(team.MemberIDs) == 0 {
			return onsceneerrors.New(onsceneerrors.KindRequestValidation, "shift team %d has no member ids", team.ID)
		}
	}
	if score := req.RiskAssessmentScore; score != nil {
		if math.IsNaN(*score) || *score < minRiskScore || *score > maxRiskScore {
			return onsceneerrors.New(onsceneerrors.KindRequestValidation,
				"risk_assessment_score must be within [%d, %d]", minRiskScore, maxRiskScore)
		}
	}
	if req.PatientDOB != nil {
		if _, err := req.PatientDOB.Time(); err != nil {
			return onsceneerrors.Wrap(onsceneerrors.KindRequestValidation, err, "malformed patient_dob")
		}
	}
	return nil
}
