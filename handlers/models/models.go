package models

import (
	"fmt"
	"time"
)

// Date is a calendar date without time zone.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Time returns midnight UTC of d, or an error when d is not a real calendar date.
func (d Date) Time() (time.Time, error) {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Year < 1 {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	if t.Day() != d.Day || int(t.Month()) != d.Month {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	return t, nil
}

type ShiftTeam struct {
	ID        int64   `json:"id"`
	MemberIDs []int64 `json:"member_ids"`
}

// OnSceneRequest fields are all optional on the wire; the prediction service decides
// which are required.
type OnSceneRequest struct {
	CareRequestID       int64       `json:"care_request_id"`
	ProtocolName        string      `json:"protocol_name"`
	ServiceLine         string      `json:"service_line"`
	PlaceOfService      string      `json:"place_of_service"`
	NumCRs              *int64      `json:"num_crs"`
	PatientDOB          *Date       `json:"patient_dob"`
	RiskAssessmentScore *float64    `json:"risk_assessment_score"`
	ShiftTeams          []ShiftTeam `json:"shift_teams"`
	// RequestTime is the reference date for the patient's age. Zero means now.
	RequestTime *time.Time `json:"request_time,omitempty"`
}

type User struct {
	UserID    int64   `json:"user_id"`
	Position  string  `json:"position"`
	ProvScore float64 `json:"prov_score"`
}

type Prediction struct {
	ShiftTeamID             int64  `json:"shift_team_id"`
	PredictedOnSceneMinutes int64  `json:"predicted_on_scene_minutes"`
	ModelVersion            string `json:"model_version"`
}

type OnSceneResponse struct {
	CareRequestID int64        `json:"care_request_id"`
	Predictions   []Prediction `json:"predictions"`
}
