package features

// Raw feature columns, in frame order.
const (
	ColProtocolName       = "protocol_name"
	ColServiceLine        = "service_line"
	ColPlaceOfService     = "place_of_service"
	ColMaxNumCareRequests = "max_num_care_requests"
	ColPatientAge         = "patient_age"
	ColRiskScore          = "risk_score"
	ColShiftTeamScore     = "shift_team_score"
	ColTeamSize           = "team_size"
	ColNumAPP             = "num_app"
	ColNumDHMT            = "num_dhmt"
	ColNumOther           = "num_other"
)

const (
	positionAPP   = "app"
	positionDHMT  = "dhmt"
	positionOther = "other"
)

var positionBuckets = map[string]string{
	"advanced practice provider":   positionAPP,
	"app":                          positionAPP,
	"dhmt":                         positionDHMT,
	"emergency medical technician": positionDHMT,
	"emt":                          positionDHMT,
}
