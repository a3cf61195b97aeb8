package server

import "crypto/subtle"

const (
	CallerIDHeader  = "onscene-caller-id"
	AuthTokenHeader = "onscene-auth-token"
	RequestIDHeader = "x-request-id"
)

// callerAuth checks caller tokens. An empty token set disables the check.
type callerAuth map[string]string

func (a callerAuth) enabled() bool { return len(a) > 0 }

func (a callerAuth) authorized(callerID, token string) bool {
	expected, ok := a[callerID]
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}
