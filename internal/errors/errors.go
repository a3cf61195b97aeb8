package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind int

const (
	KindServiceInternal Kind = iota
	KindMissingCareRequest
	KindMissingShiftTeams
	KindRequestValidation
	KindInvalidVersion
	KindConfigNotFound
	KindFeatureStoreUnavailable
	KindDeadlineExceeded
	KindServiceUnavailable
)

const defaultErrMsg = "something went wrong!"

var kindNames = map[Kind]string{
	KindServiceInternal:         "ServiceInternal",
	KindMissingCareRequest:      "MissingCareRequest",
	KindMissingShiftTeams:       "MissingShiftTeams",
	KindRequestValidation:       "RequestValidation",
	KindInvalidVersion:          "InvalidVersion",
	KindConfigNotFound:          "ConfigNotFound",
	KindFeatureStoreUnavailable: "FeatureStoreUnavailable",
	KindDeadlineExceeded:        "DeadlineExceeded",
	KindServiceUnavailable:      "ServiceUnavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsValidation reports whether k is caused by the request itself.
func (k Kind) IsValidation() bool {
	switch k {
	case KindMissingCareRequest, KindMissingShiftTeams, KindRequestValidation:
		return true
	}
	return false
}

type Error struct {
	Kind     Kind
	ErrorMsg string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.ErrorMsg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.ErrorMsg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, ErrorMsg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, ErrorMsg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies err. Context deadlines become DeadlineExceeded; anything unclassified
// is ServiceInternal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return KindDeadlineExceeded
	}
	return KindServiceInternal
}

// Is reports whether err is of kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the caller-visible message for err. Internal failures never expose
// their cause.
func PublicMessage(err error) string {
	kind := KindOf(err)
	var e *Error
	switch {
	case kind == KindServiceInternal:
		return defaultErrMsg
	case stderrors.As(err, &e):
		return e.ErrorMsg
	case kind == KindDeadlineExceeded:
		return "request deadline exceeded"
	}
	return defaultErrMsg
}

func GRPCCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	switch kind := KindOf(err); {
	case kind.IsValidation():
		return codes.InvalidArgument
	case kind == KindFeatureStoreUnavailable, kind == KindServiceUnavailable, kind == KindConfigNotFound:
		return codes.Unavailable
	case kind == KindDeadlineExceeded:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// GRPCStatus converts err into the status returned on the wire.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(GRPCCode(err), PublicMessage(err))
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch kind := KindOf(err); {
	case kind.IsValidation():
		return http.StatusBadRequest
	case kind == KindFeatureStoreUnavailable, kind == KindServiceUnavailable, kind == KindConfigNotFound:
		return http.StatusServiceUnavailable
	case kind == KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
