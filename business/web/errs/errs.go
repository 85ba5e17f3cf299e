// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// Classify maps an error returned by a handler to the response sent to the
// client. Errors nobody marked as safe to share come back as a bare 500.
func Classify(err error) (Response, int) {
	var resp Response
	var status int

	switch kind := fault.KindOf(err); kind {
	case fault.KindValidation:
		resp, status = Response{Error: err.Error(), Kind: string(kind)}, http.StatusBadRequest
	case fault.KindNotFound:
		resp, status = Response{Error: err.Error(), Kind: string(kind)}, http.StatusNotFound
	case fault.KindChainCorruption:
		resp, status = Response{Error: err.Error(), Kind: string(kind)}, http.StatusServiceUnavailable
	default:
		resp, status = Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
	}

	if te := GetTrusted(err); te != nil {
		resp.Error = te.Error()
		status = te.Status
	}

	if fe := validate.GetFieldErrors(err); fe != nil {
		resp = Response{
			Error:  "data validation error",
			Kind:   string(fault.KindValidation),
			Fields: fe.Fields(),
		}
		status = http.StatusBadRequest
	}

	return resp, status
}
