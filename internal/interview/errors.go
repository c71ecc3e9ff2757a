package interview

import (
	"errors"

	"github.com/eleven-am/interview-coach/internal/capture"
	"github.com/eleven-am/interview-coach/internal/live"
)

var (
	ErrClosed            = errors.New("interview controller closed")
	ErrSuperseded        = errors.New("connection attempt superseded")
	ErrMissingCredential = errors.New("speech endpoint credential not configured")
	ErrNotRetryable      = errors.New("interview is not in a retryable state")
	ErrNotFound          = errors.New("interview not found")
)

type ErrorKind string

const (
	ErrorPermissionDenied   ErrorKind = "permission_denied"
	ErrorMissingCredential  ErrorKind = "missing_credential"
	ErrorNetwork            ErrorKind = "network"
	ErrorUnauthorized       ErrorKind = "unauthorized"
	ErrorServiceUnavailable ErrorKind = "service_unavailable"
	ErrorSetupFailure       ErrorKind = "setup_failure"
	ErrorTransport          ErrorKind = "transport"
	ErrorGracefulClose      ErrorKind = "graceful_close"
)

func (k ErrorKind) Message() string {
	switch k {
	case ErrorPermissionDenied:
		return "Microphone access was denied. Allow microphone access and try again."
	case ErrorMissingCredential:
		return "The interviewer is not configured: no API key was provided."
	case ErrorNetwork:
		return live.KindNetwork.Message()
	case ErrorUnauthorized:
		return live.KindUnauthorized.Message()
	case ErrorServiceUnavailable:
		return live.KindServiceUnavailable.Message()
	case ErrorSetupFailure:
		return "Audio devices could not be set up."
	case ErrorGracefulClose:
		return "The interviewer ended the session."
	default:
		return live.KindUnknown.Message()
	}
}

func setupErrorKind(err error) ErrorKind {
	if errors.Is(err, capture.ErrPermissionDenied) {
		return ErrorPermissionDenied
	}
	return ErrorSetupFailure
}

func transportErrorKind(err error) ErrorKind {
	switch live.Classify(err) {
	case live.KindNetwork:
		return ErrorNetwork
	case live.KindUnauthorized:
		return ErrorUnauthorized
	case live.KindServiceUnavailable:
		return ErrorServiceUnavailable
	default:
		return ErrorTransport
	}
}
