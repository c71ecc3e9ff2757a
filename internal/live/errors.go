package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("live session closed")

// APIError is an error reported by the endpoint inside a server message.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("live api error (code %d, status %s): %s", e.Code, e.Status, e.Message)
}

// HandshakeError is a dial failure that got as far as an HTTP response.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("live handshake failed (http %d): %v", e.StatusCode, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

type Kind string

const (
	KindNetwork            Kind = "network"
	KindUnauthorized       Kind = "unauthorized"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUnknown            Kind = "unknown"
)

var (
	unauthorizedPatterns = []string{
		"api key", "api_key", "unauthorized", "unauthenticated", "permission_denied",
		"permission denied", "forbidden", "invalid key", "401", "403",
	}
	unavailablePatterns = []string{
		"unavailable", "overloaded", "resource_exhausted", "quota", "rate limit",
		"try again later", "503", "429", "internal error",
	}
	networkPatterns = []string{
		"connection refused", "connection reset", "no such host", "network is unreachable",
		"broken pipe", "timeout", "timed out", "eof", "abnormal closure", "i/o",
	}
)

// Classify maps an error to a display category. It only chooses the
// message shown to the user; retry policy does not depend on it.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var hs *HandshakeError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindUnauthorized
		case http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusBadGateway:
			return KindServiceUnavailable
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindUnauthorized
		case http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusInternalServerError:
			return KindServiceUnavailable
		}
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseTryAgainLater, websocket.CloseInternalServerErr, websocket.CloseServiceRestart:
			return KindServiceUnavailable
		case websocket.CloseAbnormalClosure:
			return KindNetwork
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, unauthorizedPatterns):
		return KindUnauthorized
	case containsAny(msg, unavailablePatterns):
		return KindServiceUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		containsAny(msg, networkPatterns) {
		return KindNetwork
	}
	return KindUnknown
}

// Message is the human readable text shown for an error category.
func (k Kind) Message() string {
	switch k {
	case KindNetwork:
		return "Connection to the interviewer was lost. Check your network and try again."
	case KindUnauthorized:
		return "The interviewer rejected the API key. Check the configured credential."
	case KindServiceUnavailable:
		return "The interviewer service is busy or unavailable. Try again in a moment."
	default:
		return "The interview connection failed unexpectedly."
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
