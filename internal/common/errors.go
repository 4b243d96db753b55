package common

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure the client surfaces wraps exactly one of these.
var (
	ErrValidation         = errors.New("invalid input")
	ErrAuthRejected       = errors.New("authentication rejected")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrValidationRejected = errors.New("rejected by server")
	ErrServerFault        = errors.New("server fault")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrTimeout            = errors.New("request timed out")
	ErrDownloadFailed     = errors.New("download failed")
	ErrRecordingTooShort  = errors.New("recording too short")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNoSession          = errors.New("no active session")
	ErrStorageUnavailable = errors.New("local storage unavailable")
)

// Invalid reports a locally detected validation failure.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// detailer is implemented by errors carrying a server-provided explanation.
type detailer interface {
	ServerDetail() string
}

// Describe renders err as a message fit for the end user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var d detailer
	detail := ""
	if errors.As(err, &d) {
		detail = d.ServerDetail()
	}

	switch {
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrAuthRejected):
		return "Your session has expired or the credentials are wrong. Please log in again."
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do that."
	case errors.Is(err, ErrNotFound):
		if detail != "" {
			return detail
		}
		return "The requested item no longer exists."
	case errors.Is(err, ErrValidationRejected):
		if detail != "" {
			return detail
		}
		return "The server rejected the request."
	case errors.Is(err, ErrServerFault):
		return "Something went wrong on the server. Please try again."
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Please try again."
	case errors.Is(err, ErrNetworkUnreachable):
		return "Unable to connect to server. Please check your internet connection."
	case errors.Is(err, ErrDownloadFailed):
		return "Failed to download media. Please try again."
	case errors.Is(err, ErrRecordingTooShort):
		return "Recording too short. Please record for at least 1 second."
	case errors.Is(err, ErrPermissionDenied):
		return "Microphone permission is required to record audio."
	case errors.Is(err, ErrNoSession):
		return "You must be logged in first."
	case errors.Is(err, ErrStorageUnavailable):
		return "Local storage is unavailable."
	case errors.Is(err, ErrUnexpectedStatus):
		return "The server returned an unexpected response."
	default:
		return "Unexpected error: " + err.Error()
	}
}
