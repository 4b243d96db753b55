package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/lingopost/internal/common"
)

// APIError is a classified failure of one HTTP call. Kind is one of the
// common.Err* sentinels; Cause holds the transport error, if any.
type APIError struct {
	Kind   error
	Method string
	URL    string
	Status int
	Detail string
	Cause  error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v", e.Method, e.URL, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// ServerDetail is the explanation the backend sent, if any.
func (e *APIError) ServerDetail() string { return e.Detail }

func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return common.ErrAuthRejected
	case code == http.StatusForbidden:
		return common.ErrForbidden
	case code == http.StatusNotFound:
		return common.ErrNotFound
	case code == http.StatusBadRequest, code == http.StatusConflict,
		code == http.StatusRequestEntityTooLarge, code == http.StatusUnprocessableEntity:
		return common.ErrValidationRejected
	case code >= 500:
		return common.ErrServerFault
	default:
		return common.ErrUnexpectedStatus
	}
}

// classifyTransport maps an error from http.Client.Do or a body read.
// Cancellation by the caller is not a timeout and is returned unclassified.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != context.DeadlineExceeded {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return common.ErrTimeout
	}
	return common.ErrNetworkUnreachable
}

// parseDetail extracts a human message from an error body. FastAPI sends
// {"detail": "..."} or {"detail": [{"msg": "..."}]}; the Express routes send
// {"error": "..."} or {"message": "..."}.
func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	if len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
		return string(payload.Detail)
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
