package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrSessionExpired signals a 401 from upstream: the console session no
// longer maps to a valid upstream identity. The HTTP layer redirects to the
// login entry point; the original request is never retried automatically.
var ErrSessionExpired = errors.New("gateway: session expired")

// PendingApproval is the interception result produced when the upstream
// declines to execute a mutation and records it for manual review instead.
//
// It travels through the error channel so no call site can mistake the
// deferred write for a completed one, but it is a distinct type: callers
// pattern-match with AsPendingApproval and must not present it as a
// failure. The interceptor has already surfaced the single user-facing
// notice by the time a handler sees it.
type PendingApproval struct {
	// Message is the server-supplied notice, e.g. "Pending review".
	Message string
	// Payload carries whatever the server attached to the deferral.
	Payload json.RawMessage
	// DispatchID identifies the intercepted dispatch for audit dedup.
	DispatchID string
}

func (e *PendingApproval) Error() string {
	return "gateway: approval required: " + e.Message
}

// AsPendingApproval unwraps err into a PendingApproval when the outcome is
// a deferred write rather than a failure.
func AsPendingApproval(err error) (*PendingApproval, bool) {
	var pending *PendingApproval
	if errors.As(err, &pending) {
		return pending, true
	}
	return nil, false
}

// UpstreamError is a non-2xx upstream response propagated unchanged: the
// gateway does not swallow or reinterpret ordinary failures.
type UpstreamError struct {
	Status int
	Title  string
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gateway: upstream %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("gateway: upstream %d: %s", e.Status, http.StatusText(e.Status))
}

const defaultPendingMessage = "submitted for approval"

// detectPending classifies a response as an approval deferral. The markers
// are HTTP 202 and the approval_required body flag; either alone counts.
// Anything else, whatever its status, is never reinterpreted.
func detectPending(status int, body []byte) *PendingApproval {
	flagged := gjson.GetBytes(body, "approval_required").Bool()
	if status != http.StatusAccepted && !flagged {
		return nil
	}
	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = defaultPendingMessage
	}
	pending := &PendingApproval{Message: message}
	if data := gjson.GetBytes(body, "data"); data.Exists() {
		pending.Payload = json.RawMessage(data.Raw)
	}
	return pending
}

func upstreamError(status int, body []byte) *UpstreamError {
	e := &UpstreamError{Status: status, Title: http.StatusText(status)}
	if title := gjson.GetBytes(body, "title").String(); title != "" {
		e.Title = title
	}
	if detail := gjson.GetBytes(body, "detail").String(); detail != "" {
		e.Detail = detail
	} else if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		e.Detail = msg
	}
	return e
}
