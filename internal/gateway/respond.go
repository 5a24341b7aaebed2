package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/atrium-console/atrium/internal/platform/httpx"
)

// LoginPath is the console's authentication entry point.
const LoginPath = "/login"

// PendingBody is the response shape for a deferred mutation: distinct from
// both a success body and an RFC7807 problem, so clients can branch on it
// without string matching.
type PendingBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondError translates a dispatch error into the console's HTTP
// contract:
//
//   - a PendingApproval becomes a 202 with a typed pending body, the single
//     user-facing notice for a deferred write;
//   - an expired session redirects to the login entry point unless the
//     request is already inside the authentication flow;
//   - an upstream failure propagates with its original status;
//   - anything else is an internal error.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	if pending, ok := AsPendingApproval(err); ok {
		body := PendingBody{Status: "pending_approval", Message: pending.Message}
		if len(pending.Payload) > 0 {
			body.Data = pending.Payload
		}
		httpx.JSON(w, http.StatusAccepted, body)
		return
	}

	if errors.Is(err, ErrSessionExpired) {
		if !strings.HasPrefix(r.URL.Path, LoginPath) {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		httpx.Problem(w, http.StatusUnauthorized, "Session Expired", "sign in again")
		return
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		httpx.Problem(w, upstream.Status, upstream.Title, upstream.Detail)
		return
	}

	httpx.RespondError(w, err)
}
