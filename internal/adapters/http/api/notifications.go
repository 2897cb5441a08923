package api

import (
	"net/http"

	service "github.com/okian/footsteps/internal/app"
)

// NotificationsHandler accepts host notifications.
type NotificationsHandler struct {
	deps Submitter
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(deps Submitter) *NotificationsHandler {
	return &NotificationsHandler{deps: deps}
}

// HandlePostNotification handles POST /notifications requests.
func (h *NotificationsHandler) HandlePostNotification(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_notification"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	n, err := DecodeNotification(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	outcome := h.deps.Submit(r.Context(), n)
	switch outcome {
	case service.Duplicate:
		writeJSON(w, http.StatusOK, Ack(n.ID, outcome))
	case service.Accepted:
		writeJSON(w, http.StatusAccepted, Ack(n.ID, outcome))
	default:
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	}
}
