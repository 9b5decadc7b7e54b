package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type securityEventReader interface {
	Query(ctx context.Context, query model.SecurityLogQuery) ([]model.SecurityEvent, error)
}

// SecurityLogHandler lets a signed-in user read their own security events.
type SecurityLogHandler struct {
	events securityEventReader
}

func NewSecurityLogHandler(events securityEventReader) *SecurityLogHandler {
	return &SecurityLogHandler{events: events}
}

func (h *SecurityLogHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()

	var since time.Time
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apierror.BadRequest("since must be an RFC 3339 timestamp", raw))
			return
		}
	}

	userID := identity.UserID
	events, err := h.events.Query(r.Context(), model.SecurityLogQuery{
		UserID:    &userID,
		EventType: model.SecurityEventType(strings.TrimSpace(query.Get("event_type"))),
		Since:     since,
		Limit:     parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.SecurityEventList{Items: events})
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
