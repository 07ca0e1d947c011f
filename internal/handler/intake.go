package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/looply/looply/internal/handler/dto"
	"github.com/looply/looply/internal/intake"
	"github.com/looply/looply/internal/ratelimit"
)

// Client facing intake messages.
const (
	msgInvalidRequest = "Invalid request."
	msgSendFailed     = "We couldn’t send your request right now. Please try again shortly."
)

// IntakeHandler receives demo requests from the marketing site.
type IntakeHandler struct {
	svc          *intake.Service
	supportEmail string
	logger       *slog.Logger
}

// NewIntakeHandler creates a new IntakeHandler. supportEmail is shown to
// visitors when delivery is not configured.
func NewIntakeHandler(svc *intake.Service, supportEmail string, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{
		svc:          svc,
		supportEmail: supportEmail,
		logger:       logger,
	}
}

// Submit handles POST /api/lead.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	form, err := intake.ParseForm(body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	err = h.svc.Submit(r.Context(), form, ratelimit.ClientIP(r), requestID(r))
	if err == nil {
		writeJSON(w, http.StatusOK, dto.OKResponse{OK: true})
		return
	}

	var invalid *intake.ValidationError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Errors: invalid.Fields})
	case errors.Is(err, intake.ErrMisconfigured):
		writeMessage(w, http.StatusInternalServerError, h.misconfiguredMessage())
	default:
		writeMessage(w, http.StatusInternalServerError, msgSendFailed)
	}
}

func (h *IntakeHandler) misconfiguredMessage() string {
	if h.supportEmail == "" {
		return msgSendFailed
	}
	return "We couldn’t send your request right now. Please email " + h.supportEmail + "."
}
