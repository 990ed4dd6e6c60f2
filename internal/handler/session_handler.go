package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/response"
	"github.com/xushnid/supertest-backend/internal/service"
	"github.com/xushnid/supertest-backend/internal/validator"
)

// SessionHandler handles the public participant endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// failFromAdmissionError maps admission denials onto response codes so
// the front end can render a precise message.
func failFromAdmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTestClosed):
		response.Fail(c, http.StatusForbidden, response.ErrTestClosed)
	case errors.Is(err, service.ErrTestExpired):
		response.Fail(c, http.StatusForbidden, response.ErrTestExpired)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetSession godoc
// GET /api/v1/session?code=12345&participant_id=...
// Admits a participant into an open test: returns their personalized
// question set, or their recorded score if they already submitted this
// session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	code := c.Query("code")
	participantID := c.Query("participant_id")
	if len(code) != 5 || participantID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	view, err := h.sessionService.Admit(c.Request.Context(), code, participantID)
	if err != nil {
		failFromAdmissionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitResult godoc
// POST /api/v1/submit
// Records a participant's scored result. Resubmission within one
// session overwrites the previous row.
func (h *SessionHandler) SubmitResult(c *gin.Context) {
	var req model.SubmitResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Submit(c.Request.Context(), req); err != nil {
		failFromAdmissionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
