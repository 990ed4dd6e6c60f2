package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xushnid/supertest-backend/internal/middleware"
	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/response"
	"github.com/xushnid/supertest-backend/internal/service"
	"github.com/xushnid/supertest-backend/internal/validator"
)

// TestHandler handles operator test management endpoints.
type TestHandler struct {
	testService        *service.TestService
	activationService  *service.ActivationService
	leaderboardService *service.LeaderboardService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(
	testService *service.TestService,
	activationService *service.ActivationService,
	leaderboardService *service.LeaderboardService,
) *TestHandler {
	return &TestHandler{
		testService:        testService,
		activationService:  activationService,
		leaderboardService: leaderboardService,
	}
}

// failFromServiceError maps typed service outcomes onto response codes.
func failFromServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotTestOwner)
	case errors.Is(err, service.ErrAlreadyActive):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyActive)
	case errors.Is(err, service.ErrNotActive):
		response.Fail(c, http.StatusConflict, response.ErrTestClosed)
	case errors.Is(err, service.ErrEmptyBank):
		response.Fail(c, http.StatusBadRequest, response.ErrEmptyBank)
	case errors.Is(err, service.ErrInvalidDuration), errors.Is(err, service.ErrInvalidSampleSize):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// requireOperator returns claims or sends the failure itself.
func requireOperator(c *gin.Context) *service.Claims {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return claims
}

// parseTestID returns the path id or sends the failure itself.
func parseTestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// CreateTest godoc
// POST /api/v1/operator/tests
// Creates a new test with a unique 5-digit access code.
func (h *TestHandler) CreateTest(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.Create(c.Request.Context(), claims.OperatorID, req.Name)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": t})
}

// ListTests godoc
// GET /api/v1/operator/tests
// Lists the operator's tests with their derived status.
func (h *TestHandler) ListTests(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}

	tests, err := h.testService.List(c.Request.Context(), claims.OperatorID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTest godoc
// GET /api/v1/operator/tests/:test_id
func (h *TestHandler) GetTest(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	t, err := h.testService.Get(c.Request.Context(), testID, claims.OperatorID)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// UploadBank godoc
// POST /api/v1/operator/tests/:test_id/bank
// Replaces the question bank with the parse of the uploaded raw text.
// Reports how many blocks were parsed and how many were skipped.
func (h *TestHandler) UploadBank(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.UploadBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	stats, err := h.testService.UploadBank(c.Request.Context(), testID, claims.OperatorID, req.RawText)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"parsed":  stats.Parsed,
		"skipped": stats.Skipped,
	})
}

// ExportBank godoc
// GET /api/v1/operator/tests/:test_id/bank/export
// Returns the bank rendered back into its canonical source form.
func (h *TestHandler) ExportBank(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	raw, err := h.testService.ExportBank(c.Request.Context(), testID, claims.OperatorID)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(raw))
}

// ActivateTest godoc
// POST /api/v1/operator/tests/:test_id/activate
// Opens a submission window and bumps the session version.
func (h *TestHandler) ActivateTest(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.ActivateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.activationService.Activate(c.Request.Context(), testID, claims.OperatorID, req.DurationMinutes, req.SampleSize)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// DeactivateTest godoc
// POST /api/v1/operator/tests/:test_id/deactivate
func (h *TestHandler) DeactivateTest(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	t, err := h.activationService.Deactivate(c.Request.Context(), testID, claims.OperatorID)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// DeleteTest godoc
// DELETE /api/v1/operator/tests/:test_id
// Deletes a test and cascades to all of its results.
func (h *TestHandler) DeleteTest(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), testID, claims.OperatorID); err != nil {
		failFromServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GetLeaderboard godoc
// GET /api/v1/operator/tests/:test_id/leaderboard
// Renders the current-session leaderboard on demand.
func (h *TestHandler) GetLeaderboard(c *gin.Context) {
	claims := requireOperator(c)
	if claims == nil {
		return
	}
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	t, err := h.testService.Get(c.Request.Context(), testID, claims.OperatorID)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	summary, err := h.leaderboardService.Refresh(c.Request.Context(), t.Code)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}
