package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/exam-delivery-service/internal/middleware"
	"github.com/SAP-F-2025/exam-delivery-service/internal/services"
	"github.com/SAP-F-2025/exam-delivery-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	metrics        *middleware.Metrics
}

func NewAttemptHandler(attemptService services.AttemptService, metrics *middleware.Metrics, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		metrics:        metrics,
	}
}

// StartAttempt starts an attempt or resumes the caller's full-length one
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Test and options"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Attempt started", "attempt_id", attempt.ID, "test_id", attempt.TestID)
	c.JSON(http.StatusCreated, attempt)
}

// ListAttempts lists the caller's attempts, newest first
// @Summary List attempts
// @Tags attempts
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} services.AttemptListResponse
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req services.ListAttemptsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	list, err := h.attemptService.List(c.Request.Context(), user.ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetAttempt returns an attempt with its module results
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptDetailResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), id, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// GetCurrentModule returns the module the student is working on, without
// answers
// @Summary Get current module
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.ModuleResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/current-module [get]
func (h *AttemptHandler) GetCurrentModule(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	module, err := h.attemptService.GetCurrentModule(c.Request.Context(), id, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, module)
}

// SubmitModule scores the current module and routes to the next one
// @Summary Submit module
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param submission body services.SubmitModuleRequest true "Answers"
// @Success 200 {object} services.SubmitModuleResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit-module [post]
func (h *AttemptHandler) SubmitModule(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	result, err := h.attemptService.SubmitModule(c.Request.Context(), id, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	outcome := "next"
	switch {
	case result.TestCompleted:
		outcome = "completed"
	case result.IsBreak:
		outcome = "break"
	}
	h.metrics.ObserveSubmission(string(result.Section), string(result.ModuleType), outcome)

	h.LogInfo(c, "Module submitted",
		"attempt_id", id,
		"module_id", req.ModuleID,
		"correct", result.ModuleScore.Correct,
		"total", result.ModuleScore.Total,
		"outcome", outcome)
	c.JSON(http.StatusOK, result)
}

// AbandonAttempt ends an in-progress attempt without scoring it
// @Summary Abandon attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/abandon [post]
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), id, user.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Attempt abandoned", "attempt_id", id)
	h.RespondWithSuccess(c, http.StatusOK, "Attempt abandoned", gin.H{"id": id})
}

// ReviewAttempt returns every answered module with answers and explanations
// @Summary Review attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.ReviewResponse
// @Failure 400 {object} ErrorResponse
// @Router /attempts/{id}/review [get]
func (h *AttemptHandler) ReviewAttempt(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	review, err := h.attemptService.Review(c.Request.Context(), id, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// ExportReview downloads the review as an Excel workbook
// @Summary Export attempt review
// @Tags attempts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Attempt ID"
// @Router /attempts/{id}/review/export [get]
func (h *AttemptHandler) ExportReview(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	data, err := h.attemptService.ExportReview(c.Request.Context(), id, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attempt-%d-review.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}
