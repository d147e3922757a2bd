package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"exam-delivery-service"}`, rec.Body.String())
}

func TestAttemptHandler_Auth(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/attempts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/attempts", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/attempts", aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttemptHandler_StartAttempt(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("Created", func(t *testing.T) {
		attempt := env.startAttempt(t, aliceToken)
		assert.Equal(t, models.AttemptInProgress, attempt.Status)
		assert.Equal(t, env.test.Title, attempt.TestTitle)
		require.NotNil(t, attempt.CurrentModuleID)
		assert.Len(t, env.publisher.EventsOfType(events.EventAttemptStarted), 1)
	})

	t.Run("ResumesFullLengthAttempt", func(t *testing.T) {
		first := env.startAttempt(t, bobToken)
		second := env.startAttempt(t, bobToken)
		assert.Equal(t, first.ID, second.ID)
	})

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{name: "MalformedJSON", body: `{"test_id":`, status: http.StatusBadRequest, code: "bad_request"},
		{name: "MissingTestID", body: gin.H{}, status: http.StatusBadRequest, code: "bad_request"},
		{name: "UnknownTest", body: gin.H{"test_id": 9999}, status: http.StatusNotFound, code: "not_found"},
		{
			name:   "MultiplierOutOfRange",
			body:   gin.H{"test_id": env.test.ID, "config": gin.H{"time_multiplier": 3}},
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "SingleModuleWithoutSelection",
			body:   gin.H{"test_id": env.test.ID, "config": gin.H{"scope": "single_module"}},
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/attempts", aliceToken, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestAttemptHandler_InvalidID(t *testing.T) {
	env := newAPIEnv(t)

	for _, path := range []string{
		"/api/v1/attempts/abc",
		"/api/v1/attempts/0",
		"/api/v1/attempts/-4/current-module",
		"/api/v1/attempts/1.5/review",
	} {
		rec := env.do(t, http.MethodGet, path, aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestAttemptHandler_ModuleFlow(t *testing.T) {
	env := newAPIEnv(t)
	attempt := env.startAttempt(t, aliceToken)
	base := fmt.Sprintf("/api/v1/attempts/%d", attempt.ID)

	rec := env.do(t, http.MethodGet, base+"/current-module", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var module services.ModuleResponse
	decode(t, rec, &module)
	assert.Equal(t, *attempt.CurrentModuleID, module.ID)
	assert.Equal(t, models.SectionReadingWriting, module.Section)
	assert.Equal(t, models.Module1, module.Module)
	require.Len(t, module.Questions, 6)
	assert.NotContains(t, rec.Body.String(), "correct_answer")
	assert.NotContains(t, rec.Body.String(), "explanation")

	t.Run("OtherUserSeesNothing", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, bobToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base+"/current-module", bobToken, nil).Code)
	})

	t.Run("ReviewGatedWhileInProgress", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, base+"/review", aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("WrongModule", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/submit-module", aliceToken, gin.H{
			"module_id": module.ID + 1,
			"answers":   []gin.H{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), services.ErrModuleMismatch.Error())
	})

	t.Run("DuplicateQuestion", func(t *testing.T) {
		qid := module.Questions[0].ID
		rec := env.do(t, http.MethodPost, base+"/submit-module", aliceToken, gin.H{
			"module_id": module.ID,
			"answers": []gin.H{
				{"question_id": qid, "answer": "A"},
				{"question_id": qid, "answer": "B"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Validation failed", resp.Message)
		assert.NotNil(t, resp.Details)
	})

	t.Run("SubmitRoutesToHarder", func(t *testing.T) {
		keys := env.answerKey(t, module.ID)
		answers := make([]gin.H, 0, len(module.Questions))
		for _, q := range module.Questions {
			answers = append(answers, gin.H{"question_id": q.ID, "answer": keys[q.ID], "time_spent_seconds": 30})
		}
		rec := env.do(t, http.MethodPost, base+"/submit-module", aliceToken, gin.H{
			"module_id":          module.ID,
			"answers":            answers,
			"time_spent_seconds": 180,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result services.SubmitModuleResponse
		decode(t, rec, &result)
		assert.Equal(t, services.ModuleScore{Correct: 6, Total: 6}, result.ModuleScore)
		assert.False(t, result.IsBreak)
		assert.False(t, result.TestCompleted)
		require.NotNil(t, result.NextModuleID)

		rec = env.do(t, http.MethodGet, base+"/current-module", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var next services.ModuleResponse
		decode(t, rec, &next)
		assert.Equal(t, *result.NextModuleID, next.ID)
		assert.Equal(t, models.DifficultyHarder, next.Difficulty)
	})

	t.Run("ResubmitRejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/submit-module", aliceToken, gin.H{"module_id": module.ID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DetailIncludesModuleResults", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, base, aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var detail services.AttemptDetailResponse
		decode(t, rec, &detail)
		require.Len(t, detail.ModuleResults, 1)
		assert.Equal(t, 6, detail.ModuleResults[0].CorrectCount)
		assert.Equal(t, 180, detail.TimeSpentSeconds)
	})

	t.Run("SubmissionCounted", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "exam_module_submissions_total")
		assert.Contains(t, rec.Body.String(), `outcome="next"`)
	})
}

func TestAttemptHandler_AbandonAndReview(t *testing.T) {
	env := newAPIEnv(t)
	attempt := env.startAttempt(t, aliceToken)
	base := fmt.Sprintf("/api/v1/attempts/%d", attempt.ID)

	rec := env.do(t, http.MethodPost, base+"/abandon", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/abandon", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SuccessResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Attempt abandoned", resp.Message)

	t.Run("NoLongerActive", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, base+"/abandon", aliceToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base+"/current-module", aliceToken, nil).Code)
	})

	t.Run("Review", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, base+"/review", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var review services.ReviewResponse
		decode(t, rec, &review)
		assert.Equal(t, models.AttemptAbandoned, review.Attempt.Status)
		require.Len(t, review.Modules, 1)
		assert.Equal(t, 6, review.Summary.TotalQuestions)
		assert.Contains(t, rec.Body.String(), "correct_answer")
	})

	t.Run("Export", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, base+"/review/export", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t,
			fmt.Sprintf(`attachment; filename="attempt-%d-review.xlsx"`, attempt.ID),
			rec.Header().Get("Content-Disposition"))
		assert.NotZero(t, rec.Body.Len())
	})

	t.Run("List", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/attempts?status=abandoned", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list services.AttemptListResponse
		decode(t, rec, &list)
		assert.Equal(t, int64(1), list.Total)
		require.Len(t, list.Attempts, 1)
		assert.Equal(t, attempt.ID, list.Attempts[0].ID)

		rec = env.do(t, http.MethodGet, "/api/v1/attempts?page_size=500", aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/v1/attempts?page=abc", aliceToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
