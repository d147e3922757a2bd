package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/SAP-F-2025/exam-delivery-service/internal/middleware"
	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-delivery-service/internal/services"
	"github.com/SAP-F-2025/exam-delivery-service/internal/utils"
	"github.com/SAP-F-2025/exam-delivery-service/internal/validator"
	"github.com/SAP-F-2025/exam-delivery-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	aliceToken = "tok-alice"
	bobToken   = "tok-bob"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiEnv struct {
	db        *gorm.DB
	router    *gin.Engine
	publisher *events.MockEventPublisher
	metrics   *middleware.Metrics
	test      *models.Test
}

// newAPIEnv serves the full route table over in-memory sqlite with the demo
// test seeded and no cache.
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db, err := pkg.InitDatabase("sqlite://:memory:", "test")
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))
	test, err := pkg.SeedDemo(context.Background(), db)
	require.NoError(t, err)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewNopLogger()
	publisher := events.NewMockEventPublisher(slogger)
	serviceManager := services.NewServiceManager(
		postgres.NewRepositoryManager(db),
		nil,
		publisher,
		validator.New(),
		slogger,
		clockwork.NewFakeClockAt(time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)),
	)

	metrics := middleware.NewMetrics()
	auth := middleware.Auth(middleware.NewStaticAuthenticator(map[string]string{
		aliceToken: "alice",
		bobToken:   "bob",
	}), logger)

	router := gin.New()
	router.Use(middleware.RequestID(), metrics.Middleware())
	NewHandlerManager(serviceManager, auth, metrics, logger).SetupRoutes(router)

	return &apiEnv{db: db, router: router, publisher: publisher, metrics: metrics, test: test}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func (e *apiEnv) startAttempt(t *testing.T, token string) services.AttemptResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/attempts", token, gin.H{"test_id": e.test.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var attempt services.AttemptResponse
	decode(t, rec, &attempt)
	return attempt
}

// answerKey maps every question of the module to its last accepted answer.
func (e *apiEnv) answerKey(t *testing.T, moduleID uint) map[uint]string {
	t.Helper()
	var questions []models.Question
	require.NoError(t, e.db.Where("module_id = ?", moduleID).Find(&questions).Error)
	keys := make(map[uint]string, len(questions))
	for _, q := range questions {
		accepted, err := q.CorrectAnswers()
		require.NoError(t, err)
		keys[q.ID] = accepted[len(accepted)-1]
	}
	return keys
}
