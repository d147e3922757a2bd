package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/cache"
	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-delivery-service/internal/validator"
	"github.com/SAP-F-2025/exam-delivery-service/pkg"
	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testStart = time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	cache     cache.CacheService
	publisher *events.MockEventPublisher
	clock     *clockwork.FakeClock
	service   AttemptService
	test      *models.Test
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires the attempt service over in-memory sqlite, miniredis and
// a recording publisher, with the demo test already stored.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := pkg.InitDatabase("sqlite://:memory:", "test")
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))
	test, err := pkg.SeedDemo(context.Background(), db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := discardLogger()
	env := &testEnv{
		db:        db,
		redis:     mr,
		cache:     cache.NewRedisCache(client, "exam", logger),
		publisher: events.NewMockEventPublisher(logger),
		clock:     clockwork.NewFakeClockAt(testStart),
		test:      test,
	}
	env.service = NewAttemptService(
		postgres.NewRepositoryManager(db),
		env.cache,
		env.publisher,
		validator.New(),
		logger,
		env.clock,
		DefaultAttemptServiceConfig(),
	)
	return env
}

var alice = &UserInfo{ID: "user-alice", Name: "alice", DisplayName: "Alice", Email: "alice@example.com"}

// moduleID returns the id of the seeded module in the given slot.
func (e *testEnv) moduleID(section models.SATSection, module models.SATModule, difficulty models.ModuleDifficulty) uint {
	for _, m := range e.test.Modules {
		if m.Section == section && m.Module == module && m.Difficulty == difficulty {
			return m.ID
		}
	}
	return 0
}

// answers builds a submission for the module answering the first correct
// questions right and the rest wrong.
func (e *testEnv) answers(t *testing.T, moduleID uint, correct int) *SubmitModuleRequest {
	t.Helper()

	var questions []models.Question
	require.NoError(t, e.db.Where("module_id = ?", moduleID).Order("question_number").Find(&questions).Error)
	require.NotEmpty(t, questions)

	req := &SubmitModuleRequest{ModuleID: moduleID, TimeSpentSeconds: 60 * len(questions)}
	for i, q := range questions {
		answer := "Z"
		if i < correct {
			accepted, err := q.CorrectAnswers()
			require.NoError(t, err)
			answer = accepted[len(accepted)-1]
		}
		req.Answers = append(req.Answers, AnswerSubmission{
			QuestionID:       q.ID,
			Answer:           &answer,
			IsFlagged:        i == 0,
			TimeSpentSeconds: 60,
		})
	}
	return req
}

func (e *testEnv) start(t *testing.T, config *AttemptConfigRequest) *AttemptResponse {
	t.Helper()
	resp, err := e.service.Start(context.Background(), &StartAttemptRequest{TestID: e.test.ID, Config: config}, alice)
	require.NoError(t, err)
	return resp
}

// MockCacheService lets tests script cache failures
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheService) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

func (m *MockCacheService) AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, key, ttl)
	release, _ := args.Get(0).(func())
	return release, args.Bool(1), args.Error(2)
}
