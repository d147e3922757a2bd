package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/cache"
	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"github.com/SAP-F-2025/exam-delivery-service/internal/validator"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AttemptServiceConfig struct {
	ModuleCacheTTL time.Duration
	SubmitLockTTL  time.Duration
}

func DefaultAttemptServiceConfig() AttemptServiceConfig {
	return AttemptServiceConfig{
		ModuleCacheTTL: 10 * time.Minute,
		SubmitLockTTL:  30 * time.Second,
	}
}

type attemptService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	opLog     *ServiceLogger
	clock     clockwork.Clock
	config    AttemptServiceConfig
}

// NewAttemptService wires the attempt service. cache may be nil, in which
// case modules are always read from the database and submissions are not
// locked across instances.
func NewAttemptService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
	clock clockwork.Clock,
	config AttemptServiceConfig,
) AttemptService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &attemptService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		opLog:     NewServiceLogger(logger, LogConfig{Service: "exam-delivery", Component: "attempt"}),
		clock:     clock,
		config:    config,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, user *UserInfo) (resp *AttemptResponse, err error) {
	op := s.opLog.WithOperation(ctx, "start_attempt", user.ID)
	defer func() { op.LogResult(req.TestID, "test", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.IsPublished {
		return nil, ErrTestNotPublished
	}

	cfg := models.AttemptConfig{TimeMultiplier: 1, Scope: models.ScopeFull}
	if req.Config != nil {
		if req.Config.TimeMultiplier > 0 {
			cfg.TimeMultiplier = req.Config.TimeMultiplier
		}
		if req.Config.Scope != "" {
			cfg.Scope = req.Config.Scope
		}
		cfg.SelectedModuleID = req.Config.SelectedModuleID
	}

	// A full-length attempt already in progress is resumed, not duplicated
	if cfg.Scope == models.ScopeFull {
		existing, err := s.repo.Attempt().GetActive(ctx, user.ID, test.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check active attempt: %w", err)
		}
		if existing != nil {
			s.logger.Info("Resuming existing attempt", "attempt_id", existing.ID, "user_id", user.ID)
			out := toAttemptResponse(existing, 0)
			return &out, nil
		}
	}

	modules, err := s.repo.Module().ListByTest(ctx, test.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	plan, first, err := planModules(modules, cfg)
	if err != nil {
		return nil, err
	}
	for _, m := range plan {
		cfg.ModuleIDs = append(cfg.ModuleIDs, m.ID)
	}

	now := s.clock.Now()
	attempt := &models.TestAttempt{
		UserID:          user.ID,
		TestID:          test.ID,
		Status:          models.AttemptInProgress,
		Config:          datatypes.NewJSONType(cfg),
		CurrentModuleID: &first.ID,
		StartedAt:       now,
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.User().Upsert(ctx, tx, &models.User{
			ID:          user.ID,
			Name:        user.Name,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			LastSeenAt:  &now,
		}); err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	attempt.Test = *test

	s.publish(ctx, events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID:      attempt.ID,
		TestID:         test.ID,
		UserID:         user.ID,
		Scope:          string(cfg.Scope),
		TimeMultiplier: cfg.TimeMultiplier,
		FirstModuleID:  first.ID,
	})

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"test_id", test.ID,
		"user_id", user.ID,
		"scope", cfg.Scope)

	out := toAttemptResponse(attempt, 0)
	return &out, nil
}

func (s *attemptService) GetCurrentModule(ctx context.Context, attemptID uint, userID string) (resp *ModuleResponse, err error) {
	op := s.opLog.WithOperation(ctx, "get_current_module", userID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	attempt, err := s.activeAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.CurrentModuleID == nil {
		return nil, ErrNoCurrentModule
	}
	moduleID := *attempt.CurrentModuleID

	key := cache.ModuleKey(attempt.ID, moduleID)
	if s.cache != nil {
		var cached ModuleResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Module cache read failed", "key", key, "error", err)
		}
	}

	module, err := s.repo.Module().GetWithQuestions(ctx, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to load module: %w", err)
	}

	resp = toModuleResponse(module, attempt.Settings().TimeMultiplier)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.config.ModuleCacheTTL); err != nil {
			s.logger.Warn("Module cache write failed", "key", key, "error", err)
		}
	}
	return resp, nil
}

func (s *attemptService) SubmitModule(ctx context.Context, attemptID uint, req *SubmitModuleRequest, userID string) (resp *SubmitModuleResponse, err error) {
	op := s.opLog.WithOperation(ctx, "submit_module", userID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if s.cache != nil {
		release, acquired, err := s.cache.AcquireLock(ctx, cache.SubmitLockKey(attemptID), s.config.SubmitLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Submission lock unavailable, continuing unlocked", "attempt_id", attemptID, "error", err)
		case !acquired:
			return nil, ErrSubmissionInProgress
		default:
			defer release()
		}
	}

	attempt, err := s.activeAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.CurrentModuleID == nil || *attempt.CurrentModuleID != req.ModuleID {
		return nil, ErrModuleMismatch
	}

	scored, err := s.repo.ModuleResult().Exists(ctx, attempt.ID, req.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check module result: %w", err)
	}
	if scored {
		return nil, ErrModuleAlreadyScored
	}

	module, err := s.repo.Module().GetWithQuestions(ctx, req.ModuleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to load module: %w", err)
	}

	graded := gradeModule(attempt.ID, module, req.Answers)

	var nextDifficulty *models.ModuleDifficulty
	if module.Module == models.Module1 {
		d := NextDifficulty(graded.correct, graded.total)
		nextDifficulty = &d
	}

	next, err := s.resolveNextModule(ctx, attempt, module, nextDifficulty)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := &models.ModuleResult{
		AttemptID:            attempt.ID,
		ModuleID:             module.ID,
		Section:              module.Section,
		Module:               module.Module,
		Difficulty:           module.Difficulty,
		CorrectCount:         graded.correct,
		TotalCount:           graded.total,
		TimeSpentSeconds:     req.TimeSpentSeconds,
		NextModuleDifficulty: nextDifficulty,
		DomainBreakdown:      graded.breakdown,
		CompletedAt:          now,
	}

	completed := next == nil
	if completed {
		previous, err := s.repo.ModuleResult().GetByAttempt(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load module results: %w", err)
		}
		ComputeScoreCard(append(previous, result)).Apply(attempt)
		attempt.Status = models.AttemptCompleted
		attempt.CompletedAt = &now
		attempt.CurrentModuleID = nil
	} else {
		attempt.CurrentModuleID = &next.ID
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Answer().CreateBatch(ctx, tx, graded.answers); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}
		if err := s.repo.ModuleResult().Create(ctx, tx, result); err != nil {
			return fmt.Errorf("failed to save module result: %w", err)
		}
		if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.forgetModule(ctx, attempt.ID, module.ID)

	resp = &SubmitModuleResponse{
		Status:          attempt.Status,
		ModuleScore:     ModuleScore{Correct: graded.correct, Total: graded.total},
		Section:         module.Section,
		ModuleType:      module.Module,
		DomainBreakdown: graded.breakdown,
		QuestionResults: graded.results,
		TestCompleted:   completed,
		TotalScore:      attempt.TotalScore,
	}
	if next != nil {
		resp.NextModuleID = &next.ID
		resp.IsBreak = next.Section != module.Section
	}

	submitted := events.ModuleSubmittedEvent{
		AttemptID:        attempt.ID,
		ModuleID:         module.ID,
		UserID:           userID,
		Section:          string(module.Section),
		Module:           string(module.Module),
		Correct:          graded.correct,
		Total:            graded.total,
		TimeSpentSeconds: req.TimeSpentSeconds,
		NextModuleID:     resp.NextModuleID,
	}
	if nextDifficulty != nil {
		d := string(*nextDifficulty)
		submitted.NextModuleDifficulty = &d
	}
	s.publish(ctx, events.EventModuleSubmitted, submitted)

	if completed {
		s.publish(ctx, events.EventAttemptCompleted, events.AttemptCompletedEvent{
			AttemptID:            attempt.ID,
			TestID:               attempt.TestID,
			UserID:               userID,
			ReadingWritingScaled: attempt.ReadingWritingScaledScore,
			MathScaled:           attempt.MathScaledScore,
			TotalScore:           attempt.TotalScore,
			CompletedAt:          now,
		})
	}

	s.opLog.LogAuditEvent(ctx, AuditEvent{
		Action:       "submit_module",
		UserID:       userID,
		ResourceID:   attempt.ID,
		ResourceType: "attempt",
		Timestamp:    now,
		Metadata: map[string]interface{}{
			"module_id": module.ID,
			"correct":   graded.correct,
			"total":     graded.total,
			"completed": completed,
		},
	})

	return resp, nil
}

func (s *attemptService) Abandon(ctx context.Context, attemptID uint, userID string) (err error) {
	op := s.opLog.WithOperation(ctx, "abandon_attempt", userID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	attempt, err := s.activeAttempt(ctx, attemptID, userID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	attempt.Status = models.AttemptAbandoned
	attempt.CompletedAt = &now
	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		return fmt.Errorf("failed to abandon attempt: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, cache.AttemptModulesPattern(attempt.ID)); err != nil {
			s.logger.Warn("Failed to drop cached modules", "attempt_id", attempt.ID, "error", err)
		}
	}

	s.publish(ctx, events.EventAttemptAbandoned, events.AttemptAbandonedEvent{
		AttemptID:       attempt.ID,
		TestID:          attempt.TestID,
		UserID:          userID,
		CurrentModuleID: attempt.CurrentModuleID,
		AbandonedAt:     now,
	})
	return nil
}

func (s *attemptService) Get(ctx context.Context, attemptID uint, userID string) (*AttemptDetailResponse, error) {
	attempt, err := s.repo.Attempt().GetForUserWithResults(ctx, attemptID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	results := make([]*models.ModuleResult, len(attempt.ModuleResults))
	for i := range attempt.ModuleResults {
		results[i] = &attempt.ModuleResults[i]
	}
	out := toAttemptDetail(attempt, results)
	return &out, nil
}

func (s *attemptService) List(ctx context.Context, userID string, req *ListAttemptsRequest) (*AttemptListResponse, error) {
	if req == nil {
		req = &ListAttemptsRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	attempts, total, err := s.repo.Attempt().List(ctx, toAttemptFilters(userID, req))
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	ids := make([]uint, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	spent, err := s.repo.Attempt().TimeSpent(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum time spent: %w", err)
	}

	out := &AttemptListResponse{
		Attempts:   make([]AttemptResponse, 0, len(attempts)),
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(req.PageSize))),
	}
	for _, a := range attempts {
		out.Attempts = append(out.Attempts, toAttemptResponse(a, spent[a.ID]))
	}
	return out, nil
}

// ===== HELPERS =====

// activeAttempt loads the caller's attempt and requires it to be in
// progress.
func (s *attemptService) activeAttempt(ctx context.Context, attemptID uint, userID string) (*models.TestAttempt, error) {
	attempt, err := s.repo.Attempt().GetForUser(ctx, attemptID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrActiveAttemptNotFound
	}
	return attempt, nil
}

func (s *attemptService) forgetModule(ctx context.Context, attemptID, moduleID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.ModuleKey(attemptID, moduleID)); err != nil {
		s.logger.Warn("Failed to drop cached module", "attempt_id", attemptID, "module_id", moduleID, "error", err)
	}
}

// publish never fails the caller; the attempt state is already committed.
func (s *attemptService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewExamEvent(eventType, data, s.clock.Now())); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}

type gradedModule struct {
	answers   []*models.AttemptAnswer
	results   []QuestionResult
	breakdown []models.DomainStat
	correct   int
	total     int
}

// gradeModule scores submissions against the module's questions.
// Submissions for questions outside the module are ignored.
func gradeModule(attemptID uint, module *models.TestModule, submissions []AnswerSubmission) gradedModule {
	byQuestion := make(map[uint]AnswerSubmission, len(submissions))
	for _, sub := range submissions {
		byQuestion[sub.QuestionID] = sub
	}

	g := gradedModule{total: len(module.Questions)}
	domains := newDomainCounter()

	for i := range module.Questions {
		q := &module.Questions[i]
		sub, answered := byQuestion[q.ID]

		correct := answered && sub.Answer != nil && q.IsCorrect(*sub.Answer)
		if correct {
			g.correct++
		}
		domains.add(q.DomainName(), correct)

		accepted, _ := q.CorrectAnswers()
		result := QuestionResult{
			ID:             q.ID,
			QuestionNumber: q.QuestionNumber,
			IsCorrect:      correct,
			CorrectAnswer:  accepted,
			Domain:         q.DomainName(),
		}

		if answered {
			result.UserAnswer = sub.Answer
			g.answers = append(g.answers, &models.AttemptAnswer{
				AttemptID:        attemptID,
				ModuleID:         module.ID,
				QuestionID:       q.ID,
				Answer:           sub.Answer,
				IsCorrect:        correct,
				IsFlagged:        sub.IsFlagged,
				TimeSpentSeconds: sub.TimeSpentSeconds,
			})
		}
		g.results = append(g.results, result)
	}

	g.breakdown = domains.stats()
	return g
}
