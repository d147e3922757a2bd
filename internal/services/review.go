package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
)

func (s *attemptService) Review(ctx context.Context, attemptID uint, userID string) (resp *ReviewResponse, err error) {
	op := s.opLog.WithOperation(ctx, "review_attempt", userID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	attempt, err := s.repo.Attempt().GetForUserWithResults(ctx, attemptID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.IsReviewable() {
		return nil, ErrAttemptNotReviewable
	}

	results := make([]*models.ModuleResult, len(attempt.ModuleResults))
	for i := range attempt.ModuleResults {
		results[i] = &attempt.ModuleResults[i]
	}

	// Modules the student actually saw: every scored one, plus the module
	// open when an attempt was abandoned.
	var moduleIDs []uint
	seen := map[uint]bool{}
	for _, r := range results {
		if !seen[r.ModuleID] {
			seen[r.ModuleID] = true
			moduleIDs = append(moduleIDs, r.ModuleID)
		}
	}
	if attempt.CurrentModuleID != nil && !seen[*attempt.CurrentModuleID] {
		moduleIDs = append(moduleIDs, *attempt.CurrentModuleID)
	}

	modules, err := s.repo.Module().GetManyWithQuestions(ctx, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	sortModules(modules)

	answers, err := s.repo.Answer().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	byQuestion := make(map[uint]*models.AttemptAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	resp = &ReviewResponse{
		Attempt: toAttemptDetail(attempt, results),
		Modules: make([]ReviewModule, 0, len(modules)),
	}
	domains := newDomainCounter()

	for _, m := range modules {
		rm := ReviewModule{
			ID:         m.ID,
			Section:    m.Section,
			Module:     m.Module,
			Difficulty: m.Difficulty,
			Questions:  make([]ReviewQuestion, 0, len(m.Questions)),
		}
		for i := range m.Questions {
			q := &m.Questions[i]
			accepted, _ := q.CorrectAnswers()
			rq := ReviewQuestion{
				QuestionResponse: toQuestionResponse(q),
				CorrectAnswer:    accepted,
				Explanation:      q.Explanation,
			}

			correct := false
			if a, ok := byQuestion[q.ID]; ok {
				correct = a.IsCorrect
				rq.UserAnswer = a.Answer
				rq.IsCorrect = &a.IsCorrect
				rq.IsFlagged = a.IsFlagged
				spent := a.TimeSpentSeconds
				rq.TimeSpentSeconds = &spent
			}

			resp.Summary.TotalQuestions++
			if correct {
				resp.Summary.TotalCorrect++
			}
			domains.add(q.DomainName(), correct)
			rm.Questions = append(rm.Questions, rq)
		}
		resp.Modules = append(resp.Modules, rm)
	}

	resp.Summary.Accuracy = accuracy(resp.Summary.TotalCorrect, resp.Summary.TotalQuestions)
	resp.Summary.ByDomain = domains.stats()
	return resp, nil
}
