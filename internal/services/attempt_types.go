package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"github.com/SAP-F-2025/exam-delivery-service/internal/validator"
)

// AttemptService drives one student's attempt from start to review.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, user *UserInfo) (*AttemptResponse, error)
	GetCurrentModule(ctx context.Context, attemptID uint, userID string) (*ModuleResponse, error)
	SubmitModule(ctx context.Context, attemptID uint, req *SubmitModuleRequest, userID string) (*SubmitModuleResponse, error)
	Abandon(ctx context.Context, attemptID uint, userID string) error
	Get(ctx context.Context, attemptID uint, userID string) (*AttemptDetailResponse, error)
	List(ctx context.Context, userID string, req *ListAttemptsRequest) (*AttemptListResponse, error)
	Review(ctx context.Context, attemptID uint, userID string) (*ReviewResponse, error)
	ExportReview(ctx context.Context, attemptID uint, userID string) ([]byte, error)
}

// UserInfo is the authenticated caller as seen by the service layer.
type UserInfo struct {
	ID          string
	Name        string
	DisplayName string
	Email       string
}

// ===== REQUESTS =====

type StartAttemptRequest struct {
	TestID uint                  `json:"test_id" validate:"required"`
	Config *AttemptConfigRequest `json:"config" validate:"omitempty"`
}

type AttemptConfigRequest struct {
	TimeMultiplier   float64          `json:"time_multiplier" validate:"omitempty,time_multiplier"`
	Scope            models.TestScope `json:"scope" validate:"omitempty,test_scope"`
	SelectedModuleID *uint            `json:"selected_module_id" validate:"required_if=Scope single_module"`
}

type AnswerSubmission struct {
	QuestionID       uint    `json:"question_id" validate:"required"`
	Answer           *string `json:"answer"`
	IsFlagged        bool    `json:"is_flagged"`
	TimeSpentSeconds int     `json:"time_spent_seconds" validate:"gte=0"`
}

type SubmitModuleRequest struct {
	ModuleID         uint               `json:"module_id" validate:"required"`
	Answers          []AnswerSubmission `json:"answers" validate:"dive"`
	TimeSpentSeconds int                `json:"time_spent_seconds" validate:"gte=0"`
}

// BusinessRules rejects repeated questions and oversize answers.
func (r *SubmitModuleRequest) BusinessRules(v *validator.BusinessValidator) validator.ValidationErrors {
	ids := make([]uint, len(r.Answers))
	for i, a := range r.Answers {
		ids[i] = a.QuestionID
	}
	errs := v.UniqueIDs("answers", ids)
	for i, a := range r.Answers {
		if e := v.AnswerLength(fmt.Sprintf("answers[%d].answer", i), a.Answer); e != nil {
			errs = append(errs, *e)
		}
	}
	return errs
}

type ListAttemptsRequest struct {
	Status   models.AttemptStatus `form:"status" json:"status" validate:"omitempty,attempt_status"`
	Page     int                  `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize int                  `form:"page_size" json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ===== RESPONSES =====

type AttemptResponse struct {
	ID               uint                 `json:"id"`
	TestID           uint                 `json:"test_id"`
	TestTitle        string               `json:"test_title"`
	Status           models.AttemptStatus `json:"status"`
	Scope            models.TestScope     `json:"scope"`
	TimeMultiplier   float64              `json:"time_multiplier"`
	CurrentModuleID  *uint                `json:"current_module_id"`
	StartedAt        time.Time            `json:"started_at"`
	CompletedAt      *time.Time           `json:"completed_at"`
	TotalScore       *int                 `json:"total_score"`
	RWScaledScore    *int                 `json:"reading_writing_scaled_score"`
	MathScaledScore  *int                 `json:"math_scaled_score"`
	TimeSpentSeconds int                  `json:"time_spent_seconds"`
}

type ModuleResultResponse struct {
	ModuleID             uint                     `json:"module_id"`
	Section              models.SATSection        `json:"section"`
	Module               models.SATModule         `json:"module"`
	Difficulty           models.ModuleDifficulty  `json:"difficulty"`
	CorrectCount         int                      `json:"correct_count"`
	TotalCount           int                      `json:"total_count"`
	TimeSpentSeconds     int                      `json:"time_spent_seconds"`
	NextModuleDifficulty *models.ModuleDifficulty `json:"next_module_difficulty"`
	DomainBreakdown      []models.DomainStat      `json:"domain_breakdown"`
	CompletedAt          time.Time                `json:"completed_at"`
}

type AttemptDetailResponse struct {
	AttemptResponse
	RWRawScore    *int                   `json:"reading_writing_raw_score"`
	MathRawScore  *int                   `json:"math_raw_score"`
	ModuleResults []ModuleResultResponse `json:"module_results"`
}

type AttemptListResponse struct {
	Attempts   []AttemptResponse `json:"attempts"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

type PassageResponse struct {
	ID      uint   `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// QuestionResponse is a question as shown while testing. It never carries
// the answer key.
type QuestionResponse struct {
	ID               uint             `json:"id"`
	QuestionNumber   int              `json:"question_number"`
	QuestionText     string           `json:"question_text"`
	QuestionType     string           `json:"question_type"`
	QuestionImageURL *string          `json:"question_image_url,omitempty"`
	Passage          *PassageResponse `json:"passage,omitempty"`
	Options          []models.Option  `json:"options,omitempty"`
	Domain           string           `json:"domain,omitempty"`
	Difficulty       string           `json:"difficulty,omitempty"`
}

type ModuleResponse struct {
	ID               uint                    `json:"id"`
	TestID           uint                    `json:"test_id"`
	Section          models.SATSection       `json:"section"`
	Module           models.SATModule        `json:"module"`
	Difficulty       models.ModuleDifficulty `json:"difficulty"`
	TimeLimitMinutes int                     `json:"time_limit_minutes"`
	OrderIndex       int                     `json:"order_index"`
	QuestionCount    int                     `json:"question_count"`
	Questions        []QuestionResponse      `json:"questions"`
}

type ModuleScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

type QuestionResult struct {
	ID             uint     `json:"id"`
	QuestionNumber int      `json:"question_number"`
	IsCorrect      bool     `json:"is_correct"`
	CorrectAnswer  []string `json:"correct_answer"`
	UserAnswer     *string  `json:"user_answer"`
	Domain         string   `json:"domain,omitempty"`
}

// SubmitModuleResponse describes the graded module. Section and ModuleType
// belong to the submitted module; NextModuleID is set unless the test is
// complete.
type SubmitModuleResponse struct {
	Status          models.AttemptStatus `json:"status"`
	ModuleScore     ModuleScore          `json:"module_score"`
	Section         models.SATSection    `json:"section"`
	ModuleType      models.SATModule     `json:"module_type"`
	DomainBreakdown []models.DomainStat  `json:"domain_breakdown"`
	QuestionResults []QuestionResult     `json:"question_results"`
	NextModuleID    *uint                `json:"next_module_id"`
	IsBreak         bool                 `json:"is_break"`
	TestCompleted   bool                 `json:"test_completed"`
	TotalScore      *int                 `json:"total_score"`
}

type ReviewQuestion struct {
	QuestionResponse
	CorrectAnswer    []string `json:"correct_answer"`
	Explanation      *string  `json:"explanation"`
	UserAnswer       *string  `json:"user_answer"`
	IsCorrect        *bool    `json:"is_correct"`
	IsFlagged        bool     `json:"is_flagged"`
	TimeSpentSeconds *int     `json:"time_spent_seconds"`
}

type ReviewModule struct {
	ID         uint                    `json:"id"`
	Section    models.SATSection       `json:"section"`
	Module     models.SATModule        `json:"module"`
	Difficulty models.ModuleDifficulty `json:"difficulty"`
	Questions  []ReviewQuestion        `json:"questions"`
}

type ReviewSummary struct {
	TotalCorrect   int                 `json:"total_correct"`
	TotalQuestions int                 `json:"total_questions"`
	Accuracy       float64             `json:"accuracy"`
	ByDomain       []models.DomainStat `json:"by_domain"`
}

type ReviewResponse struct {
	Attempt AttemptDetailResponse `json:"attempt"`
	Modules []ReviewModule        `json:"modules"`
	Summary ReviewSummary         `json:"summary"`
}

// ===== CONVERTERS =====

func toAttemptResponse(a *models.TestAttempt, timeSpent int) AttemptResponse {
	cfg := a.Settings()
	return AttemptResponse{
		ID:               a.ID,
		TestID:           a.TestID,
		TestTitle:        a.Test.Title,
		Status:           a.Status,
		Scope:            cfg.Scope,
		TimeMultiplier:   cfg.TimeMultiplier,
		CurrentModuleID:  a.CurrentModuleID,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
		TotalScore:       a.TotalScore,
		RWScaledScore:    a.ReadingWritingScaledScore,
		MathScaledScore:  a.MathScaledScore,
		TimeSpentSeconds: timeSpent,
	}
}

func toAttemptDetail(a *models.TestAttempt, results []*models.ModuleResult) AttemptDetailResponse {
	timeSpent := 0
	out := make([]ModuleResultResponse, 0, len(results))
	for _, r := range results {
		timeSpent += r.TimeSpentSeconds
		out = append(out, ModuleResultResponse{
			ModuleID:             r.ModuleID,
			Section:              r.Section,
			Module:               r.Module,
			Difficulty:           r.Difficulty,
			CorrectCount:         r.CorrectCount,
			TotalCount:           r.TotalCount,
			TimeSpentSeconds:     r.TimeSpentSeconds,
			NextModuleDifficulty: r.NextModuleDifficulty,
			DomainBreakdown:      r.DomainBreakdown,
			CompletedAt:          r.CompletedAt,
		})
	}
	return AttemptDetailResponse{
		AttemptResponse: toAttemptResponse(a, timeSpent),
		RWRawScore:      a.ReadingWritingRawScore,
		MathRawScore:    a.MathRawScore,
		ModuleResults:   out,
	}
}

func toQuestionResponse(q *models.Question) QuestionResponse {
	options, _ := q.OptionList()
	resp := QuestionResponse{
		ID:               q.ID,
		QuestionNumber:   q.QuestionNumber,
		QuestionText:     q.QuestionText,
		QuestionType:     string(q.QuestionType),
		QuestionImageURL: q.QuestionImageURL,
		Options:          options,
		Domain:           q.DomainName(),
	}
	if q.Difficulty != nil {
		resp.Difficulty = *q.Difficulty
	}
	if q.Passage != nil {
		resp.Passage = &PassageResponse{ID: q.Passage.ID, Content: q.Passage.Content}
		if q.Passage.Title != nil {
			resp.Passage.Title = *q.Passage.Title
		}
	}
	return resp
}

// toModuleResponse scales the time limit by the attempt's multiplier,
// truncating to whole minutes.
func toModuleResponse(m *models.TestModule, multiplier float64) *ModuleResponse {
	questions := make([]QuestionResponse, 0, len(m.Questions))
	for i := range m.Questions {
		questions = append(questions, toQuestionResponse(&m.Questions[i]))
	}
	return &ModuleResponse{
		ID:               m.ID,
		TestID:           m.TestID,
		Section:          m.Section,
		Module:           m.Module,
		Difficulty:       m.Difficulty,
		TimeLimitMinutes: int(float64(m.TimeLimitMinutes) * multiplier),
		OrderIndex:       m.OrderIndex,
		QuestionCount:    len(questions),
		Questions:        questions,
	}
}

func toAttemptFilters(userID string, req *ListAttemptsRequest) repositories.AttemptFilters {
	return repositories.AttemptFilters{
		UserID:    userID,
		Status:    req.Status,
		Limit:     req.PageSize,
		Offset:    (req.Page - 1) * req.PageSize,
		SortBy:    "started_at",
		SortOrder: "desc",
	}
}
