package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

type TestScope string

const (
	ScopeFull         TestScope = "full"
	ScopeRWOnly       TestScope = "rw_only"
	ScopeMathOnly     TestScope = "math_only"
	ScopeSingleModule TestScope = "single_module"
)

// AttemptConfig is fixed when the attempt starts.
type AttemptConfig struct {
	TimeMultiplier   float64   `json:"time_multiplier"`
	Scope            TestScope `json:"scope"`
	SelectedModuleID *uint     `json:"selected_module_id,omitempty"`
	ModuleIDs        []uint    `json:"module_ids,omitempty"`
}

type TestAttempt struct {
	ID     uint          `json:"id" gorm:"primaryKey"`
	UserID string        `json:"user_id" gorm:"not null;size:255;index"`
	TestID uint          `json:"test_id" gorm:"not null;index"`
	Status AttemptStatus `json:"status" gorm:"not null;size:16;default:in_progress;index"`

	Config          datatypes.JSONType[AttemptConfig] `json:"-" gorm:"type:jsonb"`
	CurrentModuleID *uint                             `json:"current_module_id"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Scores, set on completion
	ReadingWritingRawScore    *int `json:"reading_writing_raw_score"`
	MathRawScore              *int `json:"math_raw_score"`
	ReadingWritingScaledScore *int `json:"reading_writing_scaled_score"`
	MathScaledScore           *int `json:"math_scaled_score"`
	TotalScore                *int `json:"total_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test          Test           `json:"test" gorm:"foreignKey:TestID"`
	Answers       []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
	ModuleResults []ModuleResult  `json:"module_results,omitempty" gorm:"foreignKey:AttemptID"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

func (a *TestAttempt) Settings() AttemptConfig {
	cfg := a.Config.Data()
	if cfg.TimeMultiplier <= 0 {
		cfg.TimeMultiplier = 1
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeFull
	}
	return cfg
}

func (a *TestAttempt) IsReviewable() bool {
	return a.Status == AttemptCompleted || a.Status == AttemptAbandoned
}

type AttemptAnswer struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	AttemptID        uint      `json:"attempt_id" gorm:"not null;index"`
	ModuleID         uint      `json:"module_id" gorm:"not null;index"`
	QuestionID       uint      `json:"question_id" gorm:"not null;index"`
	Answer           *string   `json:"answer" gorm:"size:255"`
	IsCorrect        bool      `json:"is_correct"`
	IsFlagged        bool      `json:"is_flagged"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// DomainStat is the per-domain tally stored with each module result.
type DomainStat struct {
	Domain   string  `json:"domain"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

type ModuleResult struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	AttemptID  uint             `json:"attempt_id" gorm:"not null;index"`
	ModuleID   uint             `json:"module_id" gorm:"not null;index"`
	Section    SATSection       `json:"section" gorm:"not null;size:32"`
	Module     SATModule        `json:"module" gorm:"not null;size:16"`
	Difficulty ModuleDifficulty `json:"difficulty" gorm:"not null;size:16"`

	CorrectCount     int `json:"correct_count"`
	TotalCount       int `json:"total_count"`
	TimeSpentSeconds int `json:"time_spent_seconds"`

	// Routing decision taken after a module_1
	NextModuleDifficulty *ModuleDifficulty `json:"next_module_difficulty" gorm:"size:16"`

	DomainBreakdown datatypes.JSONSlice[DomainStat] `json:"domain_breakdown" gorm:"type:jsonb"`
	CompletedAt     time.Time                       `json:"completed_at"`
}

func (ModuleResult) TableName() string {
	return "module_results"
}
