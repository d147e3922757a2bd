package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of exam lifecycle events
type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventModuleSubmitted  EventType = "module.submitted"
	EventAttemptCompleted EventType = "attempt.completed"
	EventAttemptAbandoned EventType = "attempt.abandoned"
)

const (
	eventSource  = "exam-delivery-service"
	eventVersion = "1.0"
)

// ExamEvent is the envelope for every published event
type ExamEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type AttemptStartedEvent struct {
	AttemptID      uint    `json:"attempt_id"`
	TestID         uint    `json:"test_id"`
	UserID         string  `json:"user_id"`
	Scope          string  `json:"scope"`
	TimeMultiplier float64 `json:"time_multiplier"`
	FirstModuleID  uint    `json:"first_module_id"`
}

type ModuleSubmittedEvent struct {
	AttemptID            uint    `json:"attempt_id"`
	ModuleID             uint    `json:"module_id"`
	UserID               string  `json:"user_id"`
	Section              string  `json:"section"`
	Module               string  `json:"module"`
	Correct              int     `json:"correct"`
	Total                int     `json:"total"`
	TimeSpentSeconds     int     `json:"time_spent_seconds"`
	NextModuleDifficulty *string `json:"next_module_difficulty,omitempty"`
	NextModuleID         *uint   `json:"next_module_id,omitempty"`
}

type AttemptCompletedEvent struct {
	AttemptID            uint      `json:"attempt_id"`
	TestID               uint      `json:"test_id"`
	UserID               string    `json:"user_id"`
	ReadingWritingScaled *int      `json:"reading_writing_scaled_score,omitempty"`
	MathScaled           *int      `json:"math_scaled_score,omitempty"`
	TotalScore           *int      `json:"total_score,omitempty"`
	CompletedAt          time.Time `json:"completed_at"`
}

type AttemptAbandonedEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	TestID          uint      `json:"test_id"`
	UserID          string    `json:"user_id"`
	CurrentModuleID *uint     `json:"current_module_id,omitempty"`
	AbandonedAt     time.Time `json:"abandoned_at"`
}

// NewExamEvent wraps data in a fresh envelope stamped at now.
func NewExamEvent(eventType EventType, data interface{}, now time.Time) *ExamEvent {
	return &ExamEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: now.UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}
