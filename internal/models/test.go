package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SATSection string

const (
	SectionReadingWriting SATSection = "reading_writing"
	SectionMath           SATSection = "math"
)

// Order is the section's position in a full test.
func (s SATSection) Order() int {
	switch s {
	case SectionReadingWriting:
		return 0
	case SectionMath:
		return 1
	}
	return 99
}

type SATModule string

const (
	Module1 SATModule = "module_1"
	Module2 SATModule = "module_2"
)

type ModuleDifficulty string

const (
	DifficultyStandard ModuleDifficulty = "standard"
	DifficultyEasier   ModuleDifficulty = "easier"
	DifficultyHarder   ModuleDifficulty = "harder"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionGridIn         QuestionType = "grid_in"
)

type Test struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index"`
	Description *string `json:"description" gorm:"type:text"`
	IsPublished bool    `json:"is_published" gorm:"default:false;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Modules []TestModule `json:"modules,omitempty" gorm:"foreignKey:TestID"`
}

func (Test) TableName() string {
	return "tests"
}

// TestModule is one timed block of a test. Reading/writing and math each
// have a module_1 and one or more module_2 variants by difficulty.
type TestModule struct {
	ID               uint             `json:"id" gorm:"primaryKey"`
	TestID           uint             `json:"test_id" gorm:"not null;index"`
	Section          SATSection       `json:"section" gorm:"not null;size:32"`
	Module           SATModule        `json:"module" gorm:"not null;size:16"`
	Difficulty       ModuleDifficulty `json:"difficulty" gorm:"not null;size:16;default:standard"`
	TimeLimitMinutes int              `json:"time_limit_minutes" gorm:"not null"`
	OrderIndex       int              `json:"order_index" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ModuleID"`
}

func (TestModule) TableName() string {
	return "test_modules"
}

type Passage struct {
	ID      uint    `json:"id" gorm:"primaryKey"`
	Title   *string `json:"title" gorm:"size:300"`
	Content string  `json:"content" gorm:"type:text;not null"`
	Source  *string `json:"source" gorm:"size:300"`
}

func (Passage) TableName() string {
	return "passages"
}

type Question struct {
	ID               uint         `json:"id" gorm:"primaryKey"`
	ModuleID         uint         `json:"module_id" gorm:"not null;index"`
	QuestionNumber   int          `json:"question_number" gorm:"not null"`
	QuestionText     string       `json:"question_text" gorm:"type:text;not null"`
	QuestionType     QuestionType `json:"question_type" gorm:"not null;size:32"`
	QuestionImageURL *string      `json:"question_image_url" gorm:"size:500"`
	PassageID        *uint        `json:"passage_id" gorm:"index"`

	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`        // []Option
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb"` // []string, every acceptable answer

	Explanation *string `json:"explanation" gorm:"type:text"`
	Domain      *string `json:"domain" gorm:"size:64;index"`
	Difficulty  *string `json:"difficulty" gorm:"size:16"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Passage *Passage `json:"passage,omitempty" gorm:"foreignKey:PassageID"`
}

func (Question) TableName() string {
	return "questions"
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (q *Question) OptionList() ([]Option, error) {
	var options []Option
	if len(q.Options) == 0 {
		return options, nil
	}
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

func (q *Question) CorrectAnswers() ([]string, error) {
	var answers []string
	if len(q.CorrectAnswer) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(q.CorrectAnswer, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// IsCorrect reports whether answer matches any accepted answer. A malformed
// answer key never matches.
func (q *Question) IsCorrect(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	accepted, err := q.CorrectAnswers()
	if err != nil {
		return false
	}
	for _, a := range accepted {
		if a == answer {
			return true
		}
	}
	return false
}

func (q *Question) DomainName() string {
	if q.Domain == nil {
		return ""
	}
	return *q.Domain
}
