package gateway

import "time"

type Section string

const (
	SectionReadingWriting Section = "reading_writing"
	SectionMath           Section = "math"
)

type ModuleType string

const (
	ModuleOne ModuleType = "module_1"
	ModuleTwo ModuleType = "module_2"
)

type Difficulty string

const (
	DifficultyStandard Difficulty = "standard"
	DifficultyEasier   Difficulty = "easier"
	DifficultyHarder   Difficulty = "harder"
)

// Module is a timed, ordered block of questions. Immutable once fetched.
type Module struct {
	ID               uint       `json:"id"`
	Section          Section    `json:"section"`
	ModuleType       ModuleType `json:"module"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Questions        []Question `json:"questions"`
}

// TimeLimit returns the module's countdown length.
func (m *Module) TimeLimit() time.Duration {
	return time.Duration(m.TimeLimitMinutes) * time.Minute
}

// Question returns the question at index i, or nil when out of range.
func (m *Module) Question(i int) *Question {
	if m == nil || i < 0 || i >= len(m.Questions) {
		return nil
	}
	return &m.Questions[i]
}

type Question struct {
	ID         uint     `json:"id"`
	Number     int      `json:"question_number"`
	Text       string   `json:"question_text"`
	Type       string   `json:"question_type"`
	ImageURL   *string  `json:"question_image_url,omitempty"`
	Passage    *Passage `json:"passage,omitempty"`
	Options    []Option `json:"options,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// HasOption reports whether the question offers an option with the given id.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Passage struct {
	ID      uint   `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// AnswerPayload is one question's entry in a module submission. Answer is nil
// for unanswered questions.
type AnswerPayload struct {
	QuestionID       uint    `json:"question_id"`
	Answer           *string `json:"answer"`
	IsFlagged        bool    `json:"is_flagged"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
}

type SubmitModuleRequest struct {
	ModuleID         uint            `json:"module_id"`
	Answers          []AnswerPayload `json:"answers"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
}

// SubmitOutcome is the tagged result of a module submission: either
// TestCompleted or NextModule.
type SubmitOutcome interface {
	outcome()
}

type TestCompleted struct {
	TotalScore *int
}

// NextModule names the module to load next. Section and ModuleType describe
// the module that was just submitted.
type NextModule struct {
	ModuleID   uint
	Section    Section
	ModuleType ModuleType
	IsBreak    bool
}

func (TestCompleted) outcome() {}
func (NextModule) outcome()    {}

// submitModuleResponse is the server's wire shape.
type submitModuleResponse struct {
	Status       string      `json:"status"`
	TestComplete bool        `json:"test_completed"`
	NextModuleID *uint       `json:"next_module_id"`
	Section      Section     `json:"section"`
	ModuleType   ModuleType  `json:"module_type"`
	IsBreak      *bool       `json:"is_break"`
	TotalScore   *int        `json:"total_score"`
	ModuleScore  *scoreBlock `json:"module_score,omitempty"`
}

type scoreBlock struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// toOutcome converts the wire response into the tagged outcome. When the
// server omits is_break the submitted module's position decides: the end of
// reading/writing module 2 is the section break.
func (r *submitModuleResponse) toOutcome() (SubmitOutcome, error) {
	if r.TestComplete {
		return TestCompleted{TotalScore: r.TotalScore}, nil
	}
	if r.NextModuleID == nil || *r.NextModuleID == 0 {
		return nil, ErrNoCurrentModule
	}
	isBreak := r.Section == SectionReadingWriting && r.ModuleType == ModuleTwo
	if r.IsBreak != nil {
		isBreak = *r.IsBreak
	}
	return NextModule{
		ModuleID:   *r.NextModuleID,
		Section:    r.Section,
		ModuleType: r.ModuleType,
		IsBreak:    isBreak,
	}, nil
}
