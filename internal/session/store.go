package session

import (
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/gateway"
)

// Store is the single source of truth for the active module: answers, flags,
// countdown, question index and per-question time. All writers go through its
// methods.
type Store struct {
	mu        sync.RWMutex
	state     State
	module    *gateway.Module
	moduleID  uint
	answers   map[uint]string
	flags     map[uint]struct{}
	ledger    map[uint]time.Duration
	index     int
	countdown int
}

func NewStore() *Store {
	return &Store{
		answers: make(map[uint]string),
		flags:   make(map[uint]struct{}),
		ledger:  make(map[uint]time.Duration),
	}
}

func (s *Store) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetModule loads m and restarts the countdown. Answers, flags, time and the
// question index survive when m has the identity of the last loaded module.
// It reports whether that per-module state was reset.
func (s *Store) SetModule(m *gateway.Module) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.module = m
	s.countdown = int(m.TimeLimit() / time.Second)
	if m.ID == s.moduleID {
		if s.index >= len(m.Questions) {
			s.index = 0
		}
		return false
	}

	s.moduleID = m.ID
	s.answers = make(map[uint]string)
	s.flags = make(map[uint]struct{})
	s.ledger = make(map[uint]time.Duration)
	s.index = 0
	return true
}

// ClearModule drops the module reference so readers show a loading view.
// Answers and flags are left for the next SetModule to decide.
func (s *Store) ClearModule() {
	s.mu.Lock()
	s.module = nil
	s.mu.Unlock()
}

func (s *Store) Module() *gateway.Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.module
}

// SetAnswer records value for a question. An empty value clears the answer.
func (s *Store) SetAnswer(questionID uint, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.answers, questionID)
		return
	}
	s.answers[questionID] = value
}

func (s *Store) Answer(questionID uint) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.answers[questionID]
	return v, ok
}

// ToggleFlag flips the review flag and returns the new value.
func (s *Store) ToggleFlag(questionID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[questionID]; ok {
		delete(s.flags, questionID)
		return false
	}
	s.flags[questionID] = struct{}{}
	return true
}

func (s *Store) IsFlagged(questionID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.flags[questionID]
	return ok
}

// SetQuestionIndex moves to question i, clamped to the module bounds.
func (s *Store) SetQuestionIndex(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	if s.module != nil {
		n = len(s.module.Questions)
	}
	switch {
	case n == 0:
		i = 0
	case i < 0:
		i = 0
	case i > n-1:
		i = n - 1
	}
	s.index = i
	return i
}

func (s *Store) QuestionIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// TickTimer takes one second off the countdown while the session is
// answering or reviewing. It never goes below zero.
func (s *Store) TickTimer() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown > 0 && s.state.Counting() {
		s.countdown--
	}
	return s.countdown
}

func (s *Store) Countdown() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countdown
}

// AddTime credits d of visibility to a question.
func (s *Store) AddTime(questionID uint, d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.ledger[questionID] += d
	s.mu.Unlock()
}

func (s *Store) TimeSpent(questionID uint) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger[questionID]
}

// ResetExam drops everything, including the remembered module identity.
func (s *Store) ResetExam() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoading
	s.module = nil
	s.moduleID = 0
	s.answers = make(map[uint]string)
	s.flags = make(map[uint]struct{})
	s.ledger = make(map[uint]time.Duration)
	s.index = 0
	s.countdown = 0
}

// ReviewItem summarizes one question for the review screen.
type ReviewItem struct {
	Index      int
	QuestionID uint
	Number     int
	Answered   bool
	Flagged    bool
}

// Snapshot is a consistent copy of the store for readers.
type Snapshot struct {
	State         State
	Module        *gateway.Module
	QuestionIndex int
	Countdown     int
	Answers       map[uint]string
	Answered      int
	Flagged       int
	Items         []ReviewItem
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:         s.state,
		Module:        s.module,
		QuestionIndex: s.index,
		Countdown:     s.countdown,
		Answers:       make(map[uint]string, len(s.answers)),
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}
	if s.module == nil {
		return snap
	}
	snap.Items = make([]ReviewItem, len(s.module.Questions))
	for i, q := range s.module.Questions {
		_, answered := s.answers[q.ID]
		_, flagged := s.flags[q.ID]
		if answered {
			snap.Answered++
		}
		if flagged {
			snap.Flagged++
		}
		snap.Items[i] = ReviewItem{
			Index:      i,
			QuestionID: q.ID,
			Number:     q.Number,
			Answered:   answered,
			Flagged:    flagged,
		}
	}
	return snap
}

// payload builds the submission entries for every question of the loaded
// module, in module order.
func (s *Store) payload() *gateway.SubmitModuleRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := &gateway.SubmitModuleRequest{ModuleID: s.module.ID}
	req.Answers = make([]gateway.AnswerPayload, 0, len(s.module.Questions))
	for _, q := range s.module.Questions {
		entry := gateway.AnswerPayload{
			QuestionID:       q.ID,
			TimeSpentSeconds: int(s.ledger[q.ID] / time.Second),
		}
		if v, ok := s.answers[q.ID]; ok {
			v := v
			entry.Answer = &v
		}
		_, entry.IsFlagged = s.flags[q.ID]
		req.Answers = append(req.Answers, entry)
	}
	spent := int(s.module.TimeLimit()/time.Second) - s.countdown
	if spent < 0 {
		spent = 0
	}
	req.TimeSpentSeconds = spent
	return req
}
