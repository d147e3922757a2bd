package gateway

import (
	"context"
	"sync"
)

// Route decides a module's successor by raw accuracy. A nil route on a module
// ends the test after it.
type Route struct {
	Threshold float64
	Harder    uint
	Easier    uint
	IsBreak   bool
}

// Stub is an in-memory gateway with adaptive routing for tests.
type Stub struct {
	mu          sync.Mutex
	modules     map[uint]*Module
	keys        map[uint]string
	routes      map[uint]*Route
	current     map[uint]uint
	first       uint
	getErr      error
	submitErr   error
	pingErr     error
	fetches     int
	submissions []SubmitModuleRequest
	// OnFetch and OnSubmit, when set, run before the request is served.
	OnFetch  func()
	OnSubmit func()
}

func NewStub() *Stub {
	return &Stub{
		modules: make(map[uint]*Module),
		keys:    make(map[uint]string),
		routes:  make(map[uint]*Route),
		current: make(map[uint]uint),
	}
}

// AddModule registers a module with its answer key. The first module added is
// where every attempt starts.
func (s *Stub) AddModule(m *Module, keys map[uint]string, route *Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[m.ID] = m
	for qid, k := range keys {
		s.keys[qid] = k
	}
	if route != nil {
		s.routes[m.ID] = route
	}
	if s.first == 0 {
		s.first = m.ID
	}
}

func (s *Stub) FailFetch(err error) {
	s.mu.Lock()
	s.getErr = err
	s.mu.Unlock()
}

func (s *Stub) FailSubmit(err error) {
	s.mu.Lock()
	s.submitErr = err
	s.mu.Unlock()
}

func (s *Stub) FailPing(err error) {
	s.mu.Lock()
	s.pingErr = err
	s.mu.Unlock()
}

func (s *Stub) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *Stub) Submissions() []SubmitModuleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SubmitModuleRequest, len(s.submissions))
	copy(out, s.submissions)
	return out
}

func (s *Stub) GetCurrentModule(ctx context.Context, attemptID uint) (*Module, error) {
	if s.OnFetch != nil {
		s.OnFetch()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.getErr != nil {
		return nil, s.getErr
	}
	id, ok := s.current[attemptID]
	if !ok {
		id = s.first
		s.current[attemptID] = id
	}
	m, ok := s.modules[id]
	if !ok || id == 0 {
		return nil, ErrNoCurrentModule
	}
	return m, nil
}

func (s *Stub) SubmitModule(ctx context.Context, attemptID uint, req *SubmitModuleRequest) (SubmitOutcome, error) {
	if s.OnSubmit != nil {
		s.OnSubmit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submissions = append(s.submissions, *req)

	m, ok := s.modules[req.ModuleID]
	if !ok {
		return nil, &StatusError{Code: 400, Message: "module does not match current module"}
	}

	route := s.routes[m.ID]
	if route == nil {
		s.current[attemptID] = 0
		return TestCompleted{}, nil
	}

	next := route.Easier
	if s.accuracy(m, req) >= route.Threshold {
		next = route.Harder
	}
	s.current[attemptID] = next
	return NextModule{
		ModuleID:   next,
		Section:    m.Section,
		ModuleType: m.ModuleType,
		IsBreak:    route.IsBreak,
	}, nil
}

func (s *Stub) AbandonAttempt(ctx context.Context, attemptID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[attemptID] = 0
	return nil
}

func (s *Stub) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *Stub) accuracy(m *Module, req *SubmitModuleRequest) float64 {
	if len(m.Questions) == 0 {
		return 0
	}
	correct := 0
	for _, a := range req.Answers {
		if a.Answer != nil && s.keys[a.QuestionID] == *a.Answer {
			correct++
		}
	}
	return float64(correct) / float64(len(m.Questions))
}
