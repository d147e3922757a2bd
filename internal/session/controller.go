package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/gateway"
	"github.com/jonboulle/clockwork"
)

// Trigger names what started a submission.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerExpiry Trigger = "expiry"
)

const DefaultBreakDuration = 10 * time.Minute

type Config struct {
	AttemptID     uint
	Gateway       gateway.Gateway
	Store         *Store
	Clock         clockwork.Clock
	Logger        *slog.Logger
	BreakDuration time.Duration
	Warnings      []int
}

// BreakInfo describes the section break in progress.
type BreakInfo struct {
	NextModuleID    uint
	PreviousSection gateway.Section
	Duration        int
	Remaining       int
}

// Result describes how the session ended.
type Result struct {
	Completed  bool
	Exited     bool
	TotalScore *int
}

// Controller drives one attempt through its modules. It owns the timer and
// decides when to call the gateway; every piece of module state lives in the
// Store.
type Controller struct {
	attemptID     uint
	gw            gateway.Gateway
	store         *Store
	clock         clockwork.Clock
	logger        *slog.Logger
	ticker        *Ticker
	acc           *Accumulator
	warnings      []int
	breakDuration int

	mu        sync.Mutex
	baseCtx   context.Context
	epoch     uint64
	expected  uint
	online    bool
	closed    bool
	resume    State
	deferred  bool
	brk       *BreakInfo
	result    *Result
	err       error
	listeners []Listener
	pending   []Event
}

func NewController(cfg Config) *Controller {
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	breakDuration := cfg.BreakDuration
	if breakDuration <= 0 {
		breakDuration = DefaultBreakDuration
	}
	warnings := cfg.Warnings
	if warnings == nil {
		warnings = DefaultWarnings
	}

	return &Controller{
		attemptID:     cfg.AttemptID,
		gw:            cfg.Gateway,
		store:         store,
		clock:         clock,
		logger:        logger.With("component", "session_controller", "attempt_id", cfg.AttemptID),
		ticker:        NewTicker(clock, time.Second),
		acc:           NewAccumulator(store),
		warnings:      warnings,
		breakDuration: int(breakDuration / time.Second),
		baseCtx:       context.Background(),
		online:        true,
	}
}

// Subscribe registers l for presentation events.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *Controller) Store() *Store {
	return c.store
}

// Start mounts the controller and loads the attempt's current module. ctx
// also bounds gateway calls started by the timer.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.unlock()
		return ErrClosed
	}
	c.baseCtx = ctx
	c.expected = 0
	c.err = nil
	c.setState(StateLoading)
	c.unlock()

	return c.load(ctx)
}

// Close unmounts the controller. The store is kept so a new controller can
// resume the same module; late gateway responses are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.epoch++
	c.ticker.Stop()
	c.acc.Stop()
	c.unlock()
}

// ===== LOADING =====

func (c *Controller) load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.unlock()
		return ErrClosed
	}
	if c.state() != StateLoading {
		c.unlock()
		return ErrInvalidState
	}
	c.epoch++
	epoch := c.epoch
	c.unlock()

	module, err := c.gw.GetCurrentModule(ctx, c.attemptID)

	c.mu.Lock()
	defer c.unlock()

	if epoch != c.epoch || c.state() != StateLoading {
		c.logger.Info("Discarding stale module response")
		return ErrStaleResponse
	}
	if err != nil {
		c.err = err
		c.setState(StateError)
		c.logger.Warn("Failed to fetch current module", "error", err)
		return fmt.Errorf("failed to fetch current module: %w", err)
	}
	if c.expected != 0 && module.ID != c.expected {
		uerr := &UnexpectedModuleError{Expected: c.expected, Got: module.ID}
		c.err = uerr
		c.setState(StateError)
		c.logger.Warn("Server returned unexpected module",
			"expected_module_id", c.expected,
			"module_id", module.ID)
		return uerr
	}

	c.applyModule(module)
	return nil
}

func (c *Controller) applyModule(module *gateway.Module) {
	reset := c.store.SetModule(module)
	c.expected = 0
	c.err = nil
	c.deferred = false
	c.brk = nil
	c.acc.Start(c.clock.Now())
	c.setState(StateQuestion)
	c.startTicker()

	c.logger.Info("Module loaded",
		"module_id", module.ID,
		"section", module.Section,
		"module_type", module.ModuleType,
		"questions", len(module.Questions),
		"countdown", c.store.Countdown(),
		"state_reset", reset)
}

// Retry refetches after a failed load.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state() != StateError {
		c.unlock()
		return ErrInvalidState
	}
	c.err = nil
	c.setState(StateLoading)
	c.unlock()

	return c.load(ctx)
}

// Refresh asks the server for the current module while answering. A
// response for the module already in hand never replaces it.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	module := c.store.Module()
	if !c.state().Counting() || module == nil {
		c.unlock()
		return ErrInvalidState
	}
	current := module.ID
	epoch := c.epoch
	c.unlock()

	fetched, err := c.gw.GetCurrentModule(ctx, c.attemptID)

	c.mu.Lock()
	defer c.unlock()
	if epoch != c.epoch || !c.state().Counting() {
		return ErrStaleResponse
	}
	if err != nil {
		c.logger.Warn("Refresh failed", "error", err)
		return fmt.Errorf("failed to refresh current module: %w", err)
	}
	if fetched.ID == current {
		c.logger.Debug("Ignoring duplicate module response", "module_id", current)
		return nil
	}
	c.logger.Warn("Refresh returned a different module", "module_id", current, "server_module_id", fetched.ID)
	return &UnexpectedModuleError{Expected: current, Got: fetched.ID}
}

// ===== ANSWERING =====

func (c *Controller) CurrentQuestion() *gateway.Question {
	return c.store.Module().Question(c.store.QuestionIndex())
}

// GoTo shows question i, clamped to the module bounds, crediting the time
// spent on the question being left.
func (c *Controller) GoTo(i int) error {
	c.mu.Lock()
	defer c.unlock()
	return c.goTo(i)
}

func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.unlock()
	return c.goTo(c.store.QuestionIndex() + 1)
}

func (c *Controller) Prev() error {
	c.mu.Lock()
	defer c.unlock()
	return c.goTo(c.store.QuestionIndex() - 1)
}

func (c *Controller) goTo(i int) error {
	if c.state() != StateQuestion {
		return ErrInvalidState
	}
	module := c.store.Module()
	if module == nil || len(module.Questions) == 0 {
		return ErrNoModule
	}
	if i < 0 {
		i = 0
	}
	if i > len(module.Questions)-1 {
		i = len(module.Questions) - 1
	}
	cur := c.store.QuestionIndex()
	if i == cur {
		return nil
	}
	if q := module.Question(cur); q != nil {
		c.acc.Flush(q.ID, c.clock.Now())
	}
	c.store.SetQuestionIndex(i)
	return nil
}

// Answer records value for a question of the loaded module. It never touches
// the network.
func (c *Controller) Answer(questionID uint, value string) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.checkQuestion(questionID); err != nil {
		return err
	}
	c.store.SetAnswer(questionID, value)
	return nil
}

func (c *Controller) ToggleFlag(questionID uint) (bool, error) {
	c.mu.Lock()
	defer c.unlock()
	if err := c.checkQuestion(questionID); err != nil {
		return false, err
	}
	return c.store.ToggleFlag(questionID), nil
}

func (c *Controller) checkQuestion(questionID uint) error {
	if c.state() != StateQuestion {
		return ErrInvalidState
	}
	module := c.store.Module()
	if module == nil {
		return ErrNoModule
	}
	for _, q := range module.Questions {
		if q.ID == questionID {
			return nil
		}
	}
	return fmt.Errorf("question %d is not part of module %d", questionID, module.ID)
}

// OpenReview switches to the completeness summary. The countdown keeps
// running; time spent there is not credited to any question.
func (c *Controller) OpenReview() error {
	c.mu.Lock()
	defer c.unlock()
	if c.state() != StateQuestion {
		return ErrInvalidState
	}
	if q := c.store.Module().Question(c.store.QuestionIndex()); q != nil {
		c.acc.Pause(q.ID, c.clock.Now())
	}
	c.setState(StateReview)
	return nil
}

// ReturnToQuestion leaves review at question i; a negative i keeps the
// previous position.
func (c *Controller) ReturnToQuestion(i int) error {
	c.mu.Lock()
	defer c.unlock()
	if c.state() != StateReview {
		return ErrInvalidState
	}
	if i >= 0 {
		c.store.SetQuestionIndex(i)
	}
	c.acc.Resume(c.clock.Now())
	c.setState(StateQuestion)
	return nil
}

// ===== TIMER =====

func (c *Controller) startTicker() {
	c.ticker.Start(c.HandleTick)
}

// HandleTick is the timer driver's once-per-second callback.
func (c *Controller) HandleTick() {
	c.mu.Lock()
	st := c.state()

	switch {
	case st.Counting():
		prev := c.store.Countdown()
		cur := c.store.TickTimer()
		for _, th := range crossedWarnings(c.warnings, prev, cur) {
			c.emit(Event{Kind: EventTimeWarning, State: st, Remaining: th})
		}
		if prev > 0 && cur == 0 {
			c.emit(Event{Kind: EventExpired, State: st})
			ctx := c.baseCtx
			c.unlock()
			c.logger.Info("Module time expired, submitting")
			if err := c.submit(ctx, TriggerExpiry); err != nil {
				c.logger.Warn("Automatic submission did not complete", "error", err)
			}
			return
		}

	case st == StateBreak && c.brk != nil:
		if c.brk.Remaining > 0 {
			c.brk.Remaining--
		}
		if c.brk.Remaining == 0 {
			ctx := c.baseCtx
			c.unlock()
			if err := c.Continue(ctx); err != nil {
				c.logger.Warn("Automatic resume after break failed", "error", err)
			}
			return
		}
	}
	c.unlock()
}

// ===== SUBMISSION =====

// Submit sends the current module. Timer expiry uses the same path.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, TriggerManual)
}

func (c *Controller) submit(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	if c.closed {
		c.unlock()
		return ErrClosed
	}
	st := c.state()
	if st == StateSubmitting {
		c.unlock()
		return ErrSubmitInProgress
	}
	if !st.Counting() {
		c.unlock()
		return ErrInvalidState
	}
	if !c.online {
		// An expired module is sent once connectivity returns.
		if trigger == TriggerExpiry {
			c.deferred = true
		}
		c.unlock()
		c.logger.Warn("Submission blocked while offline", "trigger", trigger)
		return ErrOffline
	}
	module := c.store.Module()
	if module == nil {
		c.unlock()
		return ErrNoModule
	}

	// The flush and the payload must see the same instant; both happen
	// before the lock is released.
	if st == StateQuestion {
		if q := module.Question(c.store.QuestionIndex()); q != nil {
			c.acc.Pause(q.ID, c.clock.Now())
		}
	}
	c.acc.Stop()
	req := c.store.payload()
	c.resume = st
	c.err = nil
	c.deferred = false
	c.ticker.Stop()
	c.setState(StateSubmitting)
	epoch := c.epoch
	c.unlock()

	c.logger.Info("Submitting module",
		"module_id", req.ModuleID,
		"trigger", trigger,
		"answers", len(req.Answers),
		"time_spent_seconds", req.TimeSpentSeconds)

	outcome, err := c.gw.SubmitModule(ctx, c.attemptID, req)

	c.mu.Lock()
	if epoch != c.epoch || c.state() != StateSubmitting {
		c.unlock()
		c.logger.Info("Discarding stale submission response", "module_id", req.ModuleID)
		return ErrStaleResponse
	}

	if err != nil {
		c.failSubmit(err)
		c.unlock()
		c.logger.Error("Module submission failed", "module_id", req.ModuleID, "error", err)
		return fmt.Errorf("failed to submit module: %w", err)
	}

	switch o := outcome.(type) {
	case gateway.TestCompleted:
		c.result = &Result{Completed: true, TotalScore: o.TotalScore}
		c.store.ResetExam()
		c.setState(StateResult)
		c.unlock()
		c.logger.Info("Test completed", "module_id", req.ModuleID)
		return nil

	case gateway.NextModule:
		if o.IsBreak {
			c.brk = &BreakInfo{
				NextModuleID:    o.ModuleID,
				PreviousSection: o.Section,
				Duration:        c.breakDuration,
				Remaining:       c.breakDuration,
			}
			c.setState(StateBreak)
			c.startTicker()
			c.unlock()
			c.logger.Info("Section break started", "next_module_id", o.ModuleID)
			return nil
		}
		c.expected = o.ModuleID
		c.store.ClearModule()
		c.setState(StateLoading)
		c.unlock()
		return c.load(ctx)

	default:
		err := fmt.Errorf("unknown submission outcome %T", outcome)
		c.failSubmit(err)
		c.unlock()
		return err
	}
}

// failSubmit returns to the pre-submission state with answers untouched.
func (c *Controller) failSubmit(err error) {
	c.err = err
	c.setState(c.resume)
	if c.resume == StateQuestion {
		c.acc.Start(c.clock.Now())
	}
	c.startTicker()
	c.emit(Event{Kind: EventSubmitFailed, State: c.resume, Err: err})
}

// ===== BREAK =====

// Continue ends the section break and loads the next module.
func (c *Controller) Continue(ctx context.Context) error {
	c.mu.Lock()
	if c.state() != StateBreak || c.brk == nil {
		c.unlock()
		return ErrInvalidState
	}
	c.ticker.Stop()
	c.expected = c.brk.NextModuleID
	c.brk = nil
	c.store.ClearModule()
	c.setState(StateLoading)
	c.unlock()

	return c.load(ctx)
}

// ===== CONNECTIVITY & EXIT =====

// SetOnline records connectivity. Coming back online retries a failed load
// once, and sends a module whose time ran out while offline.
func (c *Controller) SetOnline(ctx context.Context, online bool) error {
	c.mu.Lock()
	if c.online == online {
		c.unlock()
		return nil
	}
	c.online = online
	c.emit(Event{Kind: EventOnlineChanged, State: c.state(), Online: online})

	st := c.state()
	retryLoad := online && st == StateError
	expiredOffline := online && st.Counting() && c.deferred
	c.unlock()

	switch {
	case retryLoad:
		return c.Retry(ctx)
	case expiredOffline:
		return c.submit(ctx, TriggerExpiry)
	}
	return nil
}

func (c *Controller) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Exit abandons the session on the client. Unsent answers are discarded and
// any in-flight response is ignored.
func (c *Controller) Exit() {
	c.mu.Lock()
	c.epoch++
	c.ticker.Stop()
	c.acc.Stop()
	c.brk = nil
	c.expected = 0
	c.err = nil
	c.deferred = false
	c.store.ResetExam()
	c.result = &Result{Exited: true}
	c.setState(StateExited)
	c.unlock()
	c.logger.Info("Exam exited")
}

// Abandon exits and tells the server the attempt is over.
func (c *Controller) Abandon(ctx context.Context) error {
	c.Exit()
	if ab, ok := c.gw.(gateway.Abandoner); ok {
		if err := ab.AbandonAttempt(ctx, c.attemptID); err != nil {
			return fmt.Errorf("failed to abandon attempt: %w", err)
		}
	}
	return nil
}

// ===== READ SIDE =====

// View is everything the presentation shell renders.
type View struct {
	Snapshot
	Question *gateway.Question
	Online   bool
	Break    *BreakInfo
	Result   *Result
	Err      error
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.store.Snapshot()
	v := View{
		Snapshot: snap,
		Question: snap.Module.Question(snap.QuestionIndex),
		Online:   c.online,
		Err:      c.err,
	}
	if c.brk != nil {
		b := *c.brk
		v.Break = &b
	}
	if c.result != nil {
		r := *c.result
		v.Result = &r
	}
	return v
}

func (c *Controller) State() State {
	return c.store.State()
}

// ===== INTERNALS =====

func (c *Controller) state() State {
	return c.store.State()
}

func (c *Controller) setState(s State) {
	prev := c.store.State()
	c.store.SetState(s)
	if prev != s {
		c.emit(Event{Kind: EventStateChanged, State: s})
	}
}

func (c *Controller) emit(e Event) {
	c.pending = append(c.pending, e)
}

// unlock releases the lock and then delivers queued events.
func (c *Controller) unlock() {
	events := c.pending
	c.pending = nil
	listeners := c.listeners
	c.mu.Unlock()

	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
}
