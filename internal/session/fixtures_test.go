package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/SAP-F-2025/exam-delivery-service/internal/gateway"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newModule builds a module whose question ids start at firstQID. Every
// question offers options A to D.
func newModule(id uint, section gateway.Section, moduleType gateway.ModuleType, minutes, n int, firstQID uint) *gateway.Module {
	m := &gateway.Module{
		ID:               id,
		Section:          section,
		ModuleType:       moduleType,
		Difficulty:       gateway.DifficultyStandard,
		TimeLimitMinutes: minutes,
	}
	for i := 0; i < n; i++ {
		m.Questions = append(m.Questions, gateway.Question{
			ID:     firstQID + uint(i),
			Number: i + 1,
			Text:   "question",
			Type:   "multiple_choice",
			Options: []gateway.Option{
				{ID: "A", Text: "a"}, {ID: "B", Text: "b"},
				{ID: "C", Text: "c"}, {ID: "D", Text: "d"},
			},
		})
	}
	return m
}

// keysFor answers every question of m with the same option.
func keysFor(m *gateway.Module, option string) map[uint]string {
	keys := make(map[uint]string, len(m.Questions))
	for _, q := range m.Questions {
		keys[q.ID] = option
	}
	return keys
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) warnings() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, e := range r.events {
		if e.Kind == EventTimeWarning {
			out = append(out, e.Remaining)
		}
	}
	return out
}

type harness struct {
	stub  *gateway.Stub
	clock *clockwork.FakeClock
	store *Store
	ctrl  *Controller
	rec   *recorder
}

func newHarness(t *testing.T, stub *gateway.Stub, opts ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		stub:  stub,
		clock: clockwork.NewFakeClock(),
		store: NewStore(),
		rec:   &recorder{},
	}
	cfg := Config{
		AttemptID: 1,
		Gateway:   stub,
		Store:     h.store,
		Clock:     h.clock,
		Logger:    testLogger(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	h.ctrl = NewController(cfg)
	h.ctrl.Subscribe(h.rec.listen)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.Equal(t, StateQuestion, h.ctrl.State())
}

// tick drives the countdown n times without involving the ticker goroutine.
func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.ctrl.HandleTick()
	}
}

// singleModuleStub serves one module that completes the test when submitted.
func singleModuleStub(m *gateway.Module) *gateway.Stub {
	stub := gateway.NewStub()
	stub.AddModule(m, keysFor(m, "A"), nil)
	return stub
}
