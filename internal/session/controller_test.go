package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adaptiveStub serves reading/writing module 1 (id 1), its harder (2) and
// easier (3) second modules, and math module 1 (10) after the break.
func adaptiveStub() *gateway.Stub {
	rw1 := newModule(1, gateway.SectionReadingWriting, gateway.ModuleOne, 32, 4, 100)
	rw2h := newModule(2, gateway.SectionReadingWriting, gateway.ModuleTwo, 32, 4, 200)
	rw2e := newModule(3, gateway.SectionReadingWriting, gateway.ModuleTwo, 32, 4, 300)
	math1 := newModule(10, gateway.SectionMath, gateway.ModuleOne, 35, 4, 1000)

	stub := gateway.NewStub()
	stub.AddModule(rw1, keysFor(rw1, "A"), &gateway.Route{Threshold: 0.7, Harder: 2, Easier: 3})
	stub.AddModule(rw2h, keysFor(rw2h, "A"), &gateway.Route{Harder: 10, Easier: 10, IsBreak: true})
	stub.AddModule(rw2e, keysFor(rw2e, "A"), &gateway.Route{Harder: 10, Easier: 10, IsBreak: true})
	stub.AddModule(math1, keysFor(math1, "A"), nil)
	return stub
}

func TestController_Start(t *testing.T) {
	h := newHarness(t, singleModuleStub(newModule(1, gateway.SectionReadingWriting, gateway.ModuleOne, 32, 10, 1)))
	h.start(t)

	v := h.ctrl.View()
	require.NotNil(t, v.Module)
	assert.Equal(t, uint(1), v.Module.ID)
	assert.Equal(t, 32*60, v.Countdown)
	assert.Equal(t, 0, v.QuestionIndex)
	require.NotNil(t, v.Question)
	assert.Equal(t, uint(1), v.Question.ID)
	assert.True(t, v.Online)
	assert.Greater(t, h.rec.count(EventStateChanged), 0)
}

func TestController_Countdown(t *testing.T) {
	ctx := context.Background()
	stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 32, 3, 1))
	h := newHarness(t, stub)
	h.start(t)

	h.tick(3)
	assert.Equal(t, 32*60-3, h.store.Countdown())

	require.NoError(t, h.ctrl.OpenReview())
	h.tick(2)
	assert.Equal(t, 32*60-5, h.store.Countdown(), "review keeps counting")

	var during int
	stub.OnSubmit = func() {
		h.tick(5)
		during = h.store.Countdown()
	}
	require.NoError(t, h.ctrl.Submit(ctx))
	assert.Equal(t, 32*60-5, during, "frozen while submitting")
}

func TestController_TimeWarnings(t *testing.T) {
	h := newHarness(t, singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 6, 2, 1)))
	h.start(t)

	h.tick(59)
	assert.Empty(t, h.rec.warnings())

	h.tick(1)
	assert.Equal(t, []int{300}, h.rec.warnings())

	h.tick(239)
	assert.Equal(t, []int{300}, h.rec.warnings())

	h.tick(1)
	assert.Equal(t, []int{300, 60}, h.rec.warnings())

	h.tick(59)
	assert.Equal(t, 0, h.rec.count(EventExpired))

	h.tick(1)
	assert.Equal(t, 1, h.rec.count(EventExpired))

	h.tick(5)
	assert.Equal(t, []int{300, 60}, h.rec.warnings())
	assert.Equal(t, 1, h.rec.count(EventExpired))
}

func TestController_AutoSubmitOnExpiry(t *testing.T) {
	stub := singleModuleStub(newModule(1, gateway.SectionReadingWriting, gateway.ModuleOne, 1, 10, 1))
	h := newHarness(t, stub)
	h.start(t)

	require.NoError(t, h.ctrl.Answer(1, "A"))
	require.NoError(t, h.ctrl.Answer(5, "C"))

	h.tick(60)

	subs := stub.Submissions()
	require.Len(t, subs, 1)
	require.Len(t, subs[0].Answers, 10)
	assert.Equal(t, 60, subs[0].TimeSpentSeconds)

	nilAnswers := 0
	for _, a := range subs[0].Answers {
		if a.Answer == nil {
			nilAnswers++
		}
	}
	assert.Equal(t, 8, nilAnswers)
	assert.Equal(t, StateResult, h.ctrl.State())

	v := h.ctrl.View()
	require.NotNil(t, v.Result)
	assert.True(t, v.Result.Completed)
}

func TestController_SingleSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("ConcurrentManual", func(t *testing.T) {
		stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1))
		h := newHarness(t, stub)
		h.start(t)

		release := make(chan struct{})
		var entered atomic.Int32
		stub.OnSubmit = func() {
			entered.Add(1)
			<-release
		}

		done := make(chan error, 1)
		go func() { done <- h.ctrl.Submit(ctx) }()

		require.Eventually(t, func() bool { return h.ctrl.State() == StateSubmitting }, time.Second, 5*time.Millisecond)
		assert.ErrorIs(t, h.ctrl.Submit(ctx), ErrSubmitInProgress)

		close(release)
		require.NoError(t, <-done)
		assert.Len(t, stub.Submissions(), 1)
		assert.Equal(t, int32(1), entered.Load())
	})

	t.Run("ExpiryAndManualSameTick", func(t *testing.T) {
		stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 1, 3, 1))
		h := newHarness(t, stub)
		h.start(t)
		h.tick(59)

		var manualErr error
		var hooked atomic.Bool
		stub.OnSubmit = func() {
			if hooked.CompareAndSwap(false, true) {
				manualErr = h.ctrl.Submit(ctx)
			}
		}
		h.tick(1)

		assert.ErrorIs(t, manualErr, ErrSubmitInProgress)
		assert.Len(t, stub.Submissions(), 1)
		assert.Equal(t, StateResult, h.ctrl.State())
	})
}

func TestController_TimeAttribution(t *testing.T) {
	ctx := context.Background()
	stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1))
	h := newHarness(t, stub)
	h.start(t)

	h.clock.Advance(10 * time.Second)
	require.NoError(t, h.ctrl.Next())
	h.clock.Advance(5 * time.Second)
	require.NoError(t, h.ctrl.Prev())
	h.clock.Advance(3 * time.Second)

	require.NoError(t, h.ctrl.OpenReview())
	h.clock.Advance(100 * time.Second)
	require.NoError(t, h.ctrl.ReturnToQuestion(1))
	h.clock.Advance(2 * time.Second)

	require.NoError(t, h.ctrl.Submit(ctx))

	subs := stub.Submissions()
	require.Len(t, subs, 1)
	a := subs[0].Answers
	assert.Equal(t, 13, a[0].TimeSpentSeconds)
	assert.Equal(t, 7, a[1].TimeSpentSeconds)
	assert.Equal(t, 0, a[2].TimeSpentSeconds)
	assert.Equal(t, 20, a[0].TimeSpentSeconds+a[1].TimeSpentSeconds+a[2].TimeSpentSeconds)
}

func TestController_AdaptiveRouting(t *testing.T) {
	ctx := context.Background()

	t.Run("HighAccuracyTakesHarder", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		h.start(t)
		for qid := uint(100); qid < 104; qid++ {
			require.NoError(t, h.ctrl.Answer(qid, "A"))
		}

		require.NoError(t, h.ctrl.Submit(ctx))
		assert.Equal(t, StateQuestion, h.ctrl.State())

		v := h.ctrl.View()
		require.NotNil(t, v.Module)
		assert.Equal(t, uint(2), v.Module.ID)
		assert.Empty(t, v.Answers, "answers reset for the new module")
		assert.Equal(t, 32*60, v.Countdown)
	})

	t.Run("LowAccuracyTakesEasier", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		h.start(t)
		require.NoError(t, h.ctrl.Answer(100, "A"))
		require.NoError(t, h.ctrl.Answer(101, "B"))

		require.NoError(t, h.ctrl.Submit(ctx))
		assert.Equal(t, uint(3), h.ctrl.View().Module.ID)
	})
}

func TestController_SectionBreak(t *testing.T) {
	ctx := context.Background()

	t.Run("ManualContinue", func(t *testing.T) {
		h := newHarness(t, adaptiveStub())
		h.start(t)
		require.NoError(t, h.ctrl.Submit(ctx))
		require.Equal(t, uint(3), h.ctrl.View().Module.ID)

		h.tick(4)
		require.NoError(t, h.ctrl.Submit(ctx))
		assert.Equal(t, StateBreak, h.ctrl.State())

		v := h.ctrl.View()
		require.NotNil(t, v.Break)
		assert.Equal(t, uint(10), v.Break.NextModuleID)
		assert.Equal(t, gateway.SectionReadingWriting, v.Break.PreviousSection)
		assert.Equal(t, int(DefaultBreakDuration/time.Second), v.Break.Remaining)
		require.NotNil(t, v.Module, "module is kept during the break")
		assert.Equal(t, uint(3), v.Module.ID)
		assert.Equal(t, 32*60-4, v.Countdown)

		require.NoError(t, h.ctrl.Continue(ctx))
		v = h.ctrl.View()
		assert.Equal(t, StateQuestion, v.State)
		assert.Equal(t, uint(10), v.Module.ID)
		assert.Equal(t, gateway.SectionMath, v.Module.Section)
		assert.Nil(t, v.Break)

		require.NoError(t, h.ctrl.Submit(ctx))
		assert.Equal(t, StateResult, h.ctrl.State())
	})

	t.Run("AutoContinue", func(t *testing.T) {
		h := newHarness(t, adaptiveStub(), func(cfg *Config) {
			cfg.BreakDuration = 3 * time.Second
		})
		h.start(t)
		require.NoError(t, h.ctrl.Submit(ctx))
		require.NoError(t, h.ctrl.Submit(ctx))
		require.Equal(t, StateBreak, h.ctrl.State())

		h.tick(2)
		assert.Equal(t, StateBreak, h.ctrl.State())
		assert.Equal(t, 1, h.ctrl.View().Break.Remaining)

		h.tick(1)
		assert.Equal(t, StateQuestion, h.ctrl.State())
		assert.Equal(t, uint(10), h.ctrl.View().Module.ID)
	})

	t.Run("ContinueOutsideBreak", func(t *testing.T) {
		h := newHarness(t, adaptiveStub())
		h.start(t)
		assert.ErrorIs(t, h.ctrl.Continue(ctx), ErrInvalidState)
	})
}

func TestController_SubmitFailure(t *testing.T) {
	ctx := context.Background()
	stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1))
	h := newHarness(t, stub)
	h.start(t)

	require.NoError(t, h.ctrl.Answer(2, "B"))
	_, err := h.ctrl.ToggleFlag(3)
	require.NoError(t, err)
	h.tick(5)

	stub.FailSubmit(gateway.ErrUnavailable)
	err = h.ctrl.Submit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	v := h.ctrl.View()
	assert.Equal(t, StateQuestion, v.State)
	assert.Equal(t, "B", v.Answers[2])
	assert.Equal(t, 1, v.Flagged)
	assert.Equal(t, 35*60-5, v.Countdown)
	assert.ErrorIs(t, v.Err, gateway.ErrUnavailable)
	assert.Equal(t, 1, h.rec.count(EventSubmitFailed))

	h.tick(1)
	assert.Equal(t, 35*60-6, h.store.Countdown(), "countdown resumes")

	t.Run("FromReview", func(t *testing.T) {
		require.NoError(t, h.ctrl.OpenReview())
		require.Error(t, h.ctrl.Submit(ctx))
		assert.Equal(t, StateReview, h.ctrl.State())
	})

	stub.FailSubmit(nil)
	require.NoError(t, h.ctrl.Submit(ctx))
	assert.Equal(t, StateResult, h.ctrl.State())
}

func TestController_Offline(t *testing.T) {
	ctx := context.Background()

	t.Run("ManualSubmitBlocked", func(t *testing.T) {
		stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1))
		h := newHarness(t, stub)
		h.start(t)

		require.NoError(t, h.ctrl.SetOnline(ctx, false))
		assert.ErrorIs(t, h.ctrl.Submit(ctx), ErrOffline)
		assert.Empty(t, stub.Submissions())

		require.NoError(t, h.ctrl.Answer(1, "D"), "answering works offline")
		require.NoError(t, h.ctrl.Next())
		assert.Equal(t, 1, h.rec.count(EventOnlineChanged))
	})

	t.Run("ExpiryDeferredUntilReconnect", func(t *testing.T) {
		stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 1, 3, 1))
		h := newHarness(t, stub)
		h.start(t)
		require.NoError(t, h.ctrl.Answer(1, "A"))
		require.NoError(t, h.ctrl.SetOnline(ctx, false))

		h.tick(60)
		assert.Equal(t, 1, h.rec.count(EventExpired))
		assert.Equal(t, StateQuestion, h.ctrl.State())
		assert.Equal(t, 0, h.store.Countdown())
		assert.Empty(t, stub.Submissions())

		require.NoError(t, h.ctrl.SetOnline(ctx, true))
		subs := stub.Submissions()
		require.Len(t, subs, 1)
		require.NotNil(t, subs[0].Answers[0].Answer)
		assert.Equal(t, "A", *subs[0].Answers[0].Answer)
		assert.Equal(t, StateResult, h.ctrl.State())
	})

	t.Run("ExpiryDeferredAfterEarlierFailedSubmit", func(t *testing.T) {
		stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 1, 3, 1))
		h := newHarness(t, stub)
		h.start(t)
		require.NoError(t, h.ctrl.Answer(2, "C"))

		stub.FailSubmit(gateway.ErrUnavailable)
		require.Error(t, h.ctrl.Submit(ctx))
		require.Error(t, h.ctrl.View().Err)
		stub.FailSubmit(nil)

		require.NoError(t, h.ctrl.SetOnline(ctx, false))
		h.tick(60)
		assert.Equal(t, 0, h.store.Countdown())
		assert.Empty(t, stub.Submissions())

		require.NoError(t, h.ctrl.SetOnline(ctx, true))
		subs := stub.Submissions()
		require.Len(t, subs, 1)
		require.NotNil(t, subs[0].Answers[1].Answer)
		assert.Equal(t, "C", *subs[0].Answers[1].Answer)
		assert.Equal(t, StateResult, h.ctrl.State())
	})

	t.Run("FailedExpirySubmitNotRetriedOnReconnect", func(t *testing.T) {
		stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 1, 3, 1))
		h := newHarness(t, stub)
		h.start(t)

		stub.FailSubmit(gateway.ErrUnavailable)
		h.tick(60)
		assert.Equal(t, StateQuestion, h.ctrl.State())
		assert.Equal(t, 1, h.rec.count(EventSubmitFailed))
		stub.FailSubmit(nil)

		require.NoError(t, h.ctrl.SetOnline(ctx, false))
		require.NoError(t, h.ctrl.SetOnline(ctx, true))
		assert.Empty(t, stub.Submissions())
		assert.Equal(t, StateQuestion, h.ctrl.State())
	})
}

func TestController_StaleFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("ExitDuringStart", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		stub.OnFetch = h.ctrl.Exit

		err := h.ctrl.Start(ctx)
		assert.ErrorIs(t, err, ErrStaleResponse)

		v := h.ctrl.View()
		assert.Equal(t, StateExited, v.State)
		assert.Nil(t, v.Module)
		assert.Empty(t, v.Answers)
		assert.Equal(t, 0, v.Countdown)
	})

	t.Run("ExitDuringContinue", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		h.start(t)
		require.NoError(t, h.ctrl.Submit(ctx))
		require.NoError(t, h.ctrl.Submit(ctx))
		require.Equal(t, StateBreak, h.ctrl.State())

		stub.OnFetch = h.ctrl.Exit
		err := h.ctrl.Continue(ctx)
		assert.ErrorIs(t, err, ErrStaleResponse)

		v := h.ctrl.View()
		assert.Equal(t, StateExited, v.State)
		assert.Nil(t, v.Module)
		assert.Nil(t, v.Break)
	})

	t.Run("NewerLoadSupersedes", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		stub.OnFetch = func() {
			stub.OnFetch = nil
			require.NoError(t, h.ctrl.Start(ctx))
			stub.FailFetch(gateway.ErrUnavailable)
		}

		err := h.ctrl.Start(ctx)
		assert.ErrorIs(t, err, ErrStaleResponse)

		v := h.ctrl.View()
		assert.Equal(t, StateQuestion, v.State)
		require.NotNil(t, v.Module)
		assert.Equal(t, uint(1), v.Module.ID)
		assert.Nil(t, v.Err)
		assert.Equal(t, 2, stub.FetchCount())
	})
}

func TestController_LoadFailure(t *testing.T) {
	ctx := context.Background()
	stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1))
	stub.FailFetch(gateway.ErrUnavailable)
	h := newHarness(t, stub)

	err := h.ctrl.Start(ctx)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, StateError, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.View().Err, gateway.ErrUnavailable)

	t.Run("RetryStillFailing", func(t *testing.T) {
		assert.Error(t, h.ctrl.Retry(ctx))
		assert.Equal(t, StateError, h.ctrl.State())
	})

	t.Run("ReconnectRefetches", func(t *testing.T) {
		require.NoError(t, h.ctrl.SetOnline(ctx, false))
		stub.FailFetch(nil)
		require.NoError(t, h.ctrl.SetOnline(ctx, true))
		assert.Equal(t, StateQuestion, h.ctrl.State())
		assert.Nil(t, h.ctrl.View().Err)
	})
}

// mismatchGateway always serves the same module and points submissions at a
// module it never serves.
type mismatchGateway struct {
	module *gateway.Module
	next   uint
}

func (g *mismatchGateway) GetCurrentModule(ctx context.Context, attemptID uint) (*gateway.Module, error) {
	return g.module, nil
}

func (g *mismatchGateway) SubmitModule(ctx context.Context, attemptID uint, req *gateway.SubmitModuleRequest) (gateway.SubmitOutcome, error) {
	return gateway.NextModule{ModuleID: g.next, Section: g.module.Section, ModuleType: g.module.ModuleType}, nil
}

func TestController_UnexpectedModule(t *testing.T) {
	ctx := context.Background()
	gw := &mismatchGateway{
		module: newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1),
		next:   2,
	}
	ctrl := NewController(Config{AttemptID: 1, Gateway: gw, Logger: testLogger()})
	t.Cleanup(ctrl.Close)

	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Answer(1, "A"))

	err := ctrl.Submit(ctx)
	var uerr *UnexpectedModuleError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, uint(2), uerr.Expected)
	assert.Equal(t, uint(1), uerr.Got)
	assert.Equal(t, StateError, ctrl.State())
	assert.Nil(t, ctrl.View().Module)
}

func TestController_Refresh(t *testing.T) {
	ctx := context.Background()
	stub := singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1))
	h := newHarness(t, stub)
	h.start(t)

	require.NoError(t, h.ctrl.Answer(1, "C"))
	require.NoError(t, h.ctrl.GoTo(2))
	h.tick(10)

	require.NoError(t, h.ctrl.Refresh(ctx))
	v := h.ctrl.View()
	assert.Equal(t, "C", v.Answers[1])
	assert.Equal(t, 2, v.QuestionIndex)
	assert.Equal(t, 35*60-10, v.Countdown, "duplicate response does not restart the countdown")
	assert.Equal(t, 2, stub.FetchCount())
}

func TestController_ResumeAfterReload(t *testing.T) {
	ctx := context.Background()
	stub := singleModuleStub(newModule(1, gateway.SectionReadingWriting, gateway.ModuleOne, 32, 10, 1))
	h := newHarness(t, stub)
	h.start(t)

	require.NoError(t, h.ctrl.Answer(1, "B"))
	require.NoError(t, h.ctrl.Answer(2, "C"))
	_, err := h.ctrl.ToggleFlag(3)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.GoTo(4))
	h.ctrl.Close()

	remounted := NewController(Config{
		AttemptID: 1,
		Gateway:   stub,
		Store:     h.store,
		Clock:     h.clock,
		Logger:    testLogger(),
	})
	t.Cleanup(remounted.Close)
	require.NoError(t, remounted.Start(ctx))

	v := remounted.View()
	assert.Equal(t, StateQuestion, v.State)
	assert.Equal(t, 4, v.QuestionIndex)
	assert.Equal(t, "B", v.Answers[1])
	assert.Equal(t, "C", v.Answers[2])
	assert.Equal(t, 1, v.Flagged)
	assert.Equal(t, 2, stub.FetchCount())
}

func TestController_Navigation(t *testing.T) {
	h := newHarness(t, singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 5, 1)))
	h.start(t)

	require.NoError(t, h.ctrl.Prev())
	assert.Equal(t, 0, h.store.QuestionIndex())

	require.NoError(t, h.ctrl.GoTo(100))
	assert.Equal(t, 4, h.store.QuestionIndex())

	require.NoError(t, h.ctrl.Next())
	assert.Equal(t, 4, h.store.QuestionIndex())

	assert.Error(t, h.ctrl.Answer(999, "A"), "question outside the module")

	require.NoError(t, h.ctrl.OpenReview())
	assert.ErrorIs(t, h.ctrl.Next(), ErrInvalidState)
	assert.ErrorIs(t, h.ctrl.Answer(1, "A"), ErrInvalidState)

	require.NoError(t, h.ctrl.ReturnToQuestion(-1))
	assert.Equal(t, 4, h.store.QuestionIndex())
}

func TestController_Exit(t *testing.T) {
	ctx := context.Background()

	t.Run("DiscardsInFlightResponse", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		h.start(t)
		require.NoError(t, h.ctrl.Answer(100, "A"))

		stub.OnSubmit = h.ctrl.Exit
		err := h.ctrl.Submit(ctx)
		assert.ErrorIs(t, err, ErrStaleResponse)

		v := h.ctrl.View()
		assert.Equal(t, StateExited, v.State)
		assert.Nil(t, v.Module)
		assert.Empty(t, v.Answers)
		require.NotNil(t, v.Result)
		assert.True(t, v.Result.Exited)
	})

	t.Run("Abandon", func(t *testing.T) {
		stub := adaptiveStub()
		h := newHarness(t, stub)
		h.start(t)

		require.NoError(t, h.ctrl.Abandon(ctx))
		assert.Equal(t, StateExited, h.ctrl.State())

		_, err := stub.GetCurrentModule(ctx, 1)
		assert.ErrorIs(t, err, gateway.ErrNoCurrentModule)
	})
}

func TestController_Closed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, singleModuleStub(newModule(1, gateway.SectionMath, gateway.ModuleOne, 35, 3, 1)))
	h.start(t)
	h.ctrl.Close()

	assert.ErrorIs(t, h.ctrl.Submit(ctx), ErrClosed)
	assert.ErrorIs(t, h.ctrl.Start(ctx), ErrClosed)
}
