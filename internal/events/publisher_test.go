package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillEventPublisher_ChannelRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := NewChannelPubSub(testLogger())
	defer pubsub.Close()
	publisher := NewWatermillEventPublisher(pubsub, "exam-events", testLogger())

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	event := NewExamEvent(EventModuleSubmitted, ModuleSubmittedEvent{
		AttemptID: 4, ModuleID: 2, UserID: "u-1", Section: "math", Module: "module_1", Correct: 15, Total: 22,
	}, now)
	require.NoError(t, publisher.Publish(ctx, event))

	var mu sync.Mutex
	var received []*ExamEvent
	go func() {
		_ = Consume(ctx, pubsub, "exam-events", testLogger(), func(e *ExamEvent) {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	got := received[0]
	mu.Unlock()
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, EventModuleSubmitted, got.Type)
	assert.Equal(t, "exam-delivery-service", got.Source)
	assert.True(t, now.Equal(got.Timestamp))

	data, ok := got.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(15), data["correct"])
	assert.Equal(t, "math", data["section"])
}

func TestToMessage(t *testing.T) {
	event := NewExamEvent(EventAttemptCompleted, AttemptCompletedEvent{AttemptID: 1}, time.Now())
	msg, err := ToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, "attempt.completed", msg.Metadata.Get("event_type"))
	assert.Equal(t, "1.0", msg.Metadata.Get("version"))

	back, err := FromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, event.Type, back.Type)

	_, err = FromMessage(message.NewMessage("bad", []byte("nope")))
	assert.Error(t, err)
}

func TestMockEventPublisher(t *testing.T) {
	ctx := context.Background()
	m := NewMockEventPublisher(testLogger())

	require.NoError(t, m.Publish(ctx, NewExamEvent(EventAttemptStarted, nil, time.Now())))
	require.NoError(t, m.Publish(ctx, NewExamEvent(EventAttemptAbandoned, nil, time.Now())))
	assert.Len(t, m.GetPublishedEvents(), 2)
	assert.Len(t, m.EventsOfType(EventAttemptStarted), 1)

	m.FailWith(errors.New("broker down"))
	assert.Error(t, m.Publish(ctx, NewExamEvent(EventAttemptStarted, nil, time.Now())))
	m.FailWith(nil)

	m.ClearEvents()
	assert.Empty(t, m.GetPublishedEvents())
}
