package cqrs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/posture/internal/domain/alert"
	"github.com/danghamo/posture/internal/domain/posture"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/rx"
)

// MockEventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
	mu              sync.Mutex
	PublishedEvents []interface{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event interface{}) error {
	m.mu.Lock()
	m.PublishedEvents = append(m.PublishedEvents, event)
	m.mu.Unlock()
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Events() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interface{}(nil), m.PublishedEvents...)
}

var headTooLow = alert.Outcome{
	Active:     true,
	Posture:    posture.HeadDrop,
	Message:    "head too low",
	AudioTrack: alert.TrackHeadTooLow,
}

var leanForward = alert.Outcome{
	Active:     true,
	Posture:    posture.Slouching,
	Message:    "leaning forward",
	AudioTrack: alert.TrackLeanForward,
}

func TestAlertFeed_PublishesOnlyTransitions(t *testing.T) {
	publisher := &MockEventPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	outcomes := rx.NewSubject[alert.Outcome]()
	feed := NewAlertFeed(outcomes.AsSource(), publisher, 16, logger.NewNop())
	feed.Start(context.Background())

	for _, o := range []alert.Outcome{alert.Clear(), headTooLow, headTooLow, leanForward, alert.Clear(), alert.Clear()} {
		outcomes.Send(o)
	}
	feed.Stop()

	events := publisher.Events()
	require.Len(t, events, 3)

	raised, ok := events[0].(*PostureAlertRaisedEvent)
	require.True(t, ok)
	assert.Equal(t, "HeadDrop", raised.Posture)
	assert.Equal(t, "head too low", raised.Message)
	assert.Equal(t, alert.TrackHeadTooLow, raised.AudioTrack)
	assert.NotEmpty(t, raised.EventID)
	assert.WithinDuration(t, time.Now(), raised.Timestamp, time.Second)

	switched, ok := events[1].(*PostureAlertRaisedEvent)
	require.True(t, ok)
	assert.Equal(t, "Slouching", switched.Posture)
	assert.NotContains(t, switched.Changes, "active", "active did not change")
	assert.Equal(t, "leaning forward", switched.Changes["message"])

	cleared, ok := events[2].(*PostureAlertClearedEvent)
	require.True(t, ok)
	assert.Equal(t, "Slouching", cleared.PreviousPosture)
	assert.Equal(t, "leaning forward", cleared.PreviousMessage)
	assert.Equal(t, false, cleared.Changes["active"])

	assert.Equal(t, uint64(3), feed.Published())
	assert.Zero(t, feed.Dropped())
}

func TestAlertFeed_DropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	publisher := &MockEventPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	outcomes := rx.NewSubject[alert.Outcome]()
	feed := NewAlertFeed(outcomes.AsSource(), publisher, 1, logger.NewNop())
	feed.Start(context.Background())

	// the first transition blocks the publisher, the second fills the queue
	outcomes.Send(headTooLow)
	require.Eventually(t, func() bool { return len(publisher.Events()) == 1 }, time.Second, 5*time.Millisecond)
	outcomes.Send(alert.Clear())
	outcomes.Send(leanForward)

	assert.Equal(t, uint64(1), feed.Dropped())

	close(release)
	feed.Stop()
	assert.Equal(t, uint64(2), feed.Published())
}

func TestAlertFeed_PublishErrorIsSwallowed(t *testing.T) {
	publisher := &MockEventPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	outcomes := rx.NewSubject[alert.Outcome]()
	feed := NewAlertFeed(outcomes.AsSource(), publisher, 4, logger.NewNop())
	feed.Start(context.Background())

	assert.NotPanics(t, func() { outcomes.Send(headTooLow) })
	feed.Stop()

	assert.Len(t, publisher.Events(), 1)
	assert.Zero(t, feed.Published())
}

func TestAlertFeed_StopDetaches(t *testing.T) {
	publisher := &MockEventPublisher{}
	outcomes := rx.NewSubject[alert.Outcome]()
	feed := NewAlertFeed(outcomes.AsSource(), publisher, 4, logger.NewNop())

	feed.Stop() // not started

	feed.Start(context.Background())
	assert.Equal(t, 1, outcomes.Stats().Observers)
	feed.Stop()
	feed.Stop()
	assert.Equal(t, 0, outcomes.Stats().Observers)

	outcomes.Send(headTooLow)
	assert.Empty(t, publisher.Events())
}

func TestOutcomeChanges(t *testing.T) {
	changes, err := outcomeChanges(alert.Clear(), headTooLow)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"active":      true,
		"posture":     "HeadDrop",
		"message":     "head too low",
		"audio_track": "HeadTooLow",
	}, changes)

	changes, err = outcomeChanges(headTooLow, alert.Clear())
	require.NoError(t, err)
	assert.Equal(t, false, changes["active"])
	assert.Contains(t, changes, "message")
	assert.Nil(t, changes["message"])
}
