package cqrs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/domain/alert"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/rx"
)

// EventPublisher interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// transition is a change between two consecutive outcomes
type transition struct {
	from, to alert.Outcome
	at       time.Time
}

// AlertFeed turns outcome transitions into domain events. Repeated identical
// outcomes publish nothing. Publishing happens on the feed's own goroutine;
// when its queue is full the transition is dropped.
type AlertFeed struct {
	source    rx.Source[alert.Outcome]
	publisher EventPublisher
	queue     chan transition
	logger    *logger.Logger

	handle    *rx.Handle
	started   atomic.Bool
	last      alert.Outcome
	dropped   atomic.Uint64
	published atomic.Uint64

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewAlertFeed creates a feed over source. bufferSize < 1 is treated as 1.
func NewAlertFeed(source rx.Source[alert.Outcome], publisher EventPublisher, bufferSize int, log *logger.Logger) *AlertFeed {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &AlertFeed{
		source:    source,
		publisher: publisher,
		queue:     make(chan transition, bufferSize),
		logger:    log.WithComponent("alert-feed"),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start subscribes to the outcome stream and begins publishing
func (f *AlertFeed) Start(ctx context.Context) {
	if !f.started.CompareAndSwap(false, true) {
		return
	}
	f.handle = f.source.Subscribe(rx.Func(f.onOutcome))
	f.logger.Info("Starting alert feed", zap.Int("buffer", cap(f.queue)))

	go f.publishLoop(ctx)
}

// Stop detaches from the stream and waits for queued transitions to drain
func (f *AlertFeed) Stop() {
	if !f.started.Load() {
		return
	}
	f.stopOnce.Do(func() {
		f.handle.Release()
		close(f.stopChan)
		<-f.done
		f.logger.Info("Alert feed stopped",
			zap.Uint64("published", f.published.Load()),
			zap.Uint64("dropped", f.dropped.Load()))
	})
}

// Dropped returns the number of transitions discarded on a full queue
func (f *AlertFeed) Dropped() uint64 {
	return f.dropped.Load()
}

// Published returns the number of events handed to the publisher
func (f *AlertFeed) Published() uint64 {
	return f.published.Load()
}

// onOutcome runs on the pipeline goroutine and must not block
func (f *AlertFeed) onOutcome(outcome alert.Outcome) {
	if outcome == f.last {
		return
	}
	t := transition{from: f.last, to: outcome, at: time.Now()}
	f.last = outcome

	select {
	case f.queue <- t:
	default:
		f.dropped.Add(1)
		f.logger.Warn("Alert feed queue full, dropping transition",
			zap.Stringer("to", outcome))
	}
}

func (f *AlertFeed) publishLoop(ctx context.Context) {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopChan:
			f.drain(ctx)
			return
		case t := <-f.queue:
			f.publish(ctx, t)
		}
	}
}

func (f *AlertFeed) drain(ctx context.Context) {
	for {
		select {
		case t := <-f.queue:
			f.publish(ctx, t)
		default:
			return
		}
	}
}

func (f *AlertFeed) publish(ctx context.Context, t transition) {
	event, err := buildEvent(t)
	if err != nil {
		f.logger.Error("Failed to build alert event", zap.Error(err))
		return
	}

	if err := f.publisher.Publish(ctx, event); err != nil {
		f.logger.Warn("Failed to publish alert event", zap.Error(err))
		return
	}
	f.published.Add(1)
}

func buildEvent(t transition) (interface{}, error) {
	changes, err := outcomeChanges(t.from, t.to)
	if err != nil {
		return nil, err
	}

	if t.to.Active {
		return &PostureAlertRaisedEvent{
			EventID:    shared.NewID().String(),
			Posture:    t.to.Posture.String(),
			Message:    t.to.Message,
			AudioTrack: t.to.AudioTrack,
			Changes:    changes,
			Timestamp:  t.at,
		}, nil
	}

	return &PostureAlertClearedEvent{
		EventID:         shared.NewID().String(),
		PreviousPosture: t.from.Posture.String(),
		PreviousMessage: t.from.Message,
		Changes:         changes,
		Timestamp:       t.at,
	}, nil
}

// outcomeChanges returns a JSON merge patch containing only changed fields
func outcomeChanges(original, updated alert.Outcome) (map[string]interface{}, error) {
	originalJSON, err := json.Marshal(original)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal original outcome: %w", err)
	}

	updatedJSON, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal updated outcome: %w", err)
	}

	mergePatch, err := jsonpatch.CreateMergePatch(originalJSON, updatedJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge patch: %w", err)
	}

	var changes map[string]interface{}
	if err := json.Unmarshal(mergePatch, &changes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merge patch: %w", err)
	}

	return changes, nil
}
