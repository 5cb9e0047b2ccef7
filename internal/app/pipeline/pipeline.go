// Package pipeline wires landmark extraction, posture classification, alert
// arbitration and overlay projection over in-process rx subjects.
//
// Every stage runs synchronously on the goroutine that sends into Input or
// SnapshotInput. One snapshot yields exactly one alert outcome, one marker
// list and one segment list, in that order.
package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/domain/alert"
	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/overlay"
	"github.com/danghamo/posture/internal/domain/posture"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/rx"
)

// Extractor produces a snapshot from a raw frame.
type Extractor interface {
	Extract(frame body.Frame, orientation body.Orientation) body.Snapshot
}

// Dependencies are the collaborators injected into the pipeline.
// A nil Extractor yields empty snapshots, a nil Classifier uses the sitting
// detector with default thresholds, a nil Audio disables sound.
type Dependencies struct {
	Extractor  Extractor
	Classifier posture.Classifier
	Audio      alert.AudioSink
}

// FrameInput is a captured frame with its orientation metadata.
type FrameInput struct {
	Frame       body.Frame
	Orientation body.Orientation
}

// Stats describes pipeline throughput.
type Stats struct {
	Frames      uint64        `json:"frames"`
	Snapshots   uint64        `json:"snapshots"`
	Transitions uint64        `json:"transitions"`
	LastOutcome alert.Outcome `json:"last_outcome"`
}

// Pipeline is the reactive posture pipeline.
type Pipeline struct {
	frames    *rx.Subject[FrameInput]
	snapshots *rx.Subject[body.Snapshot]
	alerts    *rx.Subject[alert.Outcome]
	markers   *rx.Subject[[]*body.Point]
	segments  *rx.Subject[[]overlay.Segment]

	extractor  Extractor
	classifier posture.Classifier
	arbiter    *alert.Arbiter
	handles    rx.Bag
	logger     *logger.Logger

	mu          sync.Mutex
	last        alert.Outcome
	transitions uint64
	closeOnce   sync.Once
}

// New builds and wires a pipeline
func New(deps Dependencies, log *logger.Logger) *Pipeline {
	classifier := deps.Classifier
	if classifier == nil {
		classifier = posture.NewSittingDetector(posture.DefaultThresholds())
	}

	p := &Pipeline{
		frames:     rx.NewSubject[FrameInput](),
		snapshots:  rx.NewSubject[body.Snapshot](),
		alerts:     rx.NewSubject[alert.Outcome](),
		markers:    rx.NewSubject[[]*body.Point](),
		segments:   rx.NewSubject[[]overlay.Segment](),
		extractor:  deps.Extractor,
		classifier: classifier,
		arbiter:    alert.NewArbiter(deps.Audio),
		logger:     log.WithComponent("pipeline"),
	}

	p.handles.Add(p.frames.Subscribe(rx.Observer[FrameInput]{
		OnNext:     p.extract,
		OnComplete: p.snapshots.Complete,
	}))
	p.handles.Add(p.snapshots.Subscribe(rx.Observer[body.Snapshot]{
		OnNext:     p.evaluate,
		OnComplete: p.completeOutputs,
	}))

	return p
}

// Input accepts raw frames
func (p *Pipeline) Input() rx.Sink[FrameInput] {
	return p.frames.AsSink()
}

// SnapshotInput accepts snapshots that were extracted elsewhere
func (p *Pipeline) SnapshotInput() rx.Sink[body.Snapshot] {
	return p.snapshots.AsSink()
}

// Alerts emits one outcome per snapshot
func (p *Pipeline) Alerts() rx.Source[alert.Outcome] {
	return p.alerts.AsSource()
}

// Markers emits the overlay marker list per snapshot
func (p *Pipeline) Markers() rx.Source[[]*body.Point] {
	return p.markers.AsSource()
}

// Segments emits the overlay segment list per snapshot
func (p *Pipeline) Segments() rx.Source[[]overlay.Segment] {
	return p.segments.AsSource()
}

// LastOutcome returns the most recent alert outcome
func (p *Pipeline) LastOutcome() alert.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last
}

// Stats returns throughput counters
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Frames:      p.frames.Stats().Published,
		Snapshots:   p.snapshots.Stats().Published,
		Transitions: p.transitions,
		LastOutcome: p.last,
	}
}

// Close completes the input, releases the internal wiring and completes
// every output. Safe to call more than once.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.frames.Complete()
		p.handles.Release()
		p.snapshots.Complete()
		p.completeOutputs()
		p.logger.Info("Pipeline closed")
	})
}

func (p *Pipeline) extract(in FrameInput) {
	var snapshot body.Snapshot
	if p.extractor != nil {
		snapshot = p.extractor.Extract(in.Frame, in.Orientation)
	}
	p.snapshots.Send(snapshot)
}

func (p *Pipeline) evaluate(snapshot body.Snapshot) {
	set := p.classifier.Classify(snapshot)
	outcome := p.arbiter.Arbitrate(set)

	p.mu.Lock()
	previous := p.last
	p.last = outcome
	changed := previous != outcome
	if changed {
		p.transitions++
	}
	p.mu.Unlock()

	p.logger.Debug("Snapshot evaluated",
		zap.Int("landmarks", snapshot.Present()),
		zap.Stringer("conditions", set),
		zap.Stringer("outcome", outcome))
	if changed {
		p.logger.Info("Posture outcome changed",
			zap.Stringer("from", previous),
			zap.Stringer("to", outcome))
	}

	p.alerts.Send(outcome)
	p.markers.Send(overlay.Markers(snapshot))
	p.segments.Send(overlay.Segments(snapshot))
}

func (p *Pipeline) completeOutputs() {
	p.alerts.Complete()
	p.markers.Complete()
	p.segments.Complete()
}
