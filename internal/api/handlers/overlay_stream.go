package handlers

import (
	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/overlay"
	"github.com/danghamo/posture/pkg/rx"
)

// Notification methods for the overlay projections
const (
	MethodOverlayMarkers  = "overlay.markers"
	MethodOverlaySegments = "overlay.segments"
)

// OverlaySources are the projection streams rendered by stream clients
type OverlaySources interface {
	Markers() rx.Source[[]*body.Point]
	Segments() rx.Source[[]overlay.Segment]
}

// Notifier pushes a notification to every stream client without blocking
type Notifier interface {
	Notify(method string, params any)
	GetClientCount() int
}

// OverlayStream forwards marker and segment lists to stream clients.
// Nothing is encoded while no client is connected.
type OverlayStream struct {
	notifier Notifier
	handles  rx.Bag
}

// NewOverlayStream subscribes to both projections
func NewOverlayStream(sources OverlaySources, notifier Notifier) *OverlayStream {
	s := &OverlayStream{notifier: notifier}

	s.handles.Add(sources.Markers().Subscribe(rx.Func(func(markers []*body.Point) {
		s.forward(MethodOverlayMarkers, markers)
	})))
	s.handles.Add(sources.Segments().Subscribe(rx.Func(func(segments []overlay.Segment) {
		s.forward(MethodOverlaySegments, segments)
	})))

	return s
}

func (s *OverlayStream) forward(method string, params any) {
	if s.notifier.GetClientCount() == 0 {
		return
	}
	s.notifier.Notify(method, params)
}

// Close detaches from the projections
func (s *OverlayStream) Close() {
	s.handles.Release()
}
