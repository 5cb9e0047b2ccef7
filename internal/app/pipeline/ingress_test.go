package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/rx"
)

func TestIngress_AcceptsSequentialFrames(t *testing.T) {
	subject := rx.NewSubject[FrameInput]()
	var got []uint64
	subject.Subscribe(rx.Func(func(in FrameInput) { got = append(got, in.Frame.Sequence) }))

	ingress := NewIngress(subject.AsSink(), 0, logger.NewNop())
	for seq := uint64(1); seq <= 3; seq++ {
		assert.True(t, ingress.Offer(body.Frame{Sequence: seq}, body.OrientationUp))
	}

	assert.Equal(t, []uint64{1, 2, 3}, got)
	assert.Equal(t, IngressStats{Accepted: 3}, ingress.Stats())
}

func TestIngress_DropsWhileBusy(t *testing.T) {
	subject := rx.NewSubject[FrameInput]()
	ingress := NewIngress(subject.AsSink(), 0, logger.NewNop())

	var nested []bool
	subject.Subscribe(rx.Func(func(in FrameInput) {
		if in.Frame.Sequence == 1 {
			// a frame arriving while frame 1 is still in flight
			nested = append(nested, ingress.Offer(body.Frame{Sequence: 2}, body.OrientationUp))
		}
	}))

	assert.True(t, ingress.Offer(body.Frame{Sequence: 1}, body.OrientationUp))
	assert.Equal(t, []bool{false}, nested)

	stats := ingress.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(1), stats.DroppedBusy)

	// not busy any more
	assert.True(t, ingress.Offer(body.Frame{Sequence: 3}, body.OrientationUp))
}

func TestIngress_RateCap(t *testing.T) {
	subject := rx.NewSubject[FrameInput]()
	ingress := NewIngress(subject.AsSink(), 0.5, logger.NewNop())

	assert.True(t, ingress.Offer(body.Frame{Sequence: 1}, body.OrientationUp))
	assert.False(t, ingress.Offer(body.Frame{Sequence: 2}, body.OrientationUp))

	stats := ingress.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(1), stats.DroppedRate)
	assert.Zero(t, stats.DroppedBusy)
}

func TestIngress_FeedsPipeline(t *testing.T) {
	p := New(Dependencies{Extractor: &stubExtractor{snapshot: headDropSnapshot()}}, logger.NewNop())
	defer p.Close()

	alerts := collect(t, p.Alerts())
	ingress := NewIngress(p.Input(), 0, logger.NewNop())

	assert.True(t, ingress.Offer(body.Frame{Sequence: 1}, body.OrientationUp))
	assert.Len(t, *alerts, 1)
	assert.Equal(t, uint64(1), p.Stats().Frames)
}
