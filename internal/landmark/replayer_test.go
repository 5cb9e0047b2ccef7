package landmark

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

type recordingTarget struct {
	mu        sync.Mutex
	sequences []uint64
	admit     bool
}

func (r *recordingTarget) Offer(frame body.Frame, _ body.Orientation) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences = append(r.sequences, frame.Sequence)
	return r.admit
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sequences)
}

func threeFrames() []RecordedFrame {
	return []RecordedFrame{
		{Sequence: 1, Orientation: body.OrientationUp},
		{Sequence: 2, Orientation: body.OrientationUp},
		{Sequence: 3, Orientation: body.OrientationUp},
	}
}

func TestNewReplayer_RejectsNonPositiveFPS(t *testing.T) {
	_, err := NewReplayer(nil, &recordingTarget{}, 0, false, logger.NewNop())
	assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidConfig))
}

func TestReplayer_SinglePass(t *testing.T) {
	target := &recordingTarget{admit: true}
	replayer, err := NewReplayer(threeFrames(), target, 1000, false, logger.NewNop())
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3}, target.sequences)
	assert.Equal(t, ReplayStats{Offered: 3, Admitted: 3, Passes: 1}, stats)
}

func TestReplayer_CountsRejectedFrames(t *testing.T) {
	target := &recordingTarget{admit: false}
	replayer, err := NewReplayer(threeFrames(), target, 1000, false, logger.NewNop())
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Offered)
	assert.Zero(t, stats.Admitted)
}

func TestReplayer_LoopsUntilCancelled(t *testing.T) {
	target := &recordingTarget{admit: true}
	replayer, err := NewReplayer(threeFrames(), target, 1000, true, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := replayer.Run(ctx)
		done <- err
	}()

	assert.Eventually(t, func() bool { return target.count() > 6 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("replayer did not stop")
	}
}

func TestReplayer_EmptyRecording(t *testing.T) {
	replayer, err := NewReplayer(nil, &recordingTarget{}, 30, true, logger.NewNop())
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Passes)
}
