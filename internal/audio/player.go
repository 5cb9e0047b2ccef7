package audio

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/domain/alert"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

var _ alert.AudioSink = (*Player)(nil)

// Track is a loaded sound that can be started and stopped.
type Track interface {
	Play() error
	Stop() error
}

// Device loads sound files into playable tracks.
type Device interface {
	Open(path string) (Track, error)
}

// Config maps track identifiers to files under SoundsDir.
type Config struct {
	SoundsDir string
	Tracks    map[string]string
}

// Player plays at most one alert track at a time. Play and Stop never fail;
// problems are logged and the call becomes a no-op.
type Player struct {
	mu        sync.Mutex
	device    Device
	soundsDir string
	files     map[string]string
	current   Track
	currentID string
	logger    *logger.Logger
}

// NewPlayer creates a player on top of device
func NewPlayer(device Device, cfg Config, log *logger.Logger) *Player {
	files := make(map[string]string, len(cfg.Tracks))
	for id, file := range cfg.Tracks {
		// config keys arrive lower-cased, so lookups are case-insensitive
		files[strings.ToLower(id)] = file
	}

	return &Player{
		device:    device,
		soundsDir: cfg.SoundsDir,
		files:     files,
		logger:    log.WithComponent("audio-player"),
	}
}

// Resolve returns the sound file path for trackID
func (p *Player) Resolve(trackID string) (string, error) {
	file, ok := p.files[strings.ToLower(trackID)]
	if !ok || file == "" {
		return "", shared.NewDomainErrorf(shared.ErrCodeAudioTrackNotFound, "no sound file for track %q", trackID)
	}
	if filepath.IsAbs(file) || p.soundsDir == "" {
		return file, nil
	}
	return filepath.Join(p.soundsDir, file), nil
}

// Play stops whatever is playing, then loads and starts trackID
func (p *Player) Play(trackID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	path, err := p.Resolve(trackID)
	if err != nil {
		p.logger.Debug("Skipping unknown track", zap.String("track", trackID), zap.Error(err))
		return
	}

	track, err := p.device.Open(path)
	if err != nil {
		p.logger.Debug("Failed to load track",
			zap.String("track", trackID),
			zap.String("path", path),
			zap.Error(err))
		return
	}

	if err := track.Play(); err != nil {
		p.logger.Warn("Failed to start track",
			zap.String("track", trackID),
			zap.Error(err))
		return
	}

	p.current = track
	p.currentID = trackID
}

// Stop halts the current track; it is a no-op when nothing is playing
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

// Current returns the id of the playing track, or "" when idle
func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentID
}

func (p *Player) stopLocked() {
	if p.current == nil {
		return
	}
	if err := p.current.Stop(); err != nil {
		p.logger.Debug("Failed to stop track",
			zap.String("track", p.currentID),
			zap.Error(err))
	}
	p.current = nil
	p.currentID = ""
}
