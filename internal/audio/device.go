package audio

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

// NewDevice builds the device named in configuration: "exec", "log" or "none".
func NewDevice(kind, command string, log *logger.Logger) Device {
	switch strings.ToLower(kind) {
	case "exec":
		return &ExecDevice{Command: command}
	case "none":
		return NopDevice{}
	default:
		return &LogDevice{logger: log.WithComponent("audio-log-device")}
	}
}

// NopDevice accepts every track and plays nothing.
type NopDevice struct{}

// Open implements Device
func (NopDevice) Open(string) (Track, error) {
	return nopTrack{}, nil
}

type nopTrack struct{}

func (nopTrack) Play() error { return nil }
func (nopTrack) Stop() error { return nil }

// LogDevice reports playback in the log instead of producing sound.
type LogDevice struct {
	logger *logger.Logger
}

// Open implements Device
func (d *LogDevice) Open(path string) (Track, error) {
	return &logTrack{path: path, logger: d.logger}, nil
}

type logTrack struct {
	path   string
	logger *logger.Logger
}

func (t *logTrack) Play() error {
	t.logger.Info("Playing alert sound", zap.String("path", t.path))
	return nil
}

func (t *logTrack) Stop() error {
	t.logger.Debug("Stopping alert sound", zap.String("path", t.path))
	return nil
}

// ExecDevice plays files by running an external player such as aplay or afplay.
type ExecDevice struct {
	Command string
	Args    []string
}

// Open checks the file exists and returns a track bound to it
func (d *ExecDevice) Open(path string) (Track, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeAudioTrackNotFound, "sound file unavailable")
	}
	args := append(append([]string{}, d.Args...), path)
	return &execTrack{command: d.Command, args: args}, nil
}

type execTrack struct {
	mu      sync.Mutex
	command string
	args    []string
	cmd     *exec.Cmd
	done    chan struct{} // closed once the reaper's Wait returns
}

func (t *execTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cmd := exec.Command(t.command, t.args...)
	if err := cmd.Start(); err != nil {
		return shared.WrapDomainError(err, shared.ErrCodeAudioDevice, "start player")
	}
	done := make(chan struct{})
	t.cmd, t.done = cmd, done

	// reap the process when it finishes on its own
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	return nil
}

func (t *execTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil {
		return nil
	}
	cmd, done := t.cmd, t.done
	t.cmd, t.done = nil, nil

	select {
	case <-done:
		return nil
	default:
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return shared.WrapDomainError(err, shared.ErrCodeAudioDevice, "stop player")
	}
	return nil
}
