// Package audio owns the single audio slot of the client: at most one sound
// plays or one recording runs at any time.
//
// Session is a state machine over a Driver. Every start bumps a generation
// counter; results that arrive for an older generation (a load that finished
// after the user moved on, a completion signal from a stopped sound) are
// released and otherwise ignored.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/filex"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
	"github.com/google/uuid"
)

type State string

const (
	Idle      State = "idle"
	Loading   State = "loading"
	Playing   State = "playing"
	Paused    State = "paused"
	Recording State = "recording"
	Stopping  State = "stopping"
)

const (
	MaxRecording = 60 * time.Second
	MinRecording = time.Second
)

var (
	// ErrInvalidState is returned for a request that does not apply in the
	// current state, e.g. pausing while idle. The state is left unchanged.
	ErrInvalidState = errors.New("not possible in the current audio state")
	// ErrSuperseded is returned by Play when a newer request took the slot
	// before this one finished loading.
	ErrSuperseded = errors.New("audio request superseded")
)

// Fetcher makes remote media available locally. *mediacache.Cache satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, remoteURL string, progress netx.ProgressFunc) (string, error)
}

// Snapshot is an observable view of the session.
type Snapshot struct {
	State   State
	OwnerID string
}

type Session struct {
	driver Driver
	media  Fetcher
	recDir string
	log    logging.Logger
	now    func() time.Time
	after  func(d time.Duration, f func()) *time.Timer

	// slot serializes creation of driver resources, so a superseded
	// resource is always released before the next one is created.
	slot sync.Mutex

	mu        sync.Mutex
	gen       uint64
	state     State
	owner     string
	sound     Sound
	rec       Recorder
	recPath   string
	recStart  time.Time
	recTimer  *time.Timer
	observers []func(Snapshot)
	onAuto    func(path string, err error)
}

func NewSession(driver Driver, media Fetcher, recordingsDir string, log logging.Logger) *Session {
	return &Session{
		driver: driver,
		media:  media,
		recDir: recordingsDir,
		log:    log,
		now:    time.Now,
		after:  time.AfterFunc,
		state:  Idle,
	}
}

// Observe registers fn for every state change.
func (s *Session) Observe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// OnRecordingFinished registers fn for recordings stopped by the time limit.
func (s *Session) OnRecordingFinished(fn func(path string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuto = fn
}

func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, OwnerID: s.owner}
}

// Play starts src for ownerID. Any active sound or recording is stopped
// first. Calling Play again for the owner that is currently playing, paused
// or loading stops it instead (toggle). While a recording is still
// stopping, Play returns ErrInvalidState.
//
// src may be a backend path, an absolute URL, a file:// URL or a local path.
func (s *Session) Play(ctx context.Context, src, ownerID string) error {
	s.mu.Lock()
	if s.owner == ownerID && (s.state == Playing || s.state == Paused || s.state == Loading) {
		s.stopLocked(ctx)
		s.gen++
		s.setLocked(Idle, "")
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}

	if s.state == Stopping {
		s.mu.Unlock()
		return fmt.Errorf("play while %s: %w", Stopping, ErrInvalidState)
	}
	if s.state == Recording {
		s.discardRecordingLocked(ctx)
	}
	s.stopLocked(ctx)
	s.gen++
	gen := s.gen
	s.setLocked(Loading, ownerID)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	path, err := s.resolve(ctx, src)
	if err != nil {
		return s.failLoad(ctx, gen, fmt.Errorf("load %s: %w", src, err))
	}

	s.slot.Lock()
	defer s.slot.Unlock()

	if !s.current(gen) {
		return ErrSuperseded
	}

	sound, err := s.driver.Load(ctx, path)
	if err != nil {
		return s.failLoad(ctx, gen, fmt.Errorf("load %s: %w", src, err))
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.release(ctx, sound)
		return ErrSuperseded
	}
	if err := sound.Play(); err != nil {
		s.setLocked(Idle, "")
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.release(ctx, sound)
		s.notify(snap)
		return fmt.Errorf("play %s: %w", src, err)
	}
	s.sound = sound
	s.setLocked(Playing, ownerID)
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info(ctx, "playback started", "owner", ownerID, "path", path)
	s.notify(snap)
	go s.watch(gen, sound)
	return nil
}

func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Playing || s.sound == nil {
		state := s.state
		s.mu.Unlock()
		s.log.Warn(ctx, "pause ignored", "state", state)
		return fmt.Errorf("pause while %s: %w", state, ErrInvalidState)
	}
	if err := s.sound.Pause(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("pause: %w", err)
	}
	s.state = Paused
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Paused || s.sound == nil {
		state := s.state
		s.mu.Unlock()
		s.log.Warn(ctx, "resume ignored", "state", state)
		return fmt.Errorf("resume while %s: %w", state, ErrInvalidState)
	}
	if err := s.sound.Resume(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("resume: %w", err)
	}
	s.state = Playing
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Stop ends playback, including a load still in progress. Stopping while
// idle is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Playing, Paused, Loading:
	default:
		s.mu.Unlock()
		return nil
	}
	s.stopLocked(ctx)
	s.gen++
	s.setLocked(Idle, "")
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// StartRecording captures the microphone into a new WAV file. Playback is
// stopped first. The capture stops by itself after MaxRecording.
func (s *Session) StartRecording(ctx context.Context) error {
	if !s.driver.MicrophoneGranted() {
		return common.ErrPermissionDenied
	}

	s.mu.Lock()
	if s.state == Recording || s.state == Stopping {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("record while %s: %w", state, ErrInvalidState)
	}
	s.stopLocked(ctx)
	s.gen++
	gen := s.gen
	s.setLocked(Recording, "")
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	dir, err := filex.EnsureDir(s.recDir)
	if err != nil {
		return s.failLoad(ctx, gen, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err))
	}
	path := filepath.Join(dir, "recording-"+uuid.NewString()+".wav")

	s.slot.Lock()
	defer s.slot.Unlock()

	if !s.current(gen) {
		return ErrSuperseded
	}
	rec, err := s.driver.Record(ctx, path)
	if err != nil {
		return s.failLoad(ctx, gen, fmt.Errorf("start recording: %w", err))
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		_ = rec.Stop()
		_ = os.Remove(path)
		return ErrSuperseded
	}
	s.rec = rec
	s.recPath = path
	s.recStart = s.now()
	s.recTimer = s.after(MaxRecording, func() { s.autoStop(gen) })
	s.mu.Unlock()

	s.log.Info(ctx, "recording started", "path", path)
	return nil
}

// StopRecording finishes the capture and returns the file path. A capture
// shorter than MinRecording is discarded with common.ErrRecordingTooShort.
func (s *Session) StopRecording(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != Recording || s.rec == nil {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("stop recording while %s: %w", state, ErrInvalidState)
	}
	return s.finishRecordingLocked(ctx)
}

// finishRecordingLocked is entered with s.mu held and releases it.
func (s *Session) finishRecordingLocked(ctx context.Context) (string, error) {
	rec, path := s.rec, s.recPath
	elapsed := s.now().Sub(s.recStart)
	if s.recTimer != nil {
		s.recTimer.Stop()
		s.recTimer = nil
	}
	s.rec, s.recPath = nil, ""
	s.gen++
	gen := s.gen
	s.setLocked(Stopping, "")
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	stopErr := rec.Stop()

	s.mu.Lock()
	if s.gen == gen {
		s.setLocked(Idle, "")
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	} else {
		s.mu.Unlock()
	}

	if stopErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("stop recording: %w", stopErr)
	}
	if elapsed < MinRecording {
		_ = os.Remove(path)
		s.log.Info(ctx, "recording discarded", "elapsed", elapsed)
		return "", common.ErrRecordingTooShort
	}
	s.log.Info(ctx, "recording finished", "path", path, "elapsed", elapsed)
	return path, nil
}

func (s *Session) autoStop(gen uint64) {
	ctx := context.Background()
	s.mu.Lock()
	if s.gen != gen || s.state != Recording || s.rec == nil {
		s.mu.Unlock()
		return
	}
	s.log.Info(ctx, "recording limit reached", "limit", MaxRecording)
	cb := s.onAuto
	path, err := s.finishRecordingLocked(ctx)
	if cb != nil {
		cb(path, err)
	}
}

// Close releases every resource and leaves the session idle.
func (s *Session) Close() error {
	ctx := context.Background()
	s.mu.Lock()
	if s.state == Recording {
		s.discardRecordingLocked(ctx)
	}
	s.stopLocked(ctx)
	s.gen++
	s.setLocked(Idle, "")
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

func (s *Session) resolve(ctx context.Context, src string) (string, error) {
	switch {
	case strings.HasPrefix(src, "file://"):
		return strings.TrimPrefix(src, "file://"), nil
	case filepath.IsAbs(src) && filex.Exists(src):
		return src, nil
	default:
		return s.media.Fetch(ctx, src, nil)
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// failLoad returns the slot to Idle when gen still owns it.
func (s *Session) failLoad(ctx context.Context, gen uint64, err error) error {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.setLocked(Idle, "")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Warn(ctx, "audio start failed", "err", err)
	s.notify(snap)
	return err
}

// watch returns the slot to Idle when sound finishes on its own.
func (s *Session) watch(gen uint64, sound Sound) {
	<-sound.Done()

	s.mu.Lock()
	if s.gen != gen || s.sound != sound {
		s.mu.Unlock()
		return
	}
	s.sound = nil
	s.setLocked(Idle, "")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.release(context.Background(), sound)
	s.notify(snap)
}

// stopLocked stops and releases the active sound, if any.
func (s *Session) stopLocked(ctx context.Context) {
	if s.sound == nil {
		return
	}
	sound := s.sound
	s.sound = nil
	if err := sound.Stop(); err != nil {
		s.log.Warn(ctx, "stop sound", "err", err)
	}
	s.release(ctx, sound)
}

func (s *Session) discardRecordingLocked(ctx context.Context) {
	if s.recTimer != nil {
		s.recTimer.Stop()
		s.recTimer = nil
	}
	if s.rec != nil {
		if err := s.rec.Stop(); err != nil {
			s.log.Warn(ctx, "stop recording", "err", err)
		}
		_ = os.Remove(s.recPath)
	}
	s.rec, s.recPath = nil, ""
}

func (s *Session) release(ctx context.Context, sound Sound) {
	if err := sound.Release(); err != nil {
		s.log.Warn(ctx, "release sound", "err", err)
	}
}

func (s *Session) setLocked(state State, owner string) {
	s.state = state
	s.owner = owner
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, OwnerID: s.owner}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	obs := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}
