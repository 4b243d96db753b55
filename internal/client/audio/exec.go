package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/logging"
)

// recorderGrace bounds how long a recorder may take to finalize its file
// after being interrupted.
const recorderGrace = 3 * time.Second

// ExecDriver plays and records through external programs. Each command is
// an argv prefix; the file path is appended as the last argument.
type ExecDriver struct {
	player   []string
	recorder []string
	log      logging.Logger
}

func NewExecDriver(player, recorder []string, log logging.Logger) *ExecDriver {
	return &ExecDriver{player: player, recorder: recorder, log: log}
}

type candidate struct {
	bin  string
	args []string
}

// DetectPlayer returns the first audio player found on PATH, or nil.
func DetectPlayer() []string {
	return detect([]candidate{
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"afplay", nil},
		{"paplay", nil},
		{"aplay", []string{"-q"}},
		{"mpv", []string{"--no-video", "--really-quiet"}},
	})
}

// DetectRecorder returns the first microphone recorder found on PATH, or nil.
// Captures are 16 kHz mono WAV.
func DetectRecorder() []string {
	cands := []candidate{
		{"arecord", []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"}},
		{"rec", []string{"-q", "-r", "16000", "-c", "1"}},
	}
	if runtime.GOOS == "darwin" {
		cands = append(cands, candidate{"ffmpeg", []string{"-loglevel", "quiet", "-f", "avfoundation", "-i", ":0", "-ar", "16000", "-ac", "1", "-y"}})
	} else {
		cands = append(cands, candidate{"ffmpeg", []string{"-loglevel", "quiet", "-f", "pulse", "-i", "default", "-ar", "16000", "-ac", "1", "-y"}})
	}
	return detect(cands)
}

func detect(cands []candidate) []string {
	for _, c := range cands {
		if path, err := exec.LookPath(c.bin); err == nil {
			return append([]string{path}, c.args...)
		}
	}
	return nil
}

func (d *ExecDriver) MicrophoneGranted() bool {
	return len(d.recorder) > 0
}

func (d *ExecDriver) Load(ctx context.Context, path string) (Sound, error) {
	if len(d.player) == 0 {
		return nil, errors.New("no audio player configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	argv := append(append([]string(nil), d.player...), path)
	return &execSound{argv: argv, done: make(chan struct{}), log: d.log}, nil
}

func (d *ExecDriver) Record(ctx context.Context, path string) (Recorder, error) {
	if len(d.recorder) == 0 {
		return nil, errors.New("no audio recorder configured")
	}
	argv := append(append([]string(nil), d.recorder...), path)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	r := &execRecorder{cmd: cmd, exited: make(chan error, 1)}
	go func() { r.exited <- cmd.Wait() }()
	return r, nil
}

type execSound struct {
	argv []string
	log  logging.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	doneOnce sync.Once
	released bool
}

func (s *execSound) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return errors.New("sound released")
	}
	if s.cmd != nil {
		return errors.New("sound already started")
	}

	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.argv[0], err)
	}
	s.cmd = cmd
	go func() {
		_ = cmd.Wait()
		s.finish()
	}()
	return nil
}

func (s *execSound) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return errors.New("sound not started")
	}
	return suspend(s.cmd.Process)
}

func (s *execSound) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return errors.New("sound not started")
	}
	return resume(s.cmd.Process)
}

func (s *execSound) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killLocked()
}

func (s *execSound) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	err := s.killLocked()
	if s.cmd == nil {
		s.finish()
	}
	return err
}

func (s *execSound) Done() <-chan struct{} { return s.done }

func (s *execSound) killLocked() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	// a stopped process must be continued to receive the kill on some systems
	_ = resume(s.cmd.Process)
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (s *execSound) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

type execRecorder struct {
	cmd    *exec.Cmd
	exited chan error
	once   sync.Once
	err    error
}

// Stop interrupts the recorder so it can write the WAV trailer, and kills it
// if it does not exit within recorderGrace.
func (r *execRecorder) Stop() error {
	r.once.Do(func() {
		if err := r.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			_ = r.cmd.Process.Kill()
		}
		select {
		case <-r.exited:
		case <-time.After(recorderGrace):
			_ = r.cmd.Process.Kill()
			<-r.exited
			r.err = errors.New("recorder did not exit in time")
		}
	})
	return r.err
}
