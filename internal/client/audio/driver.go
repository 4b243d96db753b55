package audio

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by a driver that cannot perform an operation
// on this platform, such as pausing an external player on Windows.
var ErrUnsupported = errors.New("not supported by the audio driver")

// Driver creates playback and capture resources.
type Driver interface {
	// Load prepares the local file at path for playback without starting it.
	Load(ctx context.Context, path string) (Sound, error)
	// Record starts capturing the microphone into a WAV file at path.
	Record(ctx context.Context, path string) (Recorder, error)
	// MicrophoneGranted reports whether capture is possible.
	MicrophoneGranted() bool
}

// Sound is one playback resource. Release must be called exactly once.
type Sound interface {
	Play() error
	Pause() error
	Resume() error
	Stop() error
	Release() error
	// Done is closed when playback ends for any reason, including Release.
	Done() <-chan struct{}
}

// Recorder is a running capture. Stop finalizes the file.
type Recorder interface {
	Stop() error
}
