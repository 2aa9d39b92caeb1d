// Package speech captures microphone audio and turns utterances into
// text. The Listener does silence-gated capture; the Transcriber sends
// the captured clip to a recognition backend.
package speech

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout means no speech started within the listen window.
	ErrTimeout = errors.New("speech: listen timed out")

	// ErrUnrecognized means the backend heard audio but produced no text.
	ErrUnrecognized = errors.New("speech: could not understand audio")

	// ErrService means the recognition backend failed or was unreachable.
	ErrService = errors.New("speech: recognition service unavailable")
)

// Clip is one captured utterance of mono PCM samples.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Listener captures one utterance at a time from an audio source.
type Listener interface {
	// Calibrate samples ambient noise for d and adjusts the energy
	// threshold used to detect speech.
	Calibrate(ctx context.Context, d time.Duration) error

	// Listen blocks until an utterance is captured or the listen window
	// passes with no speech, in which case it returns ErrTimeout.
	Listen(ctx context.Context) (*Clip, error)

	Close() error
}

// Transcriber converts one clip into text. It returns ErrUnrecognized
// when the audio carried no recognizable speech and ErrService when the
// backend itself failed.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *Clip) (string, error)
}

// Config holds the capture tuning knobs.
type Config struct {
	// SampleRate in Hz for microphone capture.
	SampleRate int

	// ListenTimeout is how long Listen waits for speech to start.
	ListenTimeout time.Duration

	// PhraseLimit caps the length of a single utterance.
	PhraseLimit time.Duration

	// PauseThreshold is the silence gap that ends an utterance.
	PauseThreshold time.Duration

	// CalibrationDuration is the initial ambient sampling window.
	CalibrationDuration time.Duration
}

// DefaultConfig returns the tuning used by the dashboard.
func DefaultConfig() Config {
	return Config{
		SampleRate:          16000,
		ListenTimeout:       2 * time.Second,
		PhraseLimit:         4 * time.Second,
		PauseThreshold:      600 * time.Millisecond,
		CalibrationDuration: 2 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("speech: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.ListenTimeout <= 0 {
		return fmt.Errorf("speech: listen timeout must be positive, got %s", c.ListenTimeout)
	}
	if c.PhraseLimit <= 0 {
		return fmt.Errorf("speech: phrase limit must be positive, got %s", c.PhraseLimit)
	}
	if c.PauseThreshold <= 0 {
		return fmt.Errorf("speech: pause threshold must be positive, got %s", c.PauseThreshold)
	}
	if c.PauseThreshold >= c.PhraseLimit {
		return fmt.Errorf("speech: pause threshold %s must be shorter than phrase limit %s", c.PauseThreshold, c.PhraseLimit)
	}
	return nil
}
