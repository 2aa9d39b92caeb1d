// Package recognize runs the voice control loop: listen for an
// utterance, transcribe it, and hand the text to the command layer.
// Silence is normal and stays quiet; repeated hard failures trigger a
// backoff and a microphone recalibration.
package recognize

import (
	"context"
	"errors"
	"time"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/pkg/command"
	"github.com/skyops/go-dronedeck/pkg/speech"
)

const (
	// maxAttempts is how many transcription tries each utterance gets.
	maxAttempts = 2

	// maxConsecutiveFailures triggers the backoff path.
	maxConsecutiveFailures = 5

	// failureBackoff is the pause before resuming after repeated failures.
	failureBackoff = 2 * time.Second

	// recoveryCalibration is the ambient re-sampling window used when
	// recovering from repeated failures.
	recoveryCalibration = time.Second
)

// SubmitFunc delivers recognized text to the command layer.
type SubmitFunc func(ctx context.Context, text string) command.Outcome

// Publisher pushes events to dashboard clients. *hub.Hub satisfies it.
type Publisher interface {
	Publish(event string, payload any) error
}

// Loop drives one microphone through listen/transcribe/submit cycles.
type Loop struct {
	listener    speech.Listener
	transcriber speech.Transcriber
	submit      SubmitFunc
	events      Publisher

	// Backoff and Recovery default to failureBackoff and
	// recoveryCalibration.
	Backoff  time.Duration
	Recovery time.Duration

	// consecutive counts hard failures since the last success. Listen
	// timeouts and unrecognized speech do not count; the user simply
	// not talking, or mumbling, is not a fault.
	consecutive int
}

// New wires a recognition loop. events may be nil.
func New(listener speech.Listener, transcriber speech.Transcriber, submit SubmitFunc, events Publisher) *Loop {
	return &Loop{
		listener:    listener,
		transcriber: transcriber,
		submit:      submit,
		events:      events,
		Backoff:     failureBackoff,
		Recovery:    recoveryCalibration,
	}
}

// Run cycles until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	log.Info("voice recognition loop started")
	for {
		if err := ctx.Err(); err != nil {
			log.Info("voice recognition loop stopped")
			return err
		}
		l.cycle(ctx)
	}
}

func (l *Loop) cycle(ctx context.Context) {
	clip, err := l.listener.Listen(ctx)
	switch {
	case err == nil:
	case errors.Is(err, speech.ErrTimeout):
		// Nobody spoke. Not a failure.
		return
	case ctx.Err() != nil:
		return
	default:
		log.Warn("microphone read failed", "error", err)
		l.recordFailure(ctx)
		return
	}

	text, err := l.transcribe(ctx, clip)
	switch {
	case err == nil:
		l.consecutive = 0
		l.dispatch(ctx, text)
	case errors.Is(err, speech.ErrUnrecognized):
		log.Debug("utterance not recognized")
	case ctx.Err() != nil:
	default:
		log.Warn("transcription failed", "error", err)
		l.recordFailure(ctx)
	}
}

// transcribe gives each utterance up to maxAttempts tries, retrying only
// when the backend heard nothing intelligible. Service failures abort
// immediately.
func (l *Loop) transcribe(ctx context.Context, clip *speech.Clip) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := l.transcriber.Transcribe(ctx, clip)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !errors.Is(err, speech.ErrUnrecognized) {
			return "", err
		}
	}
	return "", lastErr
}

func (l *Loop) dispatch(ctx context.Context, text string) {
	log.Info("voice command heard", "text", text)
	out := l.submit(ctx, text)
	if l.events != nil {
		l.events.Publish("command_executed", out)
	}
}

func (l *Loop) recordFailure(ctx context.Context) {
	l.consecutive++
	if l.consecutive < maxConsecutiveFailures {
		return
	}

	log.Warn("too many recognition failures, backing off",
		"failures", l.consecutive, "backoff", l.Backoff.String())

	select {
	case <-time.After(l.Backoff):
	case <-ctx.Done():
		return
	}

	if err := l.listener.Calibrate(ctx, l.Recovery); err != nil {
		log.Warn("recalibration failed", "error", err)
	}
	l.consecutive = 0
}
