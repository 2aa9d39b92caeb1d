package speech

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/skyops/go-dronedeck/internal/log"
)

const (
	// framesPerBuffer gives 50ms chunks at 16kHz, small enough for
	// responsive silence detection.
	framesPerBuffer = 800

	// defaultEnergyThreshold is used before the first calibration.
	defaultEnergyThreshold = 300

	// thresholdHeadroom scales the measured ambient level up so normal
	// room noise does not trigger capture.
	thresholdHeadroom = 1.5
)

// Microphone is a portaudio-backed Listener with simple energy-based
// silence detection, the threshold set by ambient calibration.
type Microphone struct {
	cfg Config

	mu        sync.Mutex
	stream    *portaudio.Stream
	buf       []int16
	threshold float64
	closed    bool
}

// NewMicrophone initializes portaudio and opens the default input device.
func NewMicrophone(cfg Config) (*Microphone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	m := &Microphone{
		cfg:       cfg,
		buf:       make([]int16, framesPerBuffer),
		threshold: defaultEnergyThreshold,
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), framesPerBuffer, m.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open default input stream: %w", err)
	}
	m.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return m, nil
}

// Calibrate measures ambient energy for d and raises the speech threshold
// above it.
func (m *Microphone) Calibrate(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("microphone closed")
	}

	var peak float64
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.stream.Read(); err != nil {
			return fmt.Errorf("read ambient audio: %w", err)
		}
		if e := rms(m.buf); e > peak {
			peak = e
		}
	}

	threshold := peak * thresholdHeadroom
	if threshold < defaultEnergyThreshold {
		threshold = defaultEnergyThreshold
	}
	m.threshold = threshold
	log.Debug("microphone calibrated", "ambient_peak", int(peak), "threshold", int(threshold))
	return nil
}

// Listen waits for speech to start, then records until the speaker pauses
// or the phrase limit is hit. Returns ErrTimeout when nothing above the
// energy threshold arrives within the listen window.
func (m *Microphone) Listen(ctx context.Context) (*Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("microphone closed")
	}

	// Wait for speech.
	waitDeadline := time.Now().Add(m.cfg.ListenTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("read audio: %w", err)
		}
		if rms(m.buf) >= m.threshold {
			break
		}
		if time.Now().After(waitDeadline) {
			return nil, ErrTimeout
		}
	}

	// Record until a pause or the phrase limit.
	samples := append([]int16(nil), m.buf...)
	phraseDeadline := time.Now().Add(m.cfg.PhraseLimit)
	var silentFor time.Duration
	chunk := time.Duration(framesPerBuffer) * time.Second / time.Duration(m.cfg.SampleRate)

	for time.Now().Before(phraseDeadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("read audio: %w", err)
		}
		samples = append(samples, m.buf...)

		if rms(m.buf) < m.threshold {
			silentFor += chunk
			if silentFor >= m.cfg.PauseThreshold {
				break
			}
		} else {
			silentFor = 0
		}
	}

	return &Clip{Samples: samples, SampleRate: m.cfg.SampleRate}, nil
}

// Close stops the stream and shuts portaudio down.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	m.stream.Stop()
	err := m.stream.Close()
	portaudio.Terminate()
	return err
}

// rms is the root-mean-square energy of one chunk.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
