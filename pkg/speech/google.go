package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/internal/observe"
)

// GoogleTranscriber sends clips to the Google Cloud Speech-to-Text v1
// REST API.
type GoogleTranscriber struct {
	svc     *speechapi.Service
	lang    string
	metrics *observe.Metrics
}

// NewGoogleTranscriber builds a transcriber authenticated with an API key.
func NewGoogleTranscriber(ctx context.Context, apiKey string) (*GoogleTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("speech: google api key is empty")
	}
	svc, err := speechapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create speech service: %w", err)
	}
	return &GoogleTranscriber{
		svc:     svc,
		lang:    "en-US",
		metrics: observe.Default(),
	}, nil
}

// Transcribe sends one clip and returns the top alternative. Empty
// results map to ErrUnrecognized; transport or API failures map to
// ErrService.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, clip *Clip) (string, error) {
	wavData, err := EncodeWAV(clip)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}

	req := &speechapi.RecognizeRequest{
		Config: &speechapi.RecognitionConfig{
			// Encoding is left unspecified: the WAV header carries it.
			LanguageCode:    g.lang,
			SampleRateHertz: int64(clip.SampleRate),
		},
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wavData),
		},
	}

	start := time.Now()
	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	elapsed := time.Since(start)
	g.metrics.TranscriptionDuration.Record(ctx, elapsed.Seconds())

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}

	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			text := strings.TrimSpace(alt.Transcript)
			if text != "" {
				log.Debug("transcription complete",
					"text", text, "duration_ms", elapsed.Milliseconds())
				return text, nil
			}
		}
	}
	return "", ErrUnrecognized
}
