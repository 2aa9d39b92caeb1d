package speech

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero listen timeout", func(c *Config) { c.ListenTimeout = 0 }, true},
		{"zero phrase limit", func(c *Config) { c.PhraseLimit = 0 }, true},
		{"pause longer than phrase", func(c *Config) { c.PauseThreshold = 10 * time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClipDuration(t *testing.T) {
	clip := &Clip{Samples: make([]int16, 16000), SampleRate: 16000}
	if got := clip.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
}

func TestEncodeWAV(t *testing.T) {
	clip := &Clip{Samples: []int16{0, 1000, -1000, 32767, -32768}, SampleRate: 16000}

	data, err := EncodeWAV(clip)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	if len(data) < 44 {
		t.Fatalf("wav too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("missing RIFF/WAVE markers: % x", data[:12])
	}

	// fmt chunk: PCM, mono, 16kHz, 16-bit.
	if string(data[12:16]) != "fmt " {
		t.Fatalf("expected fmt chunk at offset 12, got %q", data[12:16])
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", format)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if depth := binary.LittleEndian.Uint16(data[34:36]); depth != 16 {
		t.Errorf("bit depth = %d, want 16", depth)
	}
}

func TestEncodeWAV_EmptyClip(t *testing.T) {
	if _, err := EncodeWAV(&Clip{SampleRate: 16000}); err == nil {
		t.Error("expected error for empty clip")
	}
	if _, err := EncodeWAV(nil); err == nil {
		t.Error("expected error for nil clip")
	}
}

func TestMemWriteSeeker(t *testing.T) {
	ws := &memWriteSeeker{}

	ws.Write([]byte("hello world"))
	if _, err := ws.Seek(0, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	ws.Write([]byte("HELLO"))

	if got := string(ws.buf); got != "HELLO world" {
		t.Errorf("buffer = %q, want %q", got, "HELLO world")
	}

	if _, err := ws.Seek(-1, 0); err == nil {
		t.Error("expected error for negative seek")
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Errorf("rms(nil) = %v, want 0", got)
	}
	if got := rms([]int16{0, 0, 0}); got != 0 {
		t.Errorf("rms(silence) = %v, want 0", got)
	}
	loud := rms([]int16{10000, -10000, 10000, -10000})
	quiet := rms([]int16{100, -100, 100, -100})
	if loud <= quiet {
		t.Errorf("rms ordering broken: loud=%v quiet=%v", loud, quiet)
	}
}
