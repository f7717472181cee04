//go:build !portaudio

package device

import (
	"context"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/capture"
)

// Microphone is unavailable without PortAudio.
type Microphone struct {
	cfg Config
}

func NewMicrophone(cfg Config) *Microphone {
	return &Microphone{cfg: cfg.withDefaults()}
}

func Available() bool { return false }

func (m *Microphone) RequestStream(context.Context) (capture.Stream, error) {
	return nil, ErrNotSupported
}

func (m *Microphone) IsTypeSupported(string) bool { return false }

func (m *Microphone) NewRecorder(capture.Stream, string) (capture.Recorder, error) {
	return nil, ErrNotSupported
}
