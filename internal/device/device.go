// Package device provides the local microphone for the capture pipeline.
//
// The PortAudio backend needs cgo and the native PortAudio library, so it is only
// compiled with the portaudio build tag. Without the tag, Microphone reports
// ErrNotSupported and the CLI falls back to file uploads.
package device

import (
	"encoding/binary"
	"errors"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
)

var ErrNotSupported = errors.New("microphone capture not supported in this build (rebuild with -tags portaudio)")

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	// framesPerBuffer is the PortAudio read size.
	framesPerBuffer = 1024
)

type Config struct {
	SampleRate int
	Channels   int
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	return c
}

// MIMEType is the raw PCM type every take from this device carries.
func (c Config) MIMEType() string {
	c = c.withDefaults()
	return audio.L16MIMEType(c.SampleRate, c.Channels)
}

// int16Bytes packs samples as little-endian signed 16-bit PCM.
func int16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
