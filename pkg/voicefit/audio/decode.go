package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
)

// Decoder turns an encoded blob of the given MIME type into a float buffer.
type Decoder interface {
	Decode(ctx context.Context, data []byte, mimeType string) (*Buffer, error)
}

// DecodeWAV decodes a 16-bit PCM WAV file into a float buffer. It is the inverse of
// EncodeWAV: decoded samples are within one quantization step of the clamped input.
func DecodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	if d.WavAudioFormat != pcmFormat || d.BitDepth != bitsPerSample {
		return nil, ErrUnsupportedEncoding
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}

	numChannels := pcm.Format.NumChannels
	if numChannels <= 0 {
		return nil, errors.New("WAV declares zero channels")
	}

	frames := len(pcm.Data) / numChannels
	buf := &Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   make([][]float32, numChannels),
	}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			buf.Channels[c][i] = pcm16ToFloat(int16(pcm.Data[i*numChannels+c]))
		}
	}

	return buf, nil
}

// DecodeL16 decodes interleaved signed 16-bit little-endian PCM, the raw format
// produced by the PortAudio microphone.
func DecodeL16(data []byte, sampleRate, numChannels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if numChannels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", numChannels)
	}

	frames := len(data) / (numChannels * bytesPerSample)
	buf := &Buffer{SampleRate: sampleRate, Channels: make([][]float32, numChannels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}

	offset := 0
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			v := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
			buf.Channels[c][i] = pcm16ToFloat(v)
			offset += bytesPerSample
		}
	}
	return buf, nil
}

// L16MIMEType builds the content type for raw PCM captures, e.g.
// "audio/L16; rate=44100; channels=1".
func L16MIMEType(sampleRate, numChannels int) string {
	return mime.FormatMediaType("audio/L16", map[string]string{
		"rate":     strconv.Itoa(sampleRate),
		"channels": strconv.Itoa(numChannels),
	})
}

// MIMEDecoder dispatches on the blob's media type: WAV and L16 are decoded in
// process, everything else (webm, ogg, opus) goes to Fallback.
type MIMEDecoder struct {
	Fallback Decoder
}

func (m MIMEDecoder) Decode(ctx context.Context, data []byte, mimeType string) (*Buffer, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}

	switch strings.ToLower(mediaType) {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return DecodeWAV(data)
	case "audio/l16":
		rate, _ := strconv.Atoi(params["rate"])
		channels := 1
		if v, err := strconv.Atoi(params["channels"]); err == nil {
			channels = v
		}
		return DecodeL16(data, rate, channels)
	}

	if m.Fallback == nil {
		return nil, fmt.Errorf("no decoder for %q", mimeType)
	}
	return m.Fallback.Decode(ctx, data, mimeType)
}
