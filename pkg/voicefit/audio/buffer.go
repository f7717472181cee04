// Package audio converts captured or uploaded audio into canonical 16-bit PCM WAV
// and reads WAV metadata without decoding samples.
package audio

import "time"

// Buffer is a decoded, non-interleaved floating-point audio buffer.
// Channels[c][i] is sample i of channel c, nominally in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Frames is the length of the shortest channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	n := len(b.Channels[0])
	for _, ch := range b.Channels[1:] {
		if len(ch) < n {
			n = len(ch)
		}
	}
	return n
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}
