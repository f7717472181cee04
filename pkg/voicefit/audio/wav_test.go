package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func sineBuffer(rate, channels int, seconds float64) *Buffer {
	frames := int(float64(rate) * seconds)
	buf := &Buffer{SampleRate: rate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
		for i := range buf.Channels[c] {
			buf.Channels[c][i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)+float64(c)))
		}
	}
	return buf
}

func TestEncodeWAVHeader(t *testing.T) {
	buf := sineBuffer(44100, 2, 0.1)
	frames := buf.Frames()

	out := EncodeWAV(buf)

	if want := WAVHeaderSize + frames*2*2; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}

	le := binary.LittleEndian
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"RIFF", string(out[0:4]), "RIFF"},
		{"WAVE", string(out[8:12]), "WAVE"},
		{"fmt ", string(out[12:16]), "fmt "},
		{"data", string(out[36:40]), "data"},
		{"ChunkSize", le.Uint32(out[4:8]), uint32(36 + frames*4)},
		{"Subchunk1Size", le.Uint32(out[16:20]), uint32(16)},
		{"AudioFormat", le.Uint16(out[20:22]), uint16(1)},
		{"NumChannels", le.Uint16(out[22:24]), uint16(2)},
		{"SampleRate", le.Uint32(out[24:28]), uint32(44100)},
		{"ByteRate", le.Uint32(out[28:32]), uint32(44100 * 4)},
		{"BlockAlign", le.Uint16(out[32:34]), uint16(4)},
		{"BitsPerSample", le.Uint16(out[34:36]), uint16(16)},
		{"DataSize", le.Uint32(out[40:44]), uint32(frames * 4)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	tests := []struct {
		name string
		buf  *Buffer
	}{
		{"nil buffer", nil},
		{"no channels", &Buffer{SampleRate: 48000}},
		{"no frames", &Buffer{SampleRate: 48000, Channels: [][]float32{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EncodeWAV(tt.buf)
			if len(out) != WAVHeaderSize {
				t.Fatalf("len = %d, want header only (%d)", len(out), WAVHeaderSize)
			}
			if size := binary.LittleEndian.Uint32(out[40:44]); size != 0 {
				t.Errorf("DataSize = %d, want 0", size)
			}
			if size := binary.LittleEndian.Uint32(out[4:8]); size != 36 {
				t.Errorf("ChunkSize = %d, want 36", size)
			}
		})
	}
}

func TestEncodeWAVShortestChannelWins(t *testing.T) {
	buf := &Buffer{SampleRate: 8000, Channels: [][]float32{
		{0.1, 0.2, 0.3, 0.4},
		{0.1, 0.2},
	}}

	out := EncodeWAV(buf)
	if want := WAVHeaderSize + 2*2*2; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
}

func TestFloatToPCM16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2, 32767},
		{-3, -32768},
		{0.5, 16383},
		{-0.5, -16384},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 32767},
		{float32(math.Inf(-1)), -32768},
	}

	for _, tt := range tests {
		if got := floatToPCM16(tt.in); got != tt.want {
			t.Errorf("floatToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncodeWAVSampleLayout(t *testing.T) {
	buf := &Buffer{SampleRate: 8000, Channels: [][]float32{
		{1, -1},
		{0, 0.5},
	}}

	out := EncodeWAV(buf)
	data := out[WAVHeaderSize:]
	want := []int16{32767, 0, -32768, 16383}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sineBuffer(22050, 2, 0.25)
	in.Channels[0][10] = 1.7
	in.Channels[1][11] = -4

	out, err := DecodeWAV(EncodeWAV(in))
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}

	if out.SampleRate != in.SampleRate {
		t.Errorf("SampleRate = %d, want %d", out.SampleRate, in.SampleRate)
	}
	if out.NumChannels() != in.NumChannels() {
		t.Fatalf("channels = %d, want %d", out.NumChannels(), in.NumChannels())
	}
	if out.Frames() != in.Frames() {
		t.Fatalf("frames = %d, want %d", out.Frames(), in.Frames())
	}

	const step = 1.0 / 32767
	for c := range in.Channels {
		for i, s := range in.Channels[c] {
			want := math.Max(-1, math.Min(1, float64(s)))
			if diff := math.Abs(float64(out.Channels[c][i]) - want); diff > step {
				t.Fatalf("channel %d sample %d: got %v, want %v (diff %v)", c, i, out.Channels[c][i], want, diff)
			}
		}
	}
}

func TestDecodeWAVRejectsNonWAV(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not a riff file at all")); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestDecodeL16(t *testing.T) {
	var raw bytes.Buffer
	for _, v := range []int16{0, 32767, -32768, 16384} {
		binary.Write(&raw, binary.LittleEndian, v)
	}

	buf, err := DecodeL16(raw.Bytes(), 16000, 2)
	if err != nil {
		t.Fatalf("DecodeL16() error = %v", err)
	}
	if buf.Frames() != 2 || buf.NumChannels() != 2 {
		t.Fatalf("got %d frames x %d channels, want 2x2", buf.Frames(), buf.NumChannels())
	}
	if buf.Channels[0][0] != 0 || buf.Channels[1][0] != 1 || buf.Channels[0][1] != -1 {
		t.Errorf("unexpected samples: %v", buf.Channels)
	}

	if _, err := DecodeL16(raw.Bytes(), 0, 1); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
