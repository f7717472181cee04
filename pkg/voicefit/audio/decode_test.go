package audio

import (
	"context"
	"errors"
	"testing"
)

type recordingDecoder struct {
	gotMIME string
	buf     *Buffer
	err     error
}

func (r *recordingDecoder) Decode(_ context.Context, _ []byte, mimeType string) (*Buffer, error) {
	r.gotMIME = mimeType
	return r.buf, r.err
}

func TestMIMEDecoderRouting(t *testing.T) {
	wavBytes := EncodeWAV(sineBuffer(8000, 1, 0.5))
	fallback := &recordingDecoder{buf: &Buffer{SampleRate: 48000, Channels: [][]float32{{0}}}}
	d := MIMEDecoder{Fallback: fallback}

	t.Run("wav decoded in process", func(t *testing.T) {
		buf, err := d.Decode(context.Background(), wavBytes, "audio/wav")
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if buf.SampleRate != 8000 {
			t.Errorf("SampleRate = %d, want 8000", buf.SampleRate)
		}
		if fallback.gotMIME != "" {
			t.Errorf("fallback called with %q", fallback.gotMIME)
		}
	})

	t.Run("l16 parameters parsed", func(t *testing.T) {
		raw := make([]byte, 8)
		buf, err := d.Decode(context.Background(), raw, L16MIMEType(44100, 2))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if buf.SampleRate != 44100 || buf.NumChannels() != 2 || buf.Frames() != 2 {
			t.Errorf("got rate=%d channels=%d frames=%d", buf.SampleRate, buf.NumChannels(), buf.Frames())
		}
	})

	t.Run("webm goes to fallback", func(t *testing.T) {
		if _, err := d.Decode(context.Background(), []byte{1}, "audio/webm;codecs=opus"); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if fallback.gotMIME != "audio/webm;codecs=opus" {
			t.Errorf("fallback MIME = %q", fallback.gotMIME)
		}
	})

	t.Run("no fallback", func(t *testing.T) {
		if _, err := (MIMEDecoder{}).Decode(context.Background(), []byte{1}, "audio/ogg"); err == nil {
			t.Fatal("expected error without fallback decoder")
		}
	})

	t.Run("fallback error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		d := MIMEDecoder{Fallback: &recordingDecoder{err: boom}}
		if _, err := d.Decode(context.Background(), []byte{1}, "audio/ogg"); !errors.Is(err, boom) {
			t.Fatalf("error = %v, want boom", err)
		}
	})
}

func TestFFmpegInputFormat(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": "webm",
		"audio/webm":             "webm",
		"audio/ogg; codecs=opus": "ogg",
		"AUDIO/OGG":              "ogg",
		"audio/mpeg":             "mp3",
		"":                       "",
		"audio/flac":             "",
	}
	for in, want := range tests {
		if got := ffmpegInputFormat(in); got != want {
			t.Errorf("ffmpegInputFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFFmpegDecoderMissingBinary(t *testing.T) {
	d := FFmpegDecoder{Binary: "voicefit-no-such-ffmpeg"}
	if _, err := d.Decode(context.Background(), []byte{1, 2, 3}, "audio/webm"); err == nil {
		t.Fatal("expected error when ffmpeg binary is missing")
	}
}

func TestDecodeF32LE(t *testing.T) {
	raw := []byte{0, 0, 0x80, 0x3f, 0, 0, 0x80, 0xbf, 0xff}
	got := decodeF32LE(raw)
	if len(got) != 2 || got[0] != 1 || got[1] != -1 {
		t.Fatalf("decodeF32LE() = %v, want [1 -1]", got)
	}
}
