package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/capture"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

func TestSaveRecordingWritesValidWAV(t *testing.T) {
	buf := &audio.Buffer{SampleRate: 8000, Channels: [][]float32{make([]float32, 8000*4)}}
	rec := &capture.Recording{Data: audio.EncodeWAV(buf), MIMEType: audio.MIMEType}

	path := filepath.Join(t.TempDir(), "takes", "take.wav")
	if err := saveRecording(path, rec); err != nil {
		t.Fatalf("saveRecording() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, rec.Data) {
		t.Fatalf("saved %d bytes, want %d", len(got), len(rec.Data))
	}
	if _, err := upload.NewValidator().Validate(context.Background(), upload.NewFileCandidate(path, "")); err != nil {
		t.Errorf("saved take fails validation: %v", err)
	}
}
