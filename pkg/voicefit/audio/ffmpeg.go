package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/utils"
)

// DefaultDecodeSampleRate is the rate compressed captures are resampled to.
const DefaultDecodeSampleRate = 48000

// FFmpegDecoder decodes compressed containers (webm/opus, ogg) by piping them through
// the ffmpeg binary and reading back mono 32-bit float samples.
type FFmpegDecoder struct {
	// Binary defaults to "ffmpeg" on PATH.
	Binary     string
	SampleRate int
	Timeout    time.Duration
}

func (f FFmpegDecoder) Decode(ctx context.Context, data []byte, mimeType string) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	rate := f.SampleRate
	if rate == 0 {
		rate = DefaultDecodeSampleRate
	}
	timeout := f.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := []string{"-v", "quiet"}
	if format := ffmpegInputFormat(mimeType); format != "" {
		args = append(args, "-f", format)
	}
	args = append(args,
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(stderr.String()))
	}

	samples := decodeF32LE(stdout.Bytes())
	if len(samples) == 0 {
		return nil, errors.New("ffmpeg produced no samples")
	}
	return &Buffer{SampleRate: rate, Channels: [][]float32{samples}}, nil
}

func decodeF32LE(raw []byte) []float32 {
	n := len(raw) / 4
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

// ffmpegInputFormat names the demuxer for a MIME type when ffmpeg cannot sniff it
// from a pipe.
func ffmpegInputFormat(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/ogg", "audio/opus":
		return "ogg"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	}
	return ""
}

type ConvertWAVConfig struct {
	SampleRate int
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
}

// ConvertToMonoWAV converts any audio file ffmpeg understands into mono 16-bit PCM WAV
// in outputDir, keeping the base name with a .wav extension.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultDecodeSampleRate
	}
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		cfg.Binary,
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}
