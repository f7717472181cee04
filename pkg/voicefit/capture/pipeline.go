// Package capture records a short voice take from a microphone and hands it off as
// a canonical WAV file.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

const (
	DefaultTick        = 200 * time.Millisecond
	DefaultMaxDuration = 20 * time.Second
	// MinBlobBytes is the smallest capture worth decoding. Anything below is
	// treated as silence or a failed take.
	MinBlobBytes = 1000
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrTooShort         = errors.New("recording is too short or silent; please record again")
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrClosed           = errors.New("capture pipeline is closed")
)

type State int

const (
	StateIdle State = iota
	StateRequestingPermission
	StateRecording
	StateStopping
	StateConverting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingPermission:
		return "requesting-permission"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateConverting:
		return "converting"
	default:
		return "unknown"
	}
}

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

type StopReason string

const (
	StopUser     StopReason = "user"
	StopCeiling  StopReason = "ceiling"
	StopCanceled StopReason = "canceled"
)

// Recording is the handoff of one take. Data is a WAV file unless Degraded, in
// which case it is the raw capture in SourceMIME. A degraded take does not pass
// the upload validator; it is kept so the caller can save it and convert it
// offline.
type Recording struct {
	Data       []byte
	MIMEType   string
	SourceMIME string
	Duration   time.Duration
	Elapsed    time.Duration
	Reason     StopReason
	Degraded   bool
	DecodeErr  error
}

// Candidate wraps the recording for the upload validator and client.
func (r *Recording) Candidate() *upload.BytesCandidate {
	name := "recording.wav"
	if r.Degraded {
		name = "recording" + extensionFor(r.MIMEType)
	}
	return &upload.BytesCandidate{FileName: name, MIME: r.MIMEType, Data: r.Data}
}

func extensionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return ".ogg"
	}
	return ".bin"
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type Config struct {
	Devices MediaDevices
	// Decoder turns the raw capture into samples. Defaults to in-process WAV/L16
	// decoding with ffmpeg for compressed containers.
	Decoder     audio.Decoder
	Tick        time.Duration
	MaxDuration time.Duration
	MinBytes    int
	Logger      Logger
	// OnTick is called from the timer goroutine with the elapsed recording time.
	OnTick func(elapsed time.Duration)
	// OnComplete is called exactly once per take, after conversion.
	OnComplete func(rec *Recording, err error)
}

// take is one start..stop cycle.
type take struct {
	ctx     context.Context
	rec     Recorder
	mime    string
	started time.Time
	stopped chan struct{}
	done    chan struct{}

	chunkMu sync.Mutex
	chunks  bytes.Buffer

	reason  StopReason
	elapsed time.Duration
	result  *Recording
	err     error
}

func (t *take) append(chunk []byte) {
	t.chunkMu.Lock()
	t.chunks.Write(chunk)
	t.chunkMu.Unlock()
}

func (t *take) blob() []byte {
	t.chunkMu.Lock()
	defer t.chunkMu.Unlock()
	return bytes.Clone(t.chunks.Bytes())
}

type Pipeline struct {
	cfg Config
	log Logger

	mu         sync.Mutex
	state      State
	permission Permission
	stream     Stream
	current    *take
	last       *take
	closed     bool
	closeOnce  sync.Once
	closeErr   error
}

func New(cfg Config) *Pipeline {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = MinBlobBytes
	}
	if cfg.Decoder == nil {
		cfg.Decoder = audio.MIMEDecoder{Fallback: audio.FFmpegDecoder{}}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{cfg: cfg, log: log}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

// Elapsed is the running time of the current take, or of the last one when idle.
func (p *Pipeline) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.state == StateRecording {
		return time.Since(p.current.started)
	}
	if p.current != nil {
		return p.current.elapsed
	}
	if p.last != nil {
		return p.last.elapsed
	}
	return 0
}

// Start begins a take. Microphone permission is requested on the first call and
// the stream is reused afterwards.
func (p *Pipeline) Start(ctx context.Context) error {
	_, err := p.start(ctx)
	return err
}

func (p *Pipeline) start(ctx context.Context) (*take, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	if p.cfg.Devices == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: no microphone available", ErrPermissionDenied)
	}

	if p.stream == nil {
		p.state = StateRequestingPermission
		p.mu.Unlock()

		stream, err := p.cfg.Devices.RequestStream(ctx)

		p.mu.Lock()
		p.state = StateIdle
		if err != nil {
			if ctx.Err() == nil {
				p.permission = PermissionDenied
			}
			p.mu.Unlock()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		if p.closed {
			p.mu.Unlock()
			stream.Close()
			return nil, ErrClosed
		}
		p.permission = PermissionGranted
		p.stream = stream
	}
	defer p.mu.Unlock()

	mimeType := ChooseMIMEType(p.cfg.Devices)
	rec, err := p.cfg.Devices.NewRecorder(p.stream, mimeType)
	if err != nil {
		return nil, fmt.Errorf("creating recorder: %w", err)
	}
	if actual := rec.MIMEType(); actual != "" {
		mimeType = actual
	}

	t := &take{
		ctx:     context.WithoutCancel(ctx),
		rec:     rec,
		mime:    mimeType,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := rec.Start(t.append); err != nil {
		return nil, fmt.Errorf("starting recorder: %w", err)
	}
	t.started = time.Now()

	p.current = t
	p.state = StateRecording
	p.log.Debugf("recording started (%s)", displayMIME(mimeType))

	go p.watch(t)
	return t, nil
}

// watch ticks while t is recording and enforces the ceiling.
func (p *Pipeline) watch(t *take) {
	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopped:
			return
		case <-ticker.C:
			elapsed := time.Since(t.started)
			if p.cfg.OnTick != nil {
				p.cfg.OnTick(elapsed)
			}
			if elapsed >= p.cfg.MaxDuration {
				p.stop(t, StopCeiling)
				return
			}
		}
	}
}

// stop performs the recording->stopping transition for t. Only the first caller
// wins; later callers get false and must wait on t.done.
func (p *Pipeline) stop(t *take, reason StopReason) bool {
	p.mu.Lock()
	if p.current != t || p.state != StateRecording {
		p.mu.Unlock()
		return false
	}
	p.state = StateStopping
	t.reason = reason
	t.elapsed = time.Since(t.started)
	close(t.stopped)
	p.mu.Unlock()

	if err := t.rec.Stop(); err != nil {
		p.log.Warnf("stopping recorder: %v", err)
	}

	p.mu.Lock()
	p.state = StateConverting
	p.mu.Unlock()

	rec, err := p.convert(t)

	p.mu.Lock()
	t.result, t.err = rec, err
	p.state = StateIdle
	p.last = t
	p.current = nil
	p.mu.Unlock()

	if p.cfg.OnComplete != nil {
		p.cfg.OnComplete(rec, err)
	}
	close(t.done)
	return true
}

func (p *Pipeline) convert(t *take) (*Recording, error) {
	blob := t.blob()
	if len(blob) < p.cfg.MinBytes {
		p.log.Debugf("discarding %d-byte capture", len(blob))
		return nil, ErrTooShort
	}

	buf, err := p.cfg.Decoder.Decode(t.ctx, blob, t.mime)
	if err != nil {
		p.log.Warnf("could not convert capture to WAV, sending %s as is: %v", displayMIME(t.mime), err)
		mimeType := t.mime
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		return &Recording{
			Data:       blob,
			MIMEType:   mimeType,
			SourceMIME: t.mime,
			Elapsed:    t.elapsed,
			Reason:     t.reason,
			Degraded:   true,
			DecodeErr:  err,
		}, nil
	}

	trimToDuration(buf, p.cfg.MaxDuration)

	return &Recording{
		Data:       audio.EncodeWAV(buf),
		MIMEType:   audio.MIMEType,
		SourceMIME: t.mime,
		Duration:   buf.Duration(),
		Elapsed:    t.elapsed,
		Reason:     t.reason,
	}, nil
}

// trimToDuration drops samples past max so timer overshoot cannot push a take
// over the upload duration limit.
func trimToDuration(buf *audio.Buffer, max time.Duration) {
	if buf == nil || buf.SampleRate <= 0 {
		return
	}
	limit := int(int64(max) * int64(buf.SampleRate) / int64(time.Second))
	for c, ch := range buf.Channels {
		if len(ch) > limit {
			buf.Channels[c] = ch[:limit]
		}
	}
}

// Stop ends the current take and returns its result. Calling Stop while a stop is
// already under way waits for that stop instead of starting another.
func (p *Pipeline) Stop() (*Recording, error) {
	p.mu.Lock()
	t := p.current
	p.mu.Unlock()
	if t == nil {
		return nil, ErrNotRecording
	}

	p.stop(t, StopUser)
	<-t.done
	return t.result, t.err
}

// Wait blocks until the current take finishes, by user stop or by the ceiling.
// When no take is running it returns the result of the last one.
func (p *Pipeline) Wait(ctx context.Context) (*Recording, error) {
	p.mu.Lock()
	t := p.current
	if t == nil {
		t = p.last
	}
	p.mu.Unlock()
	if t == nil {
		return nil, ErrNotRecording
	}

	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Record runs one take until the ceiling or until ctx ends. Ending ctx stops the
// take early and still returns what was captured.
func (p *Pipeline) Record(ctx context.Context) (*Recording, error) {
	t, err := p.start(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		p.stop(t, StopCanceled)
		<-t.done
	}
	return t.result, t.err
}

// Close stops any take in progress and releases the microphone stream. It is safe
// to call more than once.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	t := p.current
	p.mu.Unlock()

	if t != nil {
		p.stop(t, StopCanceled)
		<-t.done
	}

	p.closeOnce.Do(func() {
		p.mu.Lock()
		stream := p.stream
		p.stream = nil
		p.mu.Unlock()
		if stream != nil {
			p.closeErr = stream.Close()
		}
	})
	return p.closeErr
}

func displayMIME(m string) string {
	if m == "" {
		return "device default"
	}
	return m
}
