//go:build portaudio

package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/capture"
)

// Microphone captures 16-bit PCM from the default input device.
type Microphone struct {
	cfg Config
}

func NewMicrophone(cfg Config) *Microphone {
	return &Microphone{cfg: cfg.withDefaults()}
}

func Available() bool { return true }

type paStream struct {
	stream *portaudio.Stream
	in     []int16

	// mu serialises reads between successive recorders on the same stream.
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (s *paStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		err := s.stream.Close()
		if terr := portaudio.Terminate(); err == nil {
			err = terr
		}
		s.closeErr = err
	})
	return s.closeErr
}

// RequestStream initialises PortAudio and opens the default input. Failure to
// open the device is the desktop equivalent of a permission refusal.
func (m *Microphone) RequestStream(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	in := make([]int16, framesPerBuffer*m.cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(m.cfg.Channels, 0, float64(m.cfg.SampleRate), framesPerBuffer, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening input stream: %w", err)
	}
	return &paStream{stream: stream, in: in}, nil
}

// IsTypeSupported only accepts raw L16. Compressed containers fall through to the
// device default.
func (m *Microphone) IsTypeSupported(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "audio/l16")
}

func (m *Microphone) NewRecorder(s capture.Stream, _ string) (capture.Recorder, error) {
	ps, ok := s.(*paStream)
	if !ok {
		return nil, errors.New("stream was not opened by this microphone")
	}
	return &paRecorder{stream: ps, mime: m.cfg.MIMEType()}, nil
}

type paRecorder struct {
	stream *paStream
	mime   string

	stop chan struct{}
	done chan struct{}
}

func (r *paRecorder) MIMEType() string { return r.mime }

func (r *paRecorder) Start(onData func([]byte)) error {
	if err := r.stream.stream.Start(); err != nil {
		return fmt.Errorf("starting input stream: %w", err)
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for {
			select {
			case <-r.stop:
				return
			default:
			}

			r.stream.mu.Lock()
			err := r.stream.stream.Read()
			var chunk []byte
			if err == nil {
				chunk = int16Bytes(r.stream.in)
			}
			r.stream.mu.Unlock()

			if err != nil {
				// Overflow drops a buffer but the take continues.
				if errors.Is(err, portaudio.InputOverflowed) {
					continue
				}
				return
			}
			onData(chunk)
		}
	}()
	return nil
}

// Stop waits for the read loop so every buffer has reached onData before it returns.
func (r *paRecorder) Stop() error {
	if r.stop == nil {
		return nil
	}
	close(r.stop)
	<-r.done
	r.stop = nil
	return r.stream.stream.Stop()
}
