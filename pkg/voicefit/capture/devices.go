package capture

import "context"

// Stream is a granted microphone stream. It is shared by every take in a session
// and closed once by Pipeline.Close.
type Stream interface {
	Close() error
}

// Recorder encodes one take from a stream.
type Recorder interface {
	// MIMEType is the container the recorder actually produces.
	MIMEType() string
	// Start begins delivering encoded chunks to onData.
	Start(onData func(chunk []byte)) error
	// Stop ends the take. Every chunk has been delivered to onData by the time
	// Stop returns.
	Stop() error
}

// MediaDevices is the platform microphone.
type MediaDevices interface {
	// RequestStream asks for microphone access. A refusal is reported as an error.
	RequestStream(ctx context.Context) (Stream, error)
	IsTypeSupported(mimeType string) bool
	// NewRecorder creates a recorder. An empty mimeType selects the device default.
	NewRecorder(stream Stream, mimeType string) (Recorder, error)
}

// PreferredMIMETypes is the container preference, best first. When none is
// supported the device default is used.
var PreferredMIMETypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/ogg",
}

// ChooseMIMEType returns the first supported preferred type, or "" for the device default.
func ChooseMIMEType(d MediaDevices) string {
	for _, t := range PreferredMIMETypes {
		if d.IsTypeSupported(t) {
			return t
		}
	}
	return ""
}
