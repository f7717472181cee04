package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Candidate is a file offered for submission. Open is called on every validation
// and every submission, so a stale reference fails at the moment it is used.
type Candidate interface {
	Name() string
	MIMEType() string
	Size() (int64, error)
	Open() (io.ReadSeekCloser, error)
}

var extensionTypes = map[string]string{
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
}

// MIMETypeForName guesses the declared content type from a file extension.
// Unknown extensions map to application/octet-stream.
func MIMETypeForName(name string) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// FileCandidate is a file on disk. An empty MIME declares the type by extension.
type FileCandidate struct {
	Path string
	MIME string
}

func NewFileCandidate(path, mimeType string) *FileCandidate {
	if mimeType == "" {
		mimeType = MIMETypeForName(path)
	}
	return &FileCandidate{Path: path, MIME: mimeType}
}

func (f *FileCandidate) Name() string     { return filepath.Base(f.Path) }
func (f *FileCandidate) MIMEType() string { return f.MIME }

func (f *FileCandidate) Size() (int64, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *FileCandidate) Open() (io.ReadSeekCloser, error) {
	return os.Open(f.Path)
}

// BytesCandidate wraps an in-memory blob such as a fresh recording.
type BytesCandidate struct {
	FileName string
	MIME     string
	Data     []byte
}

func (b *BytesCandidate) Name() string         { return b.FileName }
func (b *BytesCandidate) MIMEType() string     { return b.MIME }
func (b *BytesCandidate) Size() (int64, error) { return int64(len(b.Data)), nil }

func (b *BytesCandidate) Open() (io.ReadSeekCloser, error) {
	return nopSeekCloser{bytes.NewReader(b.Data)}, nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
