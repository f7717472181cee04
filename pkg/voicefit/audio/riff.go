package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotWAV              = errors.New("not a WAV/RIFF file")
	ErrNoFmtChunk          = errors.New("fmt chunk not found")
	ErrNoDataChunk         = errors.New("data chunk not found")
	ErrUnsupportedEncoding = errors.New("unsupported WAV encoding: only 16-bit PCM is supported")
)

// Format holds the fields of the fmt chunk.
type Format struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Header describes a WAV file without its samples.
type Header struct {
	Format     Format
	DataSize   uint32
	DataOffset int64
}

// Frames is the number of complete sample frames in the data chunk.
func (h *Header) Frames() int64 {
	if h.Format.BlockAlign == 0 {
		return 0
	}
	return int64(h.DataSize) / int64(h.Format.BlockAlign)
}

// DurationSeconds derives the playback length from the data chunk size.
func (h *Header) DurationSeconds() (float64, error) {
	if h.Format.SampleRate == 0 {
		return 0, errors.New("invalid sample rate: 0")
	}
	if h.Format.BlockAlign == 0 {
		return 0, errors.New("invalid block align: 0")
	}
	return float64(h.Frames()) / float64(h.Format.SampleRate), nil
}

// ReadHeader walks the RIFF chunk list and stops at the data chunk without reading
// samples. Unknown chunks (LIST, INFO, junk) are skipped. It does not assume the
// canonical 44-byte layout.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	if err := readRIFFHeader(r); err != nil {
		return nil, err
	}

	var (
		h        Header
		fmtFound bool
	)

	for {
		var chunkID [4]byte
		var chunkSize uint32

		if err := binary.Read(r, binary.LittleEndian, &chunkID); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("reading chunk size: %w", err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			f, err := readFmtChunk(r, chunkSize)
			if err != nil {
				return nil, err
			}
			h.Format = *f
			fmtFound = true

		case "data":
			if !fmtFound {
				return nil, ErrNoFmtChunk
			}
			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, fmt.Errorf("locating data chunk: %w", err)
			}
			h.DataSize = chunkSize
			h.DataOffset = pos
			return &h, nil

		default:
			if err := skipChunk(r, chunkSize); err != nil {
				return nil, fmt.Errorf("skipping chunk %q: %w", string(chunkID[:]), err)
			}
		}
	}

	if !fmtFound {
		return nil, ErrNoFmtChunk
	}
	return nil, ErrNoDataChunk
}

// ProbeDuration returns the duration in seconds of a WAV stream using header
// metadata only. Any sample format is accepted; the length follows from the data
// size, block align and sample rate.
func ProbeDuration(r io.ReadSeeker) (float64, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}
	return h.DurationSeconds()
}

func readRIFFHeader(r io.Reader) error {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return ErrNotWAV
	}
	return nil
}

func readFmtChunk(r io.ReadSeeker, chunkSize uint32) (*Format, error) {
	if chunkSize < fmtChunkSize {
		return nil, fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
	}

	var f Format
	if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
		return nil, fmt.Errorf("reading fmt chunk: %w", err)
	}

	// WAVE_FORMAT_EXTENSIBLE and friends carry extra bytes after the base 16.
	if extra := int64(chunkSize) - fmtChunkSize; extra > 0 {
		if err := skipChunk(r, uint32(extra)); err != nil {
			return nil, fmt.Errorf("seeking past fmt extras: %w", err)
		}
	}

	return &f, nil
}

// skipChunk seeks past a chunk body including the RIFF pad byte for odd sizes.
func skipChunk(r io.Seeker, chunkSize uint32) error {
	skip := int64(chunkSize)
	if chunkSize%2 == 1 {
		skip++
	}
	_, err := r.Seek(skip, io.SeekCurrent)
	return err
}
