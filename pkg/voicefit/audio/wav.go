package audio

import (
	"encoding/binary"
)

const (
	// WAVHeaderSize is the size of the canonical RIFF/WAVE/fmt/data header.
	WAVHeaderSize = 44
	// MIMEType is the canonical WAV content type used for uploads.
	MIMEType = "audio/wav"

	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
	pcmFormat      = 1
	fmtChunkSize   = 16
)

// EncodeWAV renders buf as an uncompressed 16-bit PCM WAV file.
//
// Samples are clamped to [-1, 1]; negative values scale by 32768 and non-negative
// values by 32767 so that +1.0 does not overflow. A buffer with no channels or no
// frames yields a header-only file with an empty data chunk.
func EncodeWAV(buf *Buffer) []byte {
	numChannels := buf.NumChannels()
	frames := buf.Frames()
	sampleRate := 0
	if buf != nil && buf.SampleRate > 0 {
		sampleRate = buf.SampleRate
	}

	blockAlign := numChannels * bytesPerSample
	byteRate := sampleRate * blockAlign
	dataSize := frames * blockAlign

	out := make([]byte, WAVHeaderSize+dataSize)
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], fmtChunkSize)
	le.PutUint16(out[20:22], pcmFormat)
	le.PutUint16(out[22:24], uint16(numChannels))
	le.PutUint32(out[24:28], uint32(sampleRate))
	le.PutUint32(out[28:32], uint32(byteRate))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(dataSize))

	offset := WAVHeaderSize
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			le.PutUint16(out[offset:offset+2], uint16(floatToPCM16(buf.Channels[c][i])))
			offset += bytesPerSample
		}
	}

	return out
}

func floatToPCM16(sample float32) int16 {
	s := float64(sample)
	if s != s { // NaN
		return 0
	}
	if s < -1 {
		s = -1
	} else if s > 1 {
		s = 1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7fff)
}

func pcm16ToFloat(v int16) float32 {
	if v < 0 {
		return float32(v) / 0x8000
	}
	return float32(v) / 0x7fff
}
