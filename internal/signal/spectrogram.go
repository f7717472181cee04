// Package signal computes the cheap spectral statistics the development server uses
// to classify an uploaded sample before answering.
package signal

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	WindowSize = 1024
	HopSize    = 512
)

// MagnitudeSpectrum keeps the positive-frequency half of a complex spectrum.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT returns a time-major magnitude spectrogram: spectrogram[frame][bin].
// A nil window selects Hamming.
func STFT(samples []float64, windowSize, hopSize int, win []float64) ([][]float64, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, errors.New("window and hop size must be positive")
	}
	if win == nil {
		win = window.Hamming(windowSize)
	}
	if len(win) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	var spectrogram [][]float64
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * win[i]
		}
		spectrogram = append(spectrogram, MagnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

// BinFrequency is the centre frequency of bin for a window of windowSize samples.
func BinFrequency(bin, windowSize, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(windowSize)
}
