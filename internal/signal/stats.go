package signal

import (
	"math"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
)

// Voice band used for the vocal energy ratio.
const (
	VoiceLowHz  = 80.0
	VoiceHighHz = 4000.0
)

// Stats summarises a mono mixdown of a buffer.
type Stats struct {
	Duration float64
	RMS      float64
	Peak     float64
	// VoiceBandRatio is the share of spectral energy between VoiceLowHz and VoiceHighHz.
	VoiceBandRatio float64
	// Centroid is the mean power-weighted spectral centroid in Hz.
	Centroid float64
	// Flatness is the mean spectral flatness in [0,1]; noise is close to 1.
	Flatness float64
	// Clipped is the fraction of samples at full scale.
	Clipped float64
}

// Mono averages all channels into one float64 signal.
func Mono(buf *audio.Buffer) []float64 {
	frames := buf.Frames()
	out := make([]float64, frames)
	n := buf.NumChannels()
	if n == 0 {
		return out
	}
	for _, ch := range buf.Channels {
		for i := 0; i < frames; i++ {
			out[i] += float64(ch[i])
		}
	}
	for i := range out {
		out[i] /= float64(n)
	}
	return out
}

// Analyze computes Stats. Spectral fields stay zero when the signal is shorter than
// one window.
func Analyze(buf *audio.Buffer) Stats {
	var st Stats
	if buf == nil || buf.SampleRate <= 0 {
		return st
	}
	samples := Mono(buf)
	st.Duration = buf.Duration().Seconds()
	if len(samples) == 0 {
		return st
	}

	var sumSq float64
	clipped := 0
	for _, s := range samples {
		a := math.Abs(s)
		sumSq += s * s
		if a > st.Peak {
			st.Peak = a
		}
		if a >= 0.999 {
			clipped++
		}
	}
	st.RMS = math.Sqrt(sumSq / float64(len(samples)))
	st.Clipped = float64(clipped) / float64(len(samples))

	spec, err := STFT(samples, WindowSize, HopSize, nil)
	if err != nil {
		return st
	}

	var total, voice, centroidSum, flatSum float64
	frames := 0
	for _, mag := range spec {
		var energy, weighted, logSum float64
		for bin, m := range mag {
			p := m * m
			energy += p
			f := BinFrequency(bin, WindowSize, buf.SampleRate)
			weighted += f * p
			if f >= VoiceLowHz && f <= VoiceHighHz {
				voice += p
			}
			logSum += math.Log(m + 1e-12)
		}
		total += energy
		var magSum float64
		for _, m := range mag {
			magSum += m
		}
		if magSum <= 0 || energy <= 0 {
			continue
		}
		frames++
		centroidSum += weighted / energy
		mean := magSum / float64(len(mag))
		flatSum += math.Exp(logSum/float64(len(mag))) / mean
	}

	if total > 0 {
		st.VoiceBandRatio = voice / total
	}
	if frames > 0 {
		st.Centroid = centroidSum / float64(frames)
		st.Flatness = math.Min(1, flatSum/float64(frames))
	}
	return st
}
