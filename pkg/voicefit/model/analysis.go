// Package model holds the canonical VoiceFit result types shared by every layer.
// Values of these types are produced by the client normalizer and are treated as
// read-only afterwards.
package model

type VocalRangeMode string

const (
	VocalRangeMale   VocalRangeMode = "male"
	VocalRangeFemale VocalRangeMode = "female"
	VocalRangeAny    VocalRangeMode = "any"
)

// ParseVocalRangeMode falls back to VocalRangeAny for unknown input.
func ParseVocalRangeMode(s string) (VocalRangeMode, bool) {
	switch VocalRangeMode(s) {
	case VocalRangeMale, VocalRangeFemale, VocalRangeAny:
		return VocalRangeMode(s), true
	}
	return VocalRangeAny, false
}

type SignalQuality string

const (
	SignalGood SignalQuality = "good"
	SignalOK   SignalQuality = "ok"
	SignalBad  SignalQuality = "bad"
)

// ParseSignalQuality falls back to SignalOK for unknown input.
func ParseSignalQuality(s string) (SignalQuality, bool) {
	switch SignalQuality(s) {
	case SignalGood, SignalOK, SignalBad:
		return SignalQuality(s), true
	}
	return SignalOK, false
}

// VoiceProfile scores are in [0,1].
type VoiceProfile struct {
	Brightness float64 `json:"brightness"`
	Husky      float64 `json:"husky"`
	Softness   float64 `json:"softness"`
}

// InputInfo describes the submitted sample, not the voice.
type InputInfo struct {
	DurationSec   float64       `json:"duration_sec"`
	SignalQuality SignalQuality `json:"signal_quality"`
	Note          string        `json:"note"`
}

type Filters struct {
	VocalRangeMode   VocalRangeMode `json:"vocal_range_mode"`
	AllowCrossGender bool           `json:"allow_cross_gender"`
}

type PlatformLinks struct {
	YouTube string `json:"youtube,omitempty"`
	Melon   string `json:"melon,omitempty"`
	Spotify string `json:"spotify,omitempty"`
}

// IsZero reports whether no platform link is set.
func (p PlatformLinks) IsZero() bool {
	return p.YouTube == "" && p.Melon == "" && p.Spotify == ""
}

// Recommendation is a single ranked song suggestion. Rank uniqueness is not enforced.
type Recommendation struct {
	Rank         int            `json:"rank"`
	Title        string         `json:"title"`
	Artist       string         `json:"artist"`
	Score        float64        `json:"score"`
	MatchPercent int            `json:"match_percent"`
	Reasons      []string       `json:"reasons"`
	Tags         []string       `json:"tags"`
	Difficulty   int            `json:"difficulty"`
	RangeLevel   int            `json:"range_level"`
	ExternalURL  string         `json:"external_url,omitempty"`
	CoverURL     string         `json:"cover_url,omitempty"`
	PreviewURL   string         `json:"preview_url,omitempty"`
	PlatformURLs *PlatformLinks `json:"platform_urls,omitempty"`
}

// HasTag reports whether tag is one of the recommendation's tags.
func (r Recommendation) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AnalyzeResponse is the canonical analysis result. After normalization every field
// is populated: numbers are finite, strings are non-nil and slices are non-nil.
type AnalyzeResponse struct {
	Profile         VoiceProfile     `json:"profile"`
	Summary         string           `json:"summary"`
	Confidence      float64          `json:"confidence"`
	InputInfo       InputInfo        `json:"input_info"`
	Filters         Filters          `json:"filters"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ErrorEnvelope is the JSON body the analysis service sends with an error status.
type ErrorEnvelope struct {
	Error *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}
