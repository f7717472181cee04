package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

// coverKeys lists every spelling of the cover-art field, highest priority first.
var coverKeys = []string{
	"cover_url", "coverUrl",
	"cover", "cover_image", "coverImage",
	"thumbnail_url", "thumbnailUrl", "thumbnail",
	"artwork_url", "artworkUrl",
	"album_art", "albumArt",
	"image_url", "imageUrl",
}

var errNotObject = errors.New("response body is not a JSON object")

// Normalize decodes an analysis payload without trusting its shape. Each field is
// coerced independently: missing or invalid numbers become 0, strings become "",
// string lists become empty unless every element is a string, and enums fall back
// to ok / any. Both snake_case and camelCase keys are accepted.
//
// The only error is a body that is not a JSON object at all.
func Normalize(raw []byte) (*model.AnalyzeResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNotObject
	}
	return NormalizeMap(m), nil
}

func NormalizeMap(m map[string]any) *model.AnalyzeResponse {
	profile := asMap(pick(m, "profile", "voice_profile", "voiceProfile"))
	inputInfo := asMap(pick(m, "input_info", "inputInfo"))
	filters := asMap(pick(m, "filters"))

	mode, _ := model.ParseVocalRangeMode(toString(pick(filters, "vocal_range_mode", "vocalRangeMode")))
	quality, _ := model.ParseSignalQuality(toString(pick(inputInfo, "signal_quality", "signalQuality")))

	return &model.AnalyzeResponse{
		Profile: model.VoiceProfile{
			Brightness: unit(toNumber(pick(profile, "brightness"))),
			Husky:      unit(toNumber(pick(profile, "husky", "huskiness"))),
			Softness:   unit(toNumber(pick(profile, "softness"))),
		},
		Summary:    toString(pick(m, "summary")),
		Confidence: unit(toNumber(pick(m, "confidence"))),
		InputInfo: model.InputInfo{
			DurationSec:   math.Max(0, toNumber(pick(inputInfo, "duration_sec", "durationSec", "duration"))),
			SignalQuality: quality,
			Note:          toString(pick(inputInfo, "note")),
		},
		Filters: model.Filters{
			VocalRangeMode:   mode,
			AllowCrossGender: toBool(pick(filters, "allow_cross_gender", "allowCrossGender")),
		},
		Recommendations: normalizeRecommendations(pick(m, "recommendations", "items")),
	}
}

func normalizeRecommendations(v any) []model.Recommendation {
	items, _ := v.([]any)
	out := make([]model.Recommendation, 0, len(items))
	for _, item := range items {
		r := asMap(item)
		if r == nil {
			continue
		}
		out = append(out, normalizeRecommendation(r, len(out)))
	}
	return out
}

func normalizeRecommendation(r map[string]any, index int) model.Recommendation {
	rank := int(math.Round(toNumber(pick(r, "rank"))))
	if rank <= 0 {
		rank = index + 1
	}

	return model.Recommendation{
		Rank:         rank,
		Title:        toString(pick(r, "title", "song", "song_title", "songTitle")),
		Artist:       toString(pick(r, "artist", "singer", "artist_name", "artistName")),
		Score:        toNumber(pick(r, "score")),
		MatchPercent: percent(toNumber(pick(r, "match_percent", "matchPercent"))),
		Reasons:      toStringSlice(pick(r, "reasons")),
		Tags:         toStringSlice(pick(r, "tags")),
		Difficulty:   level(toNumber(pick(r, "difficulty"))),
		RangeLevel:   level(toNumber(pick(r, "range_level", "rangeLevel"))),
		ExternalURL:  toString(pick(r, "external_url", "externalUrl")),
		CoverURL:     resolveCover(r),
		PreviewURL:   toString(pick(r, "preview_url", "previewUrl")),
		PlatformURLs: platformLinks(asMap(pick(r, "platform_urls", "platformUrls"))),
	}
}

func resolveCover(r map[string]any) string {
	cover := ""
	for _, key := range coverKeys {
		if cover != "" {
			break
		}
		cover = toString(r[key])
	}
	return cover
}

func platformLinks(m map[string]any) *model.PlatformLinks {
	links := model.PlatformLinks{
		YouTube: toString(pick(m, "youtube")),
		Melon:   toString(pick(m, "melon")),
		Spotify: toString(pick(m, "spotify")),
	}
	if links.IsZero() {
		return nil
	}
	return &links
}

// pick returns the first non-null value stored under any of keys.
func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// toNumber accepts JSON numbers and numeric strings. Anything else, and any
// non-finite value, is 0.
func toNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toString(v any) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// toStringSlice is all or nothing: one non-string element empties the list.
func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return []string{}
		}
		out = append(out, s)
	}
	return out
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	}
	return toNumber(v) != 0
}

func unit(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}

func percent(f float64) int {
	return int(math.Round(math.Min(100, math.Max(0, f))))
}

// level clamps a 1-5 rating. Zero means the field was absent.
func level(f float64) int {
	if f == 0 {
		return 0
	}
	return int(math.Round(math.Min(5, math.Max(1, f))))
}
