package server

import (
	"math"
	"sort"

	"github.com/himanishpuri/VoiceFit/internal/signal"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

const maxRecommendations = 5

type song struct {
	title      string
	artist     string
	voice      model.VocalRangeMode
	profile    model.VoiceProfile
	tags       []string
	difficulty int
	rangeLevel int
	reasons    []string
	external   string
	cover      string
}

var catalog = []song{
	{"Through the Night", "IU", model.VocalRangeFemale, model.VoiceProfile{Brightness: 0.75, Husky: 0.2, Softness: 0.7},
		[]string{"bright", "soft", "ballad", "easy"}, 2, 2,
		[]string{"A gentle ballad that suits a bright tone", "Fits a soft delivery"},
		"https://example.com/track1", "https://images.unsplash.com/photo-1511379938547-c1f69419868d?w=400&h=400&fit=crop"},
	{"Love Always Runs Away", "Lim Young Woong", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.7, Husky: 0.3, Softness: 0.55},
		[]string{"bright", "ballad", "emotional"}, 2, 2,
		[]string{"Clear upper range sits naturally", "Matches an emotional ballad tone"},
		"https://example.com/track2", "https://images.unsplash.com/photo-1511671782779-c97d3d27a1d4?w=400&h=400&fit=crop"},
	{"Is It Good", "Yoon Jong Shin", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.6, Husky: 0.25, Softness: 0.65},
		[]string{"mid-high", "soft", "ballad"}, 3, 3,
		[]string{"Vocal line centred on the mid-high range", "Soft tone carries the emotion well"},
		"https://example.com/track3", "https://images.unsplash.com/photo-1521334726092-b509a19597c1?w=400&h=400&fit=crop"},
	{"Dynamite", "BTS", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.8, Husky: 0.15, Softness: 0.4},
		[]string{"pop", "bright", "rhythm"}, 2, 2,
		[]string{"A bright tone fits the pop style", "Suits a rhythmic delivery"},
		"https://example.com/track4", "https://images.unsplash.com/photo-1459749411175-04bf5292ceea?w=400&h=400&fit=crop"},
	{"Confession", "Jung Joon Il", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.5, Husky: 0.3, Softness: 0.8},
		[]string{"soft", "calm", "ballad"}, 2, 2,
		[]string{"Soft tone matches the quiet arrangement", "Stable melody without forced high notes"},
		"https://example.com/track5", "https://images.unsplash.com/photo-1507838153414-b4b713384a76?w=400&h=400&fit=crop"},
	{"Rain", "Taeyeon", model.VocalRangeFemale, model.VoiceProfile{Brightness: 0.55, Husky: 0.35, Softness: 0.6},
		[]string{"ballad", "emotional", "calm"}, 3, 3,
		[]string{"Breathy texture suits the verses", "Comfortable mid range"},
		"https://example.com/track6", ""},
	{"Hype Boy", "NewJeans", model.VocalRangeFemale, model.VoiceProfile{Brightness: 0.85, Husky: 0.1, Softness: 0.5},
		[]string{"pop", "bright", "rhythm", "easy"}, 1, 2,
		[]string{"Light, bright tone fits the melody", "Narrow range that is easy to sing"},
		"https://example.com/track7", ""},
	{"Fine", "Taeyeon", model.VocalRangeFemale, model.VoiceProfile{Brightness: 0.65, Husky: 0.3, Softness: 0.45},
		[]string{"pop", "emotional", "mid-high"}, 4, 4,
		[]string{"Demanding chorus for a strong upper range"},
		"https://example.com/track8", ""},
	{"Tomboy", "Hyukoh", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.4, Husky: 0.65, Softness: 0.5},
		[]string{"rock", "acoustic", "calm"}, 2, 2,
		[]string{"Husky timbre carries the indie sound", "Relaxed low-mid range"},
		"https://example.com/track9", ""},
	{"Snowflower", "Park Hyo Shin", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.45, Husky: 0.5, Softness: 0.55},
		[]string{"ballad", "emotional", "mid-high"}, 5, 5,
		[]string{"Deep, resonant tone suits the climax", "Wide range for experienced singers"},
		"https://example.com/track10", ""},
	{"Any Song", "Zico", model.VocalRangeAny, model.VoiceProfile{Brightness: 0.6, Husky: 0.4, Softness: 0.35},
		[]string{"hiphop", "rhythm", "easy"}, 1, 1,
		[]string{"Talk-sung verses fit any voice", "Groove matters more than range"},
		"https://example.com/track11", ""},
	{"Sweet Night", "V", model.VocalRangeMale, model.VoiceProfile{Brightness: 0.35, Husky: 0.55, Softness: 0.75},
		[]string{"acoustic", "soft", "calm", "rnb"}, 2, 2,
		[]string{"Low, warm tone matches the acoustic mood"},
		"https://example.com/track12", ""},
}

// mockIndex lists the catalog entries returned for mock=true, in order.
var mockIndex = []int{0, 1, 2, 3, 4}

// mockResponse is the canned result for mock=true. The filters echo the request.
func mockResponse(req analyzeRequest) *model.AnalyzeResponse {
	recs := make([]model.Recommendation, 0, len(mockIndex))
	scores := []float64{0.89, 0.86, 0.84, 0.82, 0.79}
	for i, idx := range mockIndex {
		recs = append(recs, songRecommendation(catalog[idx], i+1, scores[i]))
	}
	return &model.AnalyzeResponse{
		Profile:    model.VoiceProfile{Brightness: 0.72, Husky: 0.28, Softness: 0.61},
		Summary:    "A clear, fairly bright tone with a soft delivery.",
		Confidence: 0.84,
		InputInfo: model.InputInfo{
			DurationSec:   12.4,
			SignalQuality: model.SignalGood,
			Note:          "Little high-register data, so the range estimate is conservative.",
		},
		Filters:         model.Filters{VocalRangeMode: req.mode, AllowCrossGender: req.allowCrossGender},
		Recommendations: recs,
	}
}

func songRecommendation(s song, rank int, score float64) model.Recommendation {
	return model.Recommendation{
		Rank:         rank,
		Title:        s.title,
		Artist:       s.artist,
		Score:        round2(score),
		MatchPercent: int(math.Round(score * 100)),
		Reasons:      append([]string(nil), s.reasons...),
		Tags:         append([]string(nil), s.tags...),
		Difficulty:   s.difficulty,
		RangeLevel:   s.rangeLevel,
		ExternalURL:  s.external,
		CoverURL:     s.cover,
	}
}

// voiceProfile maps spectral statistics onto the three profile axes.
func voiceProfile(st signal.Stats) model.VoiceProfile {
	return model.VoiceProfile{
		Brightness: round2(clamp01((st.Centroid - 250) / 2500)),
		Husky:      round2(clamp01((st.Flatness - 0.05) / 0.4)),
		Softness:   round2(clamp01(1 - st.RMS/0.3)),
	}
}

func signalQuality(st signal.Stats) model.SignalQuality {
	switch {
	case st.RMS < 0.01 || st.Clipped > 0.05:
		return model.SignalBad
	case st.RMS >= 0.03 && st.Clipped < 0.01:
		return model.SignalGood
	}
	return model.SignalOK
}

func summarize(p model.VoiceProfile) string {
	tone := "balanced"
	switch {
	case p.Brightness >= 0.6:
		tone = "bright"
	case p.Brightness < 0.4:
		tone = "warm"
	}
	texture := "clear"
	if p.Husky >= 0.5 {
		texture = "husky"
	}
	delivery := "firm"
	if p.Softness >= 0.5 {
		delivery = "soft"
	}
	return "A " + texture + ", " + tone + " tone with a " + delivery + " delivery."
}

func analysisResponse(st signal.Stats, req analyzeRequest) *model.AnalyzeResponse {
	profile := voiceProfile(st)
	quality := signalQuality(st)

	confidence := 0.5 + 0.4*math.Min(st.Duration, 12)/12
	if quality == model.SignalBad {
		confidence -= 0.2
	}

	note := ""
	if st.Duration < 8 {
		note = "Short sample, so the range estimate is conservative."
	}

	return &model.AnalyzeResponse{
		Profile:    profile,
		Summary:    summarize(profile),
		Confidence: round2(clamp01(confidence)),
		InputInfo: model.InputInfo{
			DurationSec:   round2(st.Duration),
			SignalQuality: quality,
			Note:          note,
		},
		Filters:         model.Filters{VocalRangeMode: req.mode, AllowCrossGender: req.allowCrossGender},
		Recommendations: recommend(profile, req),
	}
}

// recommend ranks the catalog by profile distance. Songs for the other voice are
// dropped unless cross-gender picks are allowed.
func recommend(p model.VoiceProfile, req analyzeRequest) []model.Recommendation {
	type scored struct {
		s     song
		score float64
	}
	var candidates []scored
	for _, s := range catalog {
		if req.mode != model.VocalRangeAny && !req.allowCrossGender &&
			s.voice != model.VocalRangeAny && s.voice != req.mode {
			continue
		}
		d := math.Sqrt(sq(p.Brightness-s.profile.Brightness) + sq(p.Husky-s.profile.Husky) + sq(p.Softness-s.profile.Softness))
		candidates = append(candidates, scored{s, 1 - d/math.Sqrt(3)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	n := min(len(candidates), maxRecommendations)
	recs := make([]model.Recommendation, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, songRecommendation(candidates[i].s, i+1, candidates[i].score))
	}
	return recs
}

func sq(x float64) float64 { return x * x }

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
