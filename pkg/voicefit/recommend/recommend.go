// Package recommend holds display helpers over an analysis result's recommendation
// list. Recommendations are never modified; helpers return filtered copies or
// derived values.
package recommend

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

// All matches every value of a filter dimension.
const All = "all"

var (
	GenreTags = []string{"ballad", "pop", "rock", "rnb", "hiphop", "acoustic"}
	MoodTags  = []string{"calm", "emotional", "bright", "soft", "rhythm", "easy", "mid-high"}
)

// Filter narrows a recommendation list. Empty fields behave like All.
type Filter struct {
	Genre string
	Mood  string
	// Difficulty and RangeLevel are All or a level from 1 to 5.
	Difficulty string
	RangeLevel string
}

// ParseLevel accepts All, the empty string or an integer from 1 to 5.
func ParseLevel(s string) (string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == All {
		return All, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return "", fmt.Errorf("level must be %q or 1-5, got %q", All, s)
	}
	return s, nil
}

func isAll(v string) bool { return v == "" || v == All }

func (f Filter) Match(r model.Recommendation) bool {
	if !isAll(f.Genre) && !r.HasTag(f.Genre) {
		return false
	}
	if !isAll(f.Mood) && !r.HasTag(f.Mood) {
		return false
	}
	if !isAll(f.Difficulty) && strconv.Itoa(r.Difficulty) != f.Difficulty {
		return false
	}
	if !isAll(f.RangeLevel) && strconv.Itoa(r.RangeLevel) != f.RangeLevel {
		return false
	}
	return true
}

// Apply returns the matching recommendations in their original order.
func (f Filter) Apply(recs []model.Recommendation) []model.Recommendation {
	out := make([]model.Recommendation, 0, len(recs))
	for _, r := range recs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// TagGroups splits the tags used by recs into known genre and mood tags, in order
// of first appearance. Unknown tags are left out of both.
func TagGroups(recs []model.Recommendation) (genres, moods []string) {
	genres, moods = []string{}, []string{}
	seen := make(map[string]bool)
	for _, r := range recs {
		for _, tag := range r.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			switch {
			case contains(GenreTags, tag):
				genres = append(genres, tag)
			case contains(MoodTags, tag):
				moods = append(moods, tag)
			}
		}
	}
	return genres, moods
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// PlatformLinks returns the server-provided links, or search links built from the
// title and artist.
func PlatformLinks(r model.Recommendation) model.PlatformLinks {
	if r.PlatformURLs != nil && !r.PlatformURLs.IsZero() {
		return *r.PlatformURLs
	}
	q := encodeComponent(r.Title + " " + r.Artist)
	return model.PlatformLinks{
		YouTube: "https://www.youtube.com/results?search_query=" + q,
		Melon:   "https://www.melon.com/search/total/index.htm?q=" + q,
		Spotify: "https://open.spotify.com/search/" + q,
	}
}

// encodeComponent escapes s for use in a query value or a path segment, with
// spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
