package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

const (
	DefaultITunesSearchURL = "https://itunes.apple.com/search"
	coverSize              = "512x512bb"
)

var (
	ErrNoArtwork = errors.New("no artwork found")

	artworkSizePattern = regexp.MustCompile(`\d+x\d+bb`)
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// CoverFinder looks up album art on the iTunes search API for recommendations the
// service sent without a cover. Lookups are cached per title and artist, including
// misses.
type CoverFinder struct {
	SearchURL  string
	HTTPClient *http.Client
	Logger     Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewCoverFinder() *CoverFinder {
	return &CoverFinder{
		SearchURL:  DefaultITunesSearchURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type itunesResponse struct {
	Results []struct {
		ArtworkURL100 string `json:"artworkUrl100"`
		ArtworkURL60  string `json:"artworkUrl60"`
	} `json:"results"`
}

// Find returns an upscaled artwork URL for the first matching song.
func (f *CoverFinder) Find(ctx context.Context, title, artist string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(artist))

	f.mu.Lock()
	if cached, ok := f.cache[key]; ok {
		f.mu.Unlock()
		if cached == "" {
			return "", ErrNoArtwork
		}
		return cached, nil
	}
	f.mu.Unlock()

	cover, err := f.search(ctx, title, artist)
	if err != nil && !errors.Is(err, ErrNoArtwork) {
		// Transient failures are not cached.
		return "", err
	}

	f.mu.Lock()
	if f.cache == nil {
		f.cache = make(map[string]string)
	}
	f.cache[key] = cover
	f.mu.Unlock()
	return cover, err
}

func (f *CoverFinder) search(ctx context.Context, title, artist string) (string, error) {
	base := f.SearchURL
	if base == "" {
		base = DefaultITunesSearchURL
	}
	endpoint := base + "?term=" + encodeComponent(title+" "+artist) + "&entity=song&limit=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	hc := f.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("searching artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork search returned %d", resp.StatusCode)
	}

	var body itunesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding artwork search: %w", err)
	}
	if len(body.Results) == 0 {
		return "", ErrNoArtwork
	}

	artwork := body.Results[0].ArtworkURL100
	if artwork == "" {
		artwork = body.Results[0].ArtworkURL60
	}
	if artwork == "" {
		return "", ErrNoArtwork
	}
	return upscaleArtwork(artwork), nil
}

// upscaleArtwork rewrites the first size token, e.g. 100x100bb, to 512x512bb.
func upscaleArtwork(u string) string {
	loc := artworkSizePattern.FindStringIndex(u)
	if loc == nil {
		return u
	}
	return u[:loc[0]] + coverSize + u[loc[1]:]
}

// CoverURL returns the recommendation's own cover or a looked-up one. Lookup
// failures yield "".
func (f *CoverFinder) CoverURL(ctx context.Context, r model.Recommendation) string {
	if r.CoverURL != "" {
		return r.CoverURL
	}
	cover, err := f.Find(ctx, r.Title, r.Artist)
	if err != nil {
		log := f.Logger
		if log == nil {
			log = logger.GetLogger()
		}
		log.Debugf("no cover for %q by %q: %v", r.Title, r.Artist, err)
		return ""
	}
	return cover
}
