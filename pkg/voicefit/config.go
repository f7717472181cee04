package voicefit

import (
	"net/http"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MockMode sends every analysis with mock=true and flags the result.
	MockMode bool
	Logger   Logger
	// Store overrides the SQLite store at DBPath.
	Store KeyValueStore
	// DBPath defaults to VOICEFIT_DB_PATH, then storage.DefaultDBFile.
	DBPath string
	// CoverSearchURL points the cover lookup at an iTunes-compatible search API.
	CoverSearchURL string
	UserAgent      string
}

type Option func(*Config)

func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithMockMode(on bool) Option {
	return func(c *Config) {
		c.MockMode = on
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStore(store KeyValueStore) Option {
	return func(c *Config) {
		c.Store = store
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithCoverSearchURL(url string) Option {
	return func(c *Config) {
		c.CoverSearchURL = url
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

func defaultConfig() *Config {
	return &Config{
		BaseURL: client.DefaultBaseURL,
		Timeout: client.DefaultTimeout,
	}
}
