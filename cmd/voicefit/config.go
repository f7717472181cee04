package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/VoiceFit/pkg/utils"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
)

const defaultConfigPath = "~/.config/voicefit/config.yaml"

// fileConfig is the optional YAML config file.
type fileConfig struct {
	APIBaseURL       string `yaml:"api_base_url"`
	DBPath           string `yaml:"db_path"`
	Timeout          string `yaml:"timeout"`
	MockMode         *bool  `yaml:"mock_mode"`
	LogLevel         string `yaml:"log_level"`
	VocalRangeMode   string `yaml:"vocal_range_mode"`
	AllowCrossGender *bool  `yaml:"allow_cross_gender"`
}

// loadFileConfig reads path. A missing file is only an error when the path was
// given explicitly.
func loadFileConfig(path string, explicit bool) (*fileConfig, error) {
	data, err := os.ReadFile(utils.ExpandHome(path))
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// settings are the resolved global options.
type settings struct {
	BaseURL          string
	DBPath           string
	Timeout          time.Duration
	MockMode         bool
	LogLevel         string
	VocalRangeMode   string
	AllowCrossGender bool
}

type globalFlags struct {
	configPath string
	baseURL    string
	dbPath     string
	timeout    time.Duration
	mock       bool
	logLevel   string
}

func registerGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", defaultConfigPath, "Path to the YAML config file")
	fs.StringVar(&g.baseURL, "api", client.DefaultBaseURL, "Analysis API base URL (env VOICEFIT_API_BASE_URL)")
	fs.StringVar(&g.dbPath, "db", "", "Path to the local SQLite history (env VOICEFIT_DB_PATH)")
	fs.DurationVar(&g.timeout, "timeout", client.DefaultTimeout, "Request timeout (env VOICEFIT_TIMEOUT)")
	fs.BoolVar(&g.mock, "mock", false, "Always request mock results (env VOICEFIT_MOCK_MODE)")
	fs.StringVar(&g.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (env VOICEFIT_LOG_LEVEL)")
	return g
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolveSettings applies flag > env > file > default for every option.
func resolveSettings(fs *flag.FlagSet, g *globalFlags, file *fileConfig, getenv func(string) string) (settings, error) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	pick := func(flagName, flagValue, envKey, fileValue, def string) string {
		if set[flagName] {
			return flagValue
		}
		if v := getenv(envKey); v != "" {
			return v
		}
		if fileValue != "" {
			return fileValue
		}
		return def
	}

	s := settings{
		BaseURL:        pick("api", g.baseURL, "VOICEFIT_API_BASE_URL", file.APIBaseURL, client.DefaultBaseURL),
		DBPath:         pick("db", g.dbPath, "VOICEFIT_DB_PATH", file.DBPath, ""),
		LogLevel:       pick("log-level", g.logLevel, "VOICEFIT_LOG_LEVEL", file.LogLevel, ""),
		VocalRangeMode: pick("", "", "VOICEFIT_VOCAL_RANGE_MODE", file.VocalRangeMode, "any"),
	}

	timeout := pick("timeout", g.timeout.String(), "VOICEFIT_TIMEOUT", file.Timeout, client.DefaultTimeout.String())
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return s, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	s.Timeout = d

	fileMock := ""
	if file.MockMode != nil {
		fileMock = strconv.FormatBool(*file.MockMode)
	}
	mock := pick("mock", strconv.FormatBool(g.mock), "VOICEFIT_MOCK_MODE", fileMock, "false")
	if s.MockMode, err = strconv.ParseBool(mock); err != nil {
		return s, fmt.Errorf("invalid mock mode %q: %w", mock, err)
	}

	fileCross := ""
	if file.AllowCrossGender != nil {
		fileCross = strconv.FormatBool(*file.AllowCrossGender)
	}
	cross := pick("", "", "VOICEFIT_ALLOW_CROSS_GENDER", fileCross, "false")
	if s.AllowCrossGender, err = strconv.ParseBool(cross); err != nil {
		return s, fmt.Errorf("invalid allow_cross_gender %q: %w", cross, err)
	}

	return s, nil
}
