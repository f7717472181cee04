package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/recommend"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func resolve(t *testing.T, args []string, file *fileConfig, env map[string]string) settings {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	g := registerGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	st, err := resolveSettings(fs, g, file, func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	return st
}

func TestSettingsPrecedence(t *testing.T) {
	mock := true
	file := &fileConfig{APIBaseURL: "http://file:1", Timeout: "5s", MockMode: &mock, VocalRangeMode: "female"}

	st := resolve(t, nil, &fileConfig{}, nil)
	if st.BaseURL != client.DefaultBaseURL || st.Timeout != client.DefaultTimeout || st.MockMode || st.VocalRangeMode != "any" {
		t.Errorf("defaults = %+v", st)
	}

	st = resolve(t, nil, file, nil)
	if st.BaseURL != "http://file:1" || st.Timeout != 5*time.Second || !st.MockMode || st.VocalRangeMode != "female" {
		t.Errorf("file = %+v", st)
	}

	env := map[string]string{"VOICEFIT_API_BASE_URL": "http://env:2", "VOICEFIT_MOCK_MODE": "false"}
	st = resolve(t, nil, file, env)
	if st.BaseURL != "http://env:2" || st.MockMode {
		t.Errorf("env = %+v", st)
	}

	st = resolve(t, []string{"-api", "http://flag:3", "-mock"}, file, env)
	if st.BaseURL != "http://flag:3" || !st.MockMode {
		t.Errorf("flag = %+v", st)
	}
}

func TestSettingsRejectBadValues(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	g := registerGlobalFlags(fs)
	fs.Parse(nil)
	if _, err := resolveSettings(fs, g, &fileConfig{Timeout: "soon"}, func(string) string { return "" }); err == nil {
		t.Error("expected error for bad timeout")
	}
	env := func(k string) string {
		if k == "VOICEFIT_MOCK_MODE" {
			return "perhaps"
		}
		return ""
	}
	if _, err := resolveSettings(fs, g, &fileConfig{}, env); err == nil {
		t.Error("expected error for bad mock mode")
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, "api_base_url: https://api.example\nmock_mode: true\nallow_cross_gender: true\ntimeout: 30s\n")
	cfg, err := loadFileConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "https://api.example" || cfg.MockMode == nil || !*cfg.MockMode || cfg.Timeout != "30s" {
		t.Errorf("cfg = %+v", cfg)
	}

	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := loadFileConfig(missing, false); err != nil {
		t.Errorf("implicit missing config: %v", err)
	}
	if _, err := loadFileConfig(missing, true); err == nil {
		t.Error("explicit missing config should fail")
	}
	if _, err := loadFileConfig(writeConfig(t, "timeout: [1"), true); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseCommand(t *testing.T) {
	for _, args := range [][]string{
		{"voice.wav", "-mime", "audio/wav"},
		{"-mime", "audio/wav", "voice.wav"},
	} {
		fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
		mime := fs.String("mime", "", "")
		got, err := parseCommand(fs, args)
		if err != nil || got != "voice.wav" || *mime != "audio/wav" {
			t.Errorf("parseCommand(%v) = %q, %q, %v", args, got, *mime, err)
		}
	}
}

func TestPrintResultFiltersAndLinks(t *testing.T) {
	res := &model.AnalyzeResponse{
		Profile:    model.VoiceProfile{Brightness: 0.5, Husky: 0, Softness: 1},
		Confidence: 0.84,
		Filters:    model.Filters{VocalRangeMode: model.VocalRangeAny},
		Recommendations: []model.Recommendation{
			{Rank: 1, Title: "Dynamite", Artist: "BTS", MatchPercent: 82, Tags: []string{"pop"}, Reasons: []string{}},
			{Rank: 2, Title: "Confession", Artist: "Jung Joon Il", MatchPercent: 79, Tags: []string{"ballad"}, Reasons: []string{}},
		},
	}
	af := &analysisFlags{filter: recommend.Filter{Genre: "ballad"}}

	var buf bytes.Buffer
	if err := printResult(context.Background(), &buf, nil, res, af); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"confidence 84%",
		"##########.......... ",
		"Recommendations (1 of 2)",
		"Confession - Jung Joon Il  79% match",
		"https://open.spotify.com/search/Confession%20Jung%20Joon%20Il",
		"genre [pop, ballad]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Dynamite - BTS") {
		t.Error("filtered recommendation printed")
	}
}
