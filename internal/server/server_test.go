package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

type discard struct{}

func (discard) Infof(string, ...any)  {}
func (discard) Warnf(string, ...any)  {}
func (discard) Errorf(string, ...any) {}
func (discard) Debugf(string, ...any) {}

const rate = 16000

func samples(seconds float64, gen func(i int) float64) []byte {
	n := int(seconds * rate)
	ch := make([]float32, n)
	for i := range ch {
		ch[i] = float32(gen(i))
	}
	return audio.EncodeWAV(&audio.Buffer{SampleRate: rate, Channels: [][]float32{ch}})
}

// voiced is a 220 Hz fundamental with a few harmonics.
func voiced(seconds float64) []byte {
	return samples(seconds, func(i int) float64 {
		t := float64(i) / rate
		return 0.3*math.Sin(2*math.Pi*220*t) + 0.15*math.Sin(2*math.Pi*440*t) + 0.08*math.Sin(2*math.Pi*660*t)
	})
}

type part struct {
	name, filename, contentType string
	data                        []byte
}

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	cfg.Logger = discard{}
	ts := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postAnalyze(t *testing.T, url string, fields map[string]string, file *part) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.name+`"; filename="`+file.filename+`"`)
		if file.contentType != "" {
			h.Set("Content-Type", file.contentType)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(file.data)
	}
	mw.Close()

	resp, err := http.Post(url+"/analyze", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /analyze: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func wavPart(data []byte) *part {
	return &part{name: "file", filename: "voice.wav", contentType: "audio/wav", data: data}
}

func decodeError(t *testing.T, resp *http.Response) model.ErrorBody {
	t.Helper()
	var env model.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if env.Error == nil {
		t.Fatal("missing error object")
	}
	return *env.Error
}

func TestHealth(t *testing.T) {
	ts := newServer(t, Config{})
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var h model.HealthResponse
	json.NewDecoder(resp.Body).Decode(&h)
	if resp.StatusCode != http.StatusOK || h.Status != "ok" {
		t.Fatalf("status %d, body %+v", resp.StatusCode, h)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	badEncoding := voiced(5)
	binary.LittleEndian.PutUint16(badEncoding[20:], 3)
	binary.LittleEndian.PutUint16(badEncoding[34:], 32)

	r := rand.New(rand.NewSource(7))
	noise := samples(5, func(int) float64 { return r.Float64()*1.6 - 0.8 })
	square := samples(5, func(i int) float64 {
		if math.Sin(2*math.Pi*220*float64(i)/rate) >= 0 {
			return 1
		}
		return -1
	})

	tests := []struct {
		name   string
		fields map[string]string
		file   *part
		status int
		code   string
	}{
		{"bad boolean", map[string]string{"mock": "yes"}, nil, 422, client.CodeInvalidBoolean},
		{"bad cross gender", map[string]string{"allow_cross_gender": "maybe"}, wavPart(voiced(5)), 422, client.CodeInvalidBoolean},
		{"bad vocal mode", map[string]string{"vocal_range_mode": "tenor"}, wavPart(voiced(5)), 422, client.CodeInvalidVocalRangeMode},
		{"no file", nil, nil, 400, client.CodeEmptyFile},
		{"mp3 extension", nil, &part{"file", "song.mp3", "audio/mpeg", []byte("ID3")}, 415, client.CodeUnsupportedFormat},
		{"webm blob", nil, &part{"file", "blob", "audio/webm", []byte{1, 2, 3}}, 415, client.CodeUnsupportedMediaType},
		{"empty wav", nil, wavPart(nil), 400, client.CodeEmptyFile},
		{"not riff", nil, wavPart([]byte(strings.Repeat("x", 100))), 400, client.CodeInvalidWAV},
		{"float wav", nil, wavPart(badEncoding), 415, client.CodeUnsupportedWAVEncoding},
		{"too short", nil, wavPart(voiced(1)), 422, client.CodeAudioTooShort},
		{"silent", nil, wavPart(samples(5, func(int) float64 { return 0 })), 422, client.CodeSilentAudio},
		{"clipped", nil, wavPart(square), 422, client.CodeInvalidAudioSignal},
		{"noise", nil, wavPart(noise), 422, client.CodeNonVocalInput},
	}

	ts := newServer(t, Config{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postAnalyze(t, ts.URL, tc.fields, tc.file)
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if got := decodeError(t, resp); got.Code != tc.code {
				t.Errorf("code = %q (%s), want %q", got.Code, got.Message, tc.code)
			}
		})
	}
}

func TestAnalyzeTooLarge(t *testing.T) {
	ts := newServer(t, Config{MaxUploadBytes: 1000})
	resp := postAnalyze(t, ts.URL, nil, wavPart(voiced(1)))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeError(t, resp)
	if body.Code != client.CodeFileTooLarge || !strings.Contains(body.Hint, "KiB") {
		t.Errorf("body = %+v", body)
	}
}

func TestAnalyzeMock(t *testing.T) {
	ts := newServer(t, Config{})
	resp := postAnalyze(t, ts.URL, map[string]string{"mock": "true", "vocal_range_mode": "female"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got model.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Recommendations) != 5 {
		t.Fatalf("recommendations = %d, want 5", len(got.Recommendations))
	}
	if got.Recommendations[0].MatchPercent != 89 || got.Recommendations[4].Rank != 5 {
		t.Errorf("unexpected mock ranking: %+v", got.Recommendations)
	}
	if got.Filters.VocalRangeMode != model.VocalRangeFemale {
		t.Errorf("filters = %+v", got.Filters)
	}
}

func TestAnalyzeVoiced(t *testing.T) {
	ts := newServer(t, Config{})
	resp := postAnalyze(t, ts.URL, map[string]string{"vocal_range_mode": "female", "allow_cross_gender": "false"}, wavPart(voiced(6)))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var got model.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.InputInfo.DurationSec != 6 {
		t.Errorf("duration = %v", got.InputInfo.DurationSec)
	}
	if len(got.Recommendations) == 0 || len(got.Recommendations) > maxRecommendations {
		t.Fatalf("recommendations = %d", len(got.Recommendations))
	}
	male := map[string]bool{}
	for _, s := range catalog {
		if s.voice == model.VocalRangeMale {
			male[s.title] = true
		}
	}
	for i, r := range got.Recommendations {
		if male[r.Title] {
			t.Errorf("male song %q recommended for female without cross gender", r.Title)
		}
		if r.Rank != i+1 {
			t.Errorf("rank %d at position %d", r.Rank, i)
		}
		if i > 0 && r.Score > got.Recommendations[i-1].Score {
			t.Error("recommendations not sorted by score")
		}
	}
}

func TestClientAgainstServer(t *testing.T) {
	ts := newServer(t, Config{})
	c, err := client.New(client.Config{BaseURL: ts.URL, Logger: discard{}})
	if err != nil {
		t.Fatal(err)
	}

	h, err := c.Health(context.Background())
	if err != nil || h.Status != "ok" {
		t.Fatalf("Health = %+v, %v", h, err)
	}

	cand := &upload.BytesCandidate{FileName: "take.wav", MIME: audio.MIMEType, Data: voiced(12)}
	res, err := c.Analyze(context.Background(), cand, client.AnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.InputInfo.DurationSec != 12 || res.Filters.VocalRangeMode != model.VocalRangeAny {
		t.Errorf("result = %+v", res)
	}

	short := &upload.BytesCandidate{FileName: "take.wav", MIME: audio.MIMEType, Data: voiced(1)}
	_, err = c.Analyze(context.Background(), short, client.AnalyzeOptions{})
	apiErr, ok := client.AsAPIError(err)
	if !ok || apiErr.Code != client.CodeAudioTooShort || apiErr.Status != 422 {
		t.Fatalf("err = %#v", err)
	}
	if !strings.Contains(apiErr.Message, "(received 1s)") {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	ts := newServer(t, Config{AllowedOrigins: []string{"http://app.local"}})
	postAnalyze(t, ts.URL, map[string]string{"mock": "true"}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{`voicefit_analyze_outcomes_total{outcome="mock"} 1`, "voicefit_http_requests_total"} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("metrics missing %q", want)
		}
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/analyze", nil)
	req.Header.Set("Origin", "http://app.local")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://app.local" {
		t.Errorf("preflight: %d %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newServer(t, Config{})
	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || decodeError(t, resp).Code != "NOT_FOUND" {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
