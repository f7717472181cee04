package fallback

import (
	"context"
	"errors"
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

// scriptedAnalyzer answers successive calls from a fixed script and records the
// options of every call.
type scriptedAnalyzer struct {
	replies []reply
	calls   []client.AnalyzeOptions
}

type reply struct {
	res *model.AnalyzeResponse
	err error
}

func (s *scriptedAnalyzer) Analyze(_ context.Context, _ client.Upload, opts client.AnalyzeOptions) (*model.AnalyzeResponse, error) {
	s.calls = append(s.calls, opts)
	if len(s.calls) > len(s.replies) {
		return nil, errors.New("unexpected call")
	}
	r := s.replies[len(s.calls)-1]
	return r.res, r.err
}

type memRecorder struct {
	sources []model.AnalysisSource
	err     error
}

func (m *memRecorder) AddAnalysis(source model.AnalysisSource, result model.AnalyzeResponse) (model.AnalysisRecord, error) {
	if m.err != nil {
		return model.AnalysisRecord{}, m.err
	}
	m.sources = append(m.sources, source)
	return model.AnalysisRecord{ID: "analysis-1", Source: source, Result: result}, nil
}

func validCandidate() upload.Candidate {
	buf := &audio.Buffer{SampleRate: 8000, Channels: [][]float32{make([]float32, 8000*5)}}
	return &upload.BytesCandidate{FileName: "take.wav", MIME: audio.MIMEType, Data: audio.EncodeWAV(buf)}
}

var (
	realResult = &model.AnalyzeResponse{Summary: "real"}
	mockResult = &model.AnalyzeResponse{Summary: "mock"}
)

func TestRunSuccess(t *testing.T) {
	a := &scriptedAnalyzer{replies: []reply{{res: realResult}}}
	rec := &memRecorder{}
	c := New(upload.NewValidator(), a, WithLogger(discard{}), WithRecorder(rec))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})

	if out.Err != nil || out.Result != realResult {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Source != model.SourceAPI || out.Notice != "" || out.Degraded() {
		t.Errorf("source=%s notice=%q", out.Source, out.Notice)
	}
	if len(a.calls) != 1 || a.calls[0].Mock {
		t.Errorf("calls = %+v", a.calls)
	}
	if out.Record == nil || len(rec.sources) != 1 || rec.sources[0] != model.SourceAPI {
		t.Errorf("history not written: %+v", rec.sources)
	}
}

func TestNoMockCodesSurfaceVerbatim(t *testing.T) {
	codes := []string{
		client.CodeUnsupportedFormat, client.CodeFileTooLarge, client.CodeEmptyFile,
		client.CodeInvalidWAV, client.CodeUnsupportedWAVEncoding, client.CodeAudioDecodeError,
		client.CodeInvalidAudioSignal, client.CodeAudioTooShort, client.CodeSilentAudio,
		client.CodeNonVocalInput, client.CodeInvalidBoolean, client.CodeInvalidVocalRangeMode,
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			apiErr := &client.APIError{Kind: client.KindHTTP, Code: code, Message: "msg " + code, Status: 400}
			a := &scriptedAnalyzer{replies: []reply{{err: apiErr}, {res: mockResult}}}
			c := New(upload.NewValidator(), a, WithLogger(discard{}))

			out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})

			if len(a.calls) != 1 {
				t.Fatalf("analyzer called %d times, want 1", len(a.calls))
			}
			if out.Result != nil || out.Err != apiErr {
				t.Fatalf("outcome = %+v, want the original error", out)
			}
			if out.Err.Error() != "msg "+code {
				t.Errorf("message = %q", out.Err.Error())
			}
		})
	}
}

func TestRetryableFailuresUseOneMockRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"network", &client.APIError{Kind: client.KindNetwork, Message: "network error"}},
		{"server 500 no code", &client.APIError{Kind: client.KindHTTP, Message: "server error (500)", Status: 500}},
		{"unknown code", &client.APIError{Kind: client.KindHTTP, Code: "ANALYSIS_FAILED", Status: 500}},
		{"malformed", &client.APIError{Kind: client.KindMalformed, Status: 200}},
		{"plain error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &scriptedAnalyzer{replies: []reply{{err: tt.err}, {res: mockResult}}}
			rec := &memRecorder{}
			c := New(upload.NewValidator(), a, WithLogger(discard{}), WithRecorder(rec))

			out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{VocalRangeMode: model.VocalRangeMale})

			if len(a.calls) != 2 {
				t.Fatalf("analyzer called %d times, want 2", len(a.calls))
			}
			if a.calls[0].Mock || !a.calls[1].Mock {
				t.Errorf("mock flags = %t, %t", a.calls[0].Mock, a.calls[1].Mock)
			}
			if a.calls[1].VocalRangeMode != model.VocalRangeMale {
				t.Errorf("retry dropped options: %+v", a.calls[1])
			}
			if out.Err != nil || out.Result != mockResult {
				t.Fatalf("outcome = %+v", out)
			}
			if out.Notice != MockNotice || !out.Degraded() {
				t.Errorf("notice=%q degraded=%t", out.Notice, out.Degraded())
			}
			if out.Cause != tt.err {
				t.Errorf("Cause = %v, want %v", out.Cause, tt.err)
			}
			if len(rec.sources) != 1 || rec.sources[0] != model.SourceMock {
				t.Errorf("history sources = %v", rec.sources)
			}
		})
	}
}

func TestMockRetryFailureSurfacesOriginalError(t *testing.T) {
	original := &client.APIError{Kind: client.KindNetwork, Message: "network error"}
	a := &scriptedAnalyzer{replies: []reply{
		{err: original},
		{err: &client.APIError{Kind: client.KindNetwork, Message: "still down"}},
	}}
	c := New(upload.NewValidator(), a, WithLogger(discard{}))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})

	if len(a.calls) != 2 {
		t.Fatalf("analyzer called %d times, want exactly 2", len(a.calls))
	}
	if out.Err != original || out.Result != nil || out.Notice != "" {
		t.Fatalf("outcome = %+v, want original error only", out)
	}
}

func TestValidationFailureSkipsNetwork(t *testing.T) {
	a := &scriptedAnalyzer{}
	c := New(upload.NewValidator(), a, WithLogger(discard{}))

	mp3 := &upload.BytesCandidate{FileName: "song.mp3", MIME: "audio/mpeg", Data: make([]byte, 6<<20)}
	out := c.Run(context.Background(), mp3, client.AnalyzeOptions{})

	if len(a.calls) != 0 {
		t.Fatalf("analyzer called %d times, want 0", len(a.calls))
	}
	ve, ok := upload.IsValidationError(out.Err)
	if !ok || ve.Reason != upload.ReasonUnsupportedFormat {
		t.Fatalf("error = %v, want unsupported format", out.Err)
	}
}

func TestCanceledIsNotRetried(t *testing.T) {
	canceled := &client.APIError{Kind: client.KindCanceled, Err: context.Canceled}
	a := &scriptedAnalyzer{replies: []reply{{err: canceled}}}
	c := New(upload.NewValidator(), a, WithLogger(discard{}))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})
	if len(a.calls) != 1 || out.Err != canceled {
		t.Fatalf("calls=%d outcome=%+v", len(a.calls), out)
	}
}

func TestClientTimeoutIsRetried(t *testing.T) {
	timeout := &client.APIError{Kind: client.KindNetwork, Err: context.DeadlineExceeded}
	a := &scriptedAnalyzer{replies: []reply{{err: timeout}, {res: mockResult}}}
	c := New(upload.NewValidator(), a, WithLogger(discard{}))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})
	if len(a.calls) != 2 || !a.calls[1].Mock {
		t.Fatalf("calls = %+v, want a mock retry", a.calls)
	}
	if out.Err != nil || out.Notice != MockNotice || out.Cause != timeout {
		t.Errorf("outcome = %+v", out)
	}
}

func TestUnreadableFileIsNotRetried(t *testing.T) {
	unreadable := &client.APIError{Kind: client.KindInput, Message: "could not prepare the upload: file vanished"}
	a := &scriptedAnalyzer{replies: []reply{{err: unreadable}, {res: mockResult}}}
	c := New(upload.NewValidator(), a, WithLogger(discard{}))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})
	if len(a.calls) != 1 || out.Err != unreadable || out.Result != nil {
		t.Fatalf("calls=%d outcome=%+v", len(a.calls), out)
	}
}

func TestForcedMock(t *testing.T) {
	a := &scriptedAnalyzer{replies: []reply{{res: mockResult}}}
	c := New(upload.NewValidator(), a, WithLogger(discard{}), WithForcedMock(true))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})

	if len(a.calls) != 1 || !a.calls[0].Mock {
		t.Fatalf("calls = %+v, want one mock call", a.calls)
	}
	if out.Notice != ForcedMockNotice || out.Source != model.SourceMock {
		t.Errorf("outcome = %+v", out)
	}
}

func TestHistoryFailureDoesNotFailOutcome(t *testing.T) {
	a := &scriptedAnalyzer{replies: []reply{{res: realResult}}}
	c := New(upload.NewValidator(), a, WithLogger(discard{}), WithRecorder(&memRecorder{err: errors.New("disk full")}))

	out := c.Run(context.Background(), validCandidate(), client.AnalyzeOptions{})
	if out.Err != nil || out.Result == nil || out.Record != nil {
		t.Fatalf("outcome = %+v", out)
	}
}
