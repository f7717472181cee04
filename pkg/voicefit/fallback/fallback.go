// Package fallback decides, per failure, whether an analysis may be retried in mock
// mode or must be shown to the user as is.
package fallback

import (
	"context"
	"errors"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

const (
	// MockNotice accompanies a result obtained through the mock retry.
	MockNotice = "The analysis server is unstable, so temporary recommendations are shown."
	// ForcedMockNotice accompanies results while mock mode is switched on.
	ForcedMockNotice = "Mock mode is on: these recommendations are sample data, not an analysis of your voice."
)

// noMockCodes are input-side problems the user can fix. They are never masked by
// a mock result.
var noMockCodes = map[string]struct{}{
	client.CodeUnsupportedFormat:      {},
	client.CodeFileTooLarge:           {},
	client.CodeEmptyFile:              {},
	client.CodeInvalidWAV:             {},
	client.CodeUnsupportedWAVEncoding: {},
	client.CodeAudioDecodeError:       {},
	client.CodeInvalidAudioSignal:     {},
	client.CodeAudioTooShort:          {},
	client.CodeSilentAudio:            {},
	client.CodeNonVocalInput:          {},
	client.CodeInvalidBoolean:         {},
	client.CodeInvalidVocalRangeMode:  {},
}

// IsNoMockCode reports whether a server error code must be surfaced verbatim.
func IsNoMockCode(code string) bool {
	_, ok := noMockCodes[code]
	return ok
}

// Retryable reports whether err may be answered with one mock-mode retry.
// Validation failures, user-correctable server codes and cancellation are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := upload.IsValidationError(err); ok {
		return false
	}
	// A client timeout arrives as a network APIError wrapping DeadlineExceeded and
	// stays retryable; only the caller's own cancellation is final.
	if apiErr, ok := client.AsAPIError(err); ok {
		if apiErr.Kind == client.KindCanceled || apiErr.Kind == client.KindInput {
			return false
		}
		return !IsNoMockCode(apiErr.Code)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type Validator interface {
	Validate(ctx context.Context, c upload.Candidate) (upload.Result, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, file client.Upload, opts client.AnalyzeOptions) (*model.AnalyzeResponse, error)
}

// Recorder receives every successful analysis, e.g. the history ledger.
type Recorder interface {
	AddAnalysis(source model.AnalysisSource, result model.AnalyzeResponse) (model.AnalysisRecord, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Outcome of one analysis attempt. Exactly one of Result and Err is set. A mock
// result always carries a Notice.
type Outcome struct {
	Result *model.AnalyzeResponse
	Source model.AnalysisSource
	Notice string
	Err    error
	// Cause is the original failure that a mock result stands in for.
	Cause error
	// Record is the history entry, when a Recorder is wired and the write succeeded.
	Record *model.AnalysisRecord
}

// Degraded reports whether the result is mock data.
func (o Outcome) Degraded() bool {
	return o.Result != nil && o.Source == model.SourceMock
}

type Controller struct {
	validator Validator
	analyzer  Analyzer
	recorder  Recorder
	log       Logger
	forceMock bool
}

type Option func(*Controller)

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

func WithLogger(log Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithForcedMock sends every request with mock=true.
func WithForcedMock(on bool) Option {
	return func(c *Controller) {
		c.forceMock = on
	}
}

func New(v Validator, a Analyzer, opts ...Option) *Controller {
	c := &Controller{validator: v, analyzer: a}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}
	return c
}

// Run validates the candidate again, submits it and applies the mock policy.
func (c *Controller) Run(ctx context.Context, file upload.Candidate, opts client.AnalyzeOptions) Outcome {
	if _, err := c.validator.Validate(ctx, file); err != nil {
		return Outcome{Err: err}
	}

	if c.forceMock {
		opts.Mock = true
		result, err := c.analyzer.Analyze(ctx, file, opts)
		if err != nil {
			return Outcome{Err: err}
		}
		return c.success(result, model.SourceMock, ForcedMockNotice, nil)
	}

	result, err := c.analyzer.Analyze(ctx, file, opts)
	if err == nil {
		if opts.Mock {
			return c.success(result, model.SourceMock, ForcedMockNotice, nil)
		}
		return c.success(result, model.SourceAPI, "", nil)
	}

	if !Retryable(err) {
		return Outcome{Err: err}
	}

	c.log.Warnf("analysis failed (%v); retrying once in mock mode", err)

	mockOpts := opts
	mockOpts.Mock = true
	mockResult, mockErr := c.analyzer.Analyze(ctx, file, mockOpts)
	if mockErr != nil {
		c.log.Debugf("mock retry failed: %v", mockErr)
		return Outcome{Err: err}
	}
	return c.success(mockResult, model.SourceMock, MockNotice, err)
}

func (c *Controller) success(result *model.AnalyzeResponse, source model.AnalysisSource, notice string, cause error) Outcome {
	out := Outcome{Result: result, Source: source, Notice: notice, Cause: cause}
	if c.recorder != nil {
		rec, err := c.recorder.AddAnalysis(source, *result)
		if err != nil {
			c.log.Warnf("saving analysis history: %v", err)
		} else {
			out.Record = &rec
		}
	}
	return out
}
