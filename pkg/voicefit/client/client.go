// Package client talks to the VoiceFit analysis service and normalizes whatever it
// answers into model.AnalyzeResponse.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 8 << 20
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Upload is the file part of an analysis request. It is opened once per attempt.
type Upload interface {
	Name() string
	MIMEType() string
	Open() (io.ReadSeekCloser, error)
}

type AnalyzeOptions struct {
	// VocalRangeMode defaults to any.
	VocalRangeMode   model.VocalRangeMode
	AllowCrossGender bool
	Mock             bool
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies only when HTTPClient is nil.
	Timeout   time.Duration
	UserAgent string
	Logger    Logger
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	log        Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "voicefit-go/1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		log:        cfg.Logger,
	}, nil
}

// BaseURL returns the service root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// Analyze submits file for analysis. Every failure is an *APIError.
func (c *Client) Analyze(ctx context.Context, file Upload, opts AnalyzeOptions) (*model.AnalyzeResponse, error) {
	body, contentType, err := buildAnalyzeBody(file, opts)
	if err != nil {
		return nil, &APIError{
			Kind:    KindInput,
			Message: fmt.Sprintf("could not prepare the upload: %v", err),
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/analyze"), body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "could not build the analysis request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	c.log.Debugf("POST %s (file=%s mode=%s cross=%t mock=%t)", req.URL, file.Name(), opts.VocalRangeMode, opts.AllowCrossGender, opts.Mock)

	raw, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := Normalize(raw)
	if err != nil {
		return nil, &APIError{
			Kind:    KindMalformed,
			Message: "the analysis service returned an unreadable response",
			Status:  http.StatusOK,
			Err:     err,
		}
	}
	return result, nil
}

// Health calls GET /health. It is a liveness probe only.
func (c *Client) Health(ctx context.Context) (*model.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "could not build the health request", Err: err}
	}

	raw, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &APIError{
			Kind:    KindMalformed,
			Message: "the health check returned an unreadable response",
			Status:  http.StatusOK,
			Err:     err,
		}
	}
	return &model.HealthResponse{
		Status:  toString(m["status"]),
		Message: toString(m["message"]),
	}, nil
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &APIError{Kind: KindCanceled, Message: "the request was canceled", Err: ctx.Err()}
		}
		c.log.Warnf("%s %s failed: %v", req.Method, req.URL.Path, err)
		return nil, &APIError{
			Kind:    KindNetwork,
			Message: "network error: the analysis service could not be reached",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, &APIError{Kind: KindCanceled, Message: "the request was canceled", Err: ctx.Err()}
		}
		return nil, &APIError{
			Kind:    KindNetwork,
			Message: "network error: the response was interrupted",
			Status:  resp.StatusCode,
			Err:     err,
		}
	}

	c.log.Debugf("%s %s -> %d in %s", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, raw)
		c.log.Warnf("%s %s returned %d code=%q", req.Method, req.URL.Path, resp.StatusCode, apiErr.Code)
		return nil, apiErr
	}
	return raw, nil
}

func buildAnalyzeBody(file Upload, opts AnalyzeOptions) (io.Reader, string, error) {
	if file == nil {
		return nil, "", errors.New("no file")
	}
	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	mimeType := file.MIMEType()
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name()))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	mode := opts.VocalRangeMode
	if mode == "" {
		mode = model.VocalRangeAny
	}
	fields := []struct{ key, value string }{
		{"vocal_range_mode", string(mode)},
		{"allow_cross_gender", strconv.FormatBool(opts.AllowCrossGender)},
		{"mock", strconv.FormatBool(opts.Mock)},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
