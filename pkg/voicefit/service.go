// Package voicefit wires the VoiceFit client together: upload validation, the
// analysis API with its mock fallback, local history and the stub account session.
package voicefit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/account"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/capture"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/fallback"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/history"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/recommend"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/storage"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/upload"
)

type Service struct {
	cfg        *Config
	log        Logger
	store      KeyValueStore
	ownsStore  bool
	client     *client.Client
	validator  *upload.Validator
	controller *fallback.Controller
	ledger     *history.Ledger
	session    *account.Session
	covers     *recommend.CoverFinder
}

func NewService(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &Service{cfg: cfg, log: cfg.Logger}

	if cfg.Store != nil {
		s.store = cfg.Store
	} else {
		st, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}
		s.store = st
		s.ownsStore = true
	}

	c, err := client.New(client.Config{
		BaseURL:    cfg.BaseURL,
		HTTPClient: cfg.HTTPClient,
		Timeout:    cfg.Timeout,
		UserAgent:  cfg.UserAgent,
		Logger:     cfg.Logger,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	s.client = c

	s.validator = upload.NewValidator()
	s.ledger = history.New(s.store, history.WithLogger(cfg.Logger))
	s.session = account.NewSession(account.StubAuthenticator{}, s.store)
	s.controller = fallback.New(s.validator, s.client,
		fallback.WithRecorder(s.ledger),
		fallback.WithLogger(cfg.Logger),
		fallback.WithForcedMock(cfg.MockMode),
	)

	s.covers = recommend.NewCoverFinder()
	s.covers.Logger = cfg.Logger
	if cfg.CoverSearchURL != "" {
		s.covers.SearchURL = cfg.CoverSearchURL
	}
	if cfg.HTTPClient != nil {
		s.covers.HTTPClient = cfg.HTTPClient
	}

	return s, nil
}

// Validate runs the upload checks without contacting the service.
func (s *Service) Validate(ctx context.Context, c upload.Candidate) (upload.Result, error) {
	return s.validator.Validate(ctx, c)
}

// Analyze submits c with the mock fallback policy and records successes in history.
func (s *Service) Analyze(ctx context.Context, c upload.Candidate, opts client.AnalyzeOptions) fallback.Outcome {
	return s.controller.Run(ctx, c, opts)
}

// AnalyzeFile analyzes a file on disk. An empty mimeType is guessed from the
// extension.
func (s *Service) AnalyzeFile(ctx context.Context, path, mimeType string, opts client.AnalyzeOptions) fallback.Outcome {
	return s.Analyze(ctx, upload.NewFileCandidate(path, mimeType), opts)
}

func (s *Service) Health(ctx context.Context) (*model.HealthResponse, error) {
	return s.client.Health(ctx)
}

// NewCapture returns a recording pipeline for devices that logs like the service.
func (s *Service) NewCapture(devices capture.MediaDevices, onTick func(time.Duration)) *capture.Pipeline {
	return capture.New(capture.Config{
		Devices: devices,
		Logger:  s.log,
		OnTick:  onTick,
	})
}

func (s *Service) History() *history.Ledger       { return s.ledger }
func (s *Service) Session() *account.Session      { return s.session }
func (s *Service) Covers() *recommend.CoverFinder { return s.covers }
func (s *Service) BaseURL() string                { return s.client.BaseURL() }
func (s *Service) MockMode() bool                 { return s.cfg.MockMode }

// RequestPrecision requires a logged-in session.
func (s *Service) RequestPrecision(plan model.PrecisionPlan) (model.PrecisionEvent, error) {
	if err := s.session.RequireLogin(); err != nil {
		return model.PrecisionEvent{}, err
	}
	return s.ledger.RequestPrecision(plan)
}

// Close releases the store when the service opened it.
func (s *Service) Close() error {
	if !s.ownsStore {
		return nil
	}
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
