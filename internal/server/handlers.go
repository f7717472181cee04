package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/VoiceFit/internal/signal"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/client"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

// Signal thresholds for rejecting a sample.
const (
	silentRMS        = 0.005
	maxClippedShare  = 0.2
	minVoiceBandRate = 0.5
	maxFlatness      = 0.6
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "VoiceFit dev API",
		"version": Version,
		"endpoints": map[string]string{
			"health":  "GET /health",
			"analyze": "POST /analyze",
			"metrics": "GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, model.HealthResponse{Status: "ok", Message: "VoiceFit dev server " + Version})
}

type analyzeRequest struct {
	mode             model.VocalRangeMode
	allowCrossGender bool
	mock             bool
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	resp, outcome, aerr := s.analyze(w, r)
	if aerr != nil {
		s.metrics.AnalyzeOutcomes.WithLabelValues(aerr.code).Inc()
		s.log.Warnf("analyze rejected: %v", aerr)
		s.respondError(w, aerr)
		return
	}
	s.metrics.AnalyzeOutcomes.WithLabelValues(outcome).Inc()
	s.log.Debugf("analyze %s in %v", outcome, s.now().Sub(start))
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*model.AnalyzeResponse, string, *apiError) {
	// Leave headroom for the form fields and multipart framing so an oversized
	// file is still reported as FILE_TOO_LARGE.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes + 1<<20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", s.tooLarge("received more than " + humanize.IBytes(uint64(tooLarge.Limit)))
		}
		return nil, "", &apiError{
			status:  http.StatusBadRequest,
			code:    client.CodeInvalidAudio,
			message: "request must be multipart/form-data",
			hint:    err.Error(),
		}
	}
	defer r.MultipartForm.RemoveAll()

	req, aerr := parseOptions(r)
	if aerr != nil {
		return nil, "", aerr
	}
	if req.mock {
		return mockResponse(req), "mock", nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", &apiError{status: http.StatusBadRequest, code: client.CodeEmptyFile, message: "no file was uploaded", hint: "send the sample in the 'file' field"}
	}
	defer file.Close()

	if aerr := checkFileType(header); aerr != nil {
		return nil, "", aerr
	}
	if header.Size == 0 {
		return nil, "", &apiError{status: http.StatusBadRequest, code: client.CodeEmptyFile, message: "the uploaded file is empty"}
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return nil, "", s.tooLarge("received " + humanize.IBytes(uint64(header.Size)))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", &apiError{status: http.StatusBadRequest, code: client.CodeInvalidAudio, message: "could not read the upload", hint: err.Error()}
	}

	buf, aerr := decodeSample(data)
	if aerr != nil {
		return nil, "", aerr
	}

	stats := signal.Analyze(buf)
	s.metrics.SampleDuration.Observe(stats.Duration)
	if aerr := s.checkSignal(stats); aerr != nil {
		return nil, "", aerr
	}
	return analysisResponse(stats, req), "ok", nil
}

func (s *Server) tooLarge(hint string) *apiError {
	return &apiError{
		status:  http.StatusRequestEntityTooLarge,
		code:    client.CodeFileTooLarge,
		message: fmt.Sprintf("file must be %s or smaller", humanize.IBytes(uint64(s.cfg.MaxUploadBytes))),
		hint:    hint,
	}
}

func parseOptions(r *http.Request) (analyzeRequest, *apiError) {
	req := analyzeRequest{mode: model.VocalRangeAny}

	if v := strings.TrimSpace(r.FormValue("vocal_range_mode")); v != "" {
		mode, ok := model.ParseVocalRangeMode(strings.ToLower(v))
		if !ok {
			return req, &apiError{
				status:  http.StatusUnprocessableEntity,
				code:    client.CodeInvalidVocalRangeMode,
				message: fmt.Sprintf("invalid vocal_range_mode %q", v),
				hint:    "use male, female or any",
			}
		}
		req.mode = mode
	}

	var aerr *apiError
	if req.allowCrossGender, aerr = parseBool(r, "allow_cross_gender"); aerr != nil {
		return req, aerr
	}
	if req.mock, aerr = parseBool(r, "mock"); aerr != nil {
		return req, aerr
	}
	return req, nil
}

func parseBool(r *http.Request, field string) (bool, *apiError) {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(field))) {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, &apiError{
		status:  http.StatusUnprocessableEntity,
		code:    client.CodeInvalidBoolean,
		message: fmt.Sprintf("%s must be true or false", field),
	}
}

func checkFileType(h *multipart.FileHeader) *apiError {
	ext := strings.ToLower(filepath.Ext(h.Filename))
	ct := strings.ToLower(h.Header.Get("Content-Type"))
	switch {
	case ext == ".wav":
		return nil
	case ext == "" && (strings.HasPrefix(ct, "audio/wav") || strings.HasPrefix(ct, "audio/x-wav") || strings.HasPrefix(ct, "audio/wave")):
		return nil
	case strings.HasPrefix(ct, "audio/") && ext == "":
		return &apiError{status: http.StatusUnsupportedMediaType, code: client.CodeUnsupportedMediaType, message: fmt.Sprintf("unsupported media type %q", ct), hint: "convert the sample to WAV"}
	}
	return &apiError{status: http.StatusUnsupportedMediaType, code: client.CodeUnsupportedFormat, message: fmt.Sprintf("unsupported file extension %q", ext), hint: "only .wav files are accepted"}
}

func decodeSample(data []byte) (*audio.Buffer, *apiError) {
	h, err := audio.ReadHeader(bytes.NewReader(data))
	if err != nil {
		return nil, &apiError{status: http.StatusBadRequest, code: client.CodeInvalidWAV, message: "the WAV header is invalid", hint: err.Error()}
	}
	if h.Format.AudioFormat != 1 || h.Format.BitsPerSample != 16 {
		return nil, &apiError{
			status:  http.StatusUnsupportedMediaType,
			code:    client.CodeUnsupportedWAVEncoding,
			message: fmt.Sprintf("unsupported WAV encoding (format %d, %d-bit)", h.Format.AudioFormat, h.Format.BitsPerSample),
			hint:    "use 16-bit PCM",
		}
	}
	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, &apiError{status: http.StatusUnprocessableEntity, code: client.CodeAudioDecodeError, message: "the audio could not be decoded", hint: err.Error()}
	}
	return buf, nil
}

func (s *Server) checkSignal(st signal.Stats) *apiError {
	switch {
	case st.Duration < s.cfg.MinDuration:
		return &apiError{
			status:  http.StatusUnprocessableEntity,
			code:    client.CodeAudioTooShort,
			message: fmt.Sprintf("audio must be at least %.0f seconds long", s.cfg.MinDuration),
			hint:    fmt.Sprintf("received %s", (time.Duration(st.Duration * float64(time.Second))).Round(100*time.Millisecond)),
		}
	case st.RMS < silentRMS:
		return &apiError{status: http.StatusUnprocessableEntity, code: client.CodeSilentAudio, message: "the audio is almost silent"}
	case st.Clipped > maxClippedShare:
		return &apiError{status: http.StatusUnprocessableEntity, code: client.CodeInvalidAudioSignal, message: "the audio is heavily clipped", hint: "move further from the microphone"}
	case st.VoiceBandRatio < minVoiceBandRate || st.Flatness > maxFlatness:
		return &apiError{status: http.StatusUnprocessableEntity, code: client.CodeNonVocalInput, message: "the input does not sound like a voice"}
	}
	return nil
}
