package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

// Kind classifies where a request failed. Callers branch on Kind and Code instead
// of on error identity.
type Kind string

const (
	// KindNetwork means no HTTP response was received.
	KindNetwork Kind = "network"
	// KindHTTP means the service answered with a non-2xx status.
	KindHTTP Kind = "http"
	// KindMalformed means a 2xx response body was not a JSON object.
	KindMalformed Kind = "malformed"
	// KindCanceled means the caller's context ended first.
	KindCanceled Kind = "canceled"
	// KindInput means the local file could not be read; nothing was sent.
	KindInput Kind = "input"
)

// Error codes reported by the analysis service.
const (
	CodeUnsupportedFormat      = "UNSUPPORTED_FORMAT"
	CodeFileTooLarge           = "FILE_TOO_LARGE"
	CodeEmptyFile              = "EMPTY_FILE"
	CodeInvalidWAV             = "INVALID_WAV"
	CodeUnsupportedWAVEncoding = "UNSUPPORTED_WAV_ENCODING"
	CodeAudioDecodeError       = "AUDIO_DECODE_ERROR"
	CodeInvalidAudioSignal     = "INVALID_AUDIO_SIGNAL"
	CodeAudioTooShort          = "AUDIO_TOO_SHORT"
	CodeSilentAudio            = "SILENT_AUDIO"
	CodeNonVocalInput          = "NON_VOCAL_INPUT"
	CodeInvalidBoolean         = "INVALID_BOOLEAN"
	CodeInvalidVocalRangeMode  = "INVALID_VOCAL_RANGE_MODE"
	CodeInvalidAudio           = "INVALID_AUDIO"
	CodeEmptyAudio             = "EMPTY_AUDIO"
	CodeUnsupportedMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	CodeAnalysisFailed         = "ANALYSIS_FAILED"
)

var codeMessages = map[string]string{
	CodeUnsupportedFormat:      "This file extension is not supported.",
	CodeFileTooLarge:           "The uploaded file exceeds the size limit.",
	CodeEmptyFile:              "Empty files cannot be uploaded.",
	CodeInvalidWAV:             "The WAV header or metadata is invalid.",
	CodeUnsupportedWAVEncoding: "This WAV sample format is not supported.",
	CodeAudioDecodeError:       "The audio could not be decoded.",
	CodeInvalidAudioSignal:     "The audio signal contains invalid values.",
	CodeAudioTooShort:          "The audio is too short. Please try again with at least 3 seconds.",
	CodeSilentAudio:            "The audio is almost silent. Please record again.",
	CodeNonVocalInput:          "The input does not sound like a voice.",
	CodeInvalidBoolean:         "An option value has an invalid format.",
	CodeInvalidVocalRangeMode:  "The vocal range option is invalid.",
	CodeInvalidAudio:           "The audio file format or content is invalid.",
	CodeEmptyAudio:             "The audio is silent or too short. Please record at least 3 seconds.",
	CodeUnsupportedMediaType:   "This audio format is not supported. Please try a different file type.",
	CodeAnalysisFailed:         "Voice analysis failed. Please try again shortly.",
}

const genericMessage = "Something went wrong while handling the request. Please try again shortly."

// KnownCode reports whether code has a fixed user-facing message.
func KnownCode(code string) bool {
	_, ok := codeMessages[code]
	return ok
}

// APIError is the single error type returned by Client. Message is ready for display.
type APIError struct {
	Kind    Kind
	Code    string
	Message string
	Hint    string
	Status  int
	Err     error
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UserMessage picks the display text for an error envelope: the fixed message for a
// known code, else the envelope message, else fallback. A hint is appended in
// parentheses.
func UserMessage(body *model.ErrorBody, fallback string) string {
	if fallback == "" {
		fallback = genericMessage
	}
	if body == nil || (body.Code == "" && body.Message == "" && body.Hint == "") {
		return fallback
	}

	base := codeMessages[body.Code]
	if base == "" {
		base = strings.TrimSpace(body.Message)
	}
	if base == "" {
		base = fallback
	}

	if hint := strings.TrimSpace(body.Hint); hint != "" {
		return fmt.Sprintf("%s (%s)", base, hint)
	}
	return base
}

func serverErrorMessage(status int) string {
	return fmt.Sprintf("server error (%d)", status)
}

// parseError builds the error for a non-2xx response.
func parseError(status int, body []byte) *APIError {
	fallback := serverErrorMessage(status)

	var env model.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Kind: KindHTTP, Message: fallback, Status: status, Err: err}
	}

	apiErr := &APIError{
		Kind:    KindHTTP,
		Message: UserMessage(env.Error, fallback),
		Status:  status,
	}
	if env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Hint = env.Error.Hint
	}
	return apiErr
}
