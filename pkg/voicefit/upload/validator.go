// Package upload checks a candidate audio file against the format, size and
// duration limits of the analysis service before anything is sent.
package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/VoiceFit/pkg/voicefit/audio"
)

const (
	MaxSizeBytes       = 5 * 1024 * 1024
	MinDurationSeconds = 3.0
	MaxDurationSeconds = 20.0
)

type Reason string

const (
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonTooLarge          Reason = "file_too_large"
	ReasonDuration          Reason = "duration_out_of_range"
	ReasonUnknownDuration   Reason = "unknown_duration"
	ReasonUnreadable        Reason = "unreadable"
)

// ValidationError is a user-correctable rejection. Message is ready for display.
type ValidationError struct {
	Reason      Reason
	Message     string
	SizeBytes   int64
	DurationSec float64
	Err         error
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is a *ValidationError and returns it.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type Result struct {
	SizeBytes   int64
	DurationSec float64
}

type Validator struct {
	MaxSize     int64
	MinDuration float64
	MaxDuration float64
}

func NewValidator() *Validator {
	return &Validator{
		MaxSize:     MaxSizeBytes,
		MinDuration: MinDurationSeconds,
		MaxDuration: MaxDurationSeconds,
	}
}

// Validate runs the format, size and duration checks in that order and stops at
// the first failure. Failures are returned as *ValidationError.
func (v *Validator) Validate(ctx context.Context, c Candidate) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if mimeType := c.MIMEType(); mimeType != audio.MIMEType {
		msg := fmt.Sprintf("unsupported format %q: only %s files are accepted", mimeType, audio.MIMEType)
		size, err := c.Size()
		if err == nil {
			msg = fmt.Sprintf("unsupported format %q (%s): only %s files are accepted", mimeType, humanize.IBytes(uint64(size)), audio.MIMEType)
		}
		return Result{}, &ValidationError{
			Reason:    ReasonUnsupportedFormat,
			Message:   msg,
			SizeBytes: size,
		}
	}

	size, err := c.Size()
	if err != nil {
		return Result{}, &ValidationError{
			Reason:  ReasonUnreadable,
			Message: fmt.Sprintf("cannot read %s: %v", c.Name(), err),
			Err:     err,
		}
	}

	if size > v.MaxSize {
		return Result{}, &ValidationError{
			Reason:    ReasonTooLarge,
			Message:   fmt.Sprintf("file must be %s or smaller (currently %s)", humanize.IBytes(uint64(v.MaxSize)), humanize.IBytes(uint64(size))),
			SizeBytes: size,
		}
	}

	duration, err := probe(c)
	if err != nil {
		return Result{}, &ValidationError{
			Reason:    ReasonUnknownDuration,
			Message:   "cannot determine the audio duration; please choose another file",
			SizeBytes: size,
			Err:       err,
		}
	}

	if duration < v.MinDuration || duration > v.MaxDuration {
		return Result{}, &ValidationError{
			Reason:      ReasonDuration,
			Message:     fmt.Sprintf("audio must be between %g and %g seconds long (currently %.1fs)", v.MinDuration, v.MaxDuration, duration),
			SizeBytes:   size,
			DurationSec: duration,
		}
	}

	return Result{SizeBytes: size, DurationSec: duration}, nil
}

func probe(c Candidate) (float64, error) {
	r, err := c.Open()
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return audio.ProbeDuration(r)
}
