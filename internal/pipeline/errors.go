package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"lingua-flow-go/internal/translation"
)

// Kind classifies a pipeline failure for the caller.
type Kind string

const (
	KindSizeExceeded            Kind = "size_exceeded"
	KindExtractFailed           Kind = "extract_failed"
	KindTranscodeFailed         Kind = "transcode_failed"
	KindUnintelligible          Kind = "unintelligible"
	KindRecognitionServiceError Kind = "recognition_service_error"
	KindTranslationFailed       Kind = "translation_failed"
	KindSynthesisFailed         Kind = "synthesis_failed"
	KindFeatureDisabled         Kind = "feature_disabled"
	KindInvalidRequest          Kind = "invalid_request"
	KindInternal                Kind = "internal"
)

// Error is the single failure type returned by the composer.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	parts = append(parts, string(e.Kind))
	if stage := strings.TrimSpace(e.Stage); stage != "" {
		parts = append(parts, stage)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the user-visible description of the failure. It never includes
// collaborator internals, except for invalid requests where the detail is the message.
func (e *Error) Message() string {
	switch e.Kind {
	case KindSizeExceeded:
		return "File is too large"
	case KindExtractFailed:
		return "PDF extraction failed"
	case KindTranscodeFailed:
		return "Audio conversion failed"
	case KindUnintelligible:
		return "Could not understand the audio"
	case KindRecognitionServiceError:
		return "Speech recognition service error"
	case KindTranslationFailed:
		if errors.Is(e.Err, translation.ErrNoProvider) {
			return "Translation is not configured"
		}
		return "Translation failed"
	case KindSynthesisFailed:
		return "TTS failed"
	case KindFeatureDisabled:
		return "Speech recognition is not available on this server"
	case KindInvalidRequest:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Invalid request"
	default:
		return "Internal error"
	}
}

func newError(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func invalidRequest(format string, args ...any) *Error {
	return newError(KindInvalidRequest, StageValidate, fmt.Errorf(format, args...))
}

// KindOf returns the kind of a pipeline error, or KindInternal for anything else.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// MessageOf returns the user-visible message for err.
func MessageOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message()
	}
	return "Internal error"
}
