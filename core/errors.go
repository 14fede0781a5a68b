package core

import (
	"errors"
	"fmt"
)

// Transcription failures. Their Error text is what the user sees, so it
// must stay byte-for-byte stable.
var (
	ErrNoSpeech       = errors.New("Timeout - no speech detected")
	ErrUnintelligible = errors.New("Could not understand audio")
)

const recognitionErrorPrefix = "Speech recognition error: "

// RecognitionError reports a failure of the recognition service itself
// (network, auth, protocol), as opposed to audio it could not understand.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string {
	return recognitionErrorPrefix + e.Err.Error()
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a failed completion call.
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindQuota     ErrorKind = "quota"
	ErrorKindMalformed ErrorKind = "malformed"
	ErrorKindUnknown   ErrorKind = "unknown"
)

// CompletionError is returned by completion services with the failure
// already classified.
type CompletionError struct {
	Kind ErrorKind
	Err  error
}

func (e *CompletionError) Error() string {
	return e.Err.Error()
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

func NewCompletionError(kind ErrorKind, format string, args ...interface{}) *CompletionError {
	return &CompletionError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the classification carried by err, or ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrorKindUnknown
}
