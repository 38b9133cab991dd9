package hemolens

import (
	"context"
	"errors"
	"fmt"

	"github.com/axoncare-ai/hemolens/ai"
	"github.com/axoncare-ai/hemolens/ingest"
)

// ErrorKind is the small taxonomy of reportable pipeline failures.
type ErrorKind string

const (
	KindInvalidMediaType ErrorKind = "invalid_media_type"
	KindSizeExceeded     ErrorKind = "size_exceeded"
	KindEmptyPayload     ErrorKind = "empty_payload"
	KindBackend          ErrorKind = "backend_error"
	KindTimeout          ErrorKind = "timeout"
	KindInternal         ErrorKind = "internal_error"
)

// InputKind reports whether the kind describes a bad upload, which maps to a
// client error at the transport boundary rather than a server fault.
func (k ErrorKind) InputKind() bool {
	switch k {
	case KindInvalidMediaType, KindSizeExceeded, KindEmptyPayload:
		return true
	}
	return false
}

// StageError ties a failure to the stage it happened in.
type StageError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// classify maps an arbitrary stage failure onto the error taxonomy.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ingest.ErrInvalidMediaType):
		return KindInvalidMediaType
	case errors.Is(err, ingest.ErrSizeExceeded):
		return KindSizeExceeded
	case errors.Is(err, ingest.ErrEmptyPayload):
		return KindEmptyPayload
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case ai.IsTemporary(err):
		return KindBackend
	}

	var extractionErr *ingest.ExtractionError
	if errors.As(err, &extractionErr) {
		return KindBackend
	}

	var statusErr ai.StatusError
	if errors.As(err, &statusErr) {
		return KindBackend
	}

	return KindInternal
}

// retryable reports whether err is worth another attempt: backend
// unavailability, not bad input and not a deadline.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return classify(err) == KindBackend
}
