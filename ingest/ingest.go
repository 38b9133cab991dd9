// Package ingest accepts raw uploads, enforces size and media-type
// constraints, and turns payloads into plain report text.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrInvalidMediaType = errors.New("payload is not a PDF document")
	ErrSizeExceeded     = errors.New("payload exceeds maximum upload size")
	ErrEmptyPayload     = errors.New("payload is empty")
)

// ExtractionError wraps a failure from the text extraction backend. The
// original cause is retained for logging; transport layers must not echo it
// to clients.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// pdfMagic is the structural signature every PDF starts with. The declared
// media type is never trusted on its own.
var pdfMagic = []byte("%PDF-")

// Upload is an uploaded document as received from the transport layer.
// It lives only for the duration of one pipeline run.
type Upload struct {
	Payload           []byte
	DeclaredMediaType string
	SizeBytes         int64
	Filename          string
}

// ExtractedText is the plain text pulled out of one upload. SourceID is a
// per-request correlation id for logs and results, not a persisted identity.
type ExtractedText struct {
	SourceID  string
	Text      string
	PageCount int
}

// TextExtractor converts a raw payload to plain text. Implementations may
// use scratch storage but must release it on every exit path.
type TextExtractor interface {
	ExtractText(ctx context.Context, payload []byte) (text string, pages int, err error)
}

type Ingestor struct {
	maxBytes  int64
	extractor TextExtractor
	logger    *slog.Logger
}

func NewIngestor(maxBytes int64, extractor TextExtractor, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{maxBytes: maxBytes, extractor: extractor, logger: logger}
}

// Validate enforces the upload constraints without touching the extraction
// backend: empty payloads and oversize payloads are rejected before any
// extraction work, and the payload must carry the PDF signature regardless
// of what media type the client declared.
func (i *Ingestor) Validate(up Upload) error {
	if len(up.Payload) == 0 {
		return ErrEmptyPayload
	}
	if i.maxBytes > 0 && int64(len(up.Payload)) > i.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrSizeExceeded, len(up.Payload), i.maxBytes)
	}
	if !bytes.HasPrefix(up.Payload, pdfMagic) {
		return fmt.Errorf("%w: declared type %q", ErrInvalidMediaType, up.DeclaredMediaType)
	}
	return nil
}

// Extract runs the text extraction backend over a validated payload. Backend
// failures come back as *ExtractionError with the cause retained.
func (i *Ingestor) Extract(ctx context.Context, up Upload) (*ExtractedText, error) {
	text, pages, err := i.extractor.ExtractText(ctx, up.Payload)
	if err != nil {
		return nil, &ExtractionError{Cause: err}
	}
	if len(text) == 0 {
		return nil, &ExtractionError{Cause: errors.New("no readable text content in document")}
	}

	sourceID := uuid.New().String()
	i.logger.Debug("extracted document text", "source_id", sourceID, "pages", pages, "chars", len(text))

	return &ExtractedText{
		SourceID:  sourceID,
		Text:      text,
		PageCount: pages,
	}, nil
}
