package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text from PDF payloads. The payload is staged
// in a scratch file which is removed on every exit path.
type PDFExtractor struct {
	// TempDir is where scratch files are written. Empty means os.TempDir().
	TempDir string
}

func NewPDFExtractor(tempDir string) *PDFExtractor {
	return &PDFExtractor{TempDir: tempDir}
}

func (e *PDFExtractor) ExtractText(ctx context.Context, payload []byte) (text string, pages int, err error) {
	scratch, err := os.CreateTemp(e.TempDir, "hemolens-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())

	if _, err := scratch.Write(payload); err != nil {
		scratch.Close()
		return "", 0, fmt.Errorf("failed to stage payload: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to stage payload: %w", err)
	}

	return readAllPages(ctx, scratch.Name())
}

func readAllPages(ctx context.Context, path string) (text string, pages int, err error) {
	// The pdf library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parsing panic: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	pages = reader.NumPage()
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read page %d: %w", n, err)
		}
		content = cleanPage(content)
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n\n", n, content)
	}

	return strings.TrimSpace(b.String()), pages, nil
}

// cleanPage strips excess whitespace the way scanned reports tend to need:
// tabs to spaces, trimmed lines, blank lines dropped.
func cleanPage(content string) string {
	content = strings.ReplaceAll(content, "\t", " ")
	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
