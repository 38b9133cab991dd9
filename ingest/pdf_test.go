package ingest

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractor_GarbagePayloadFails(t *testing.T) {
	dir := t.TempDir()
	e := NewPDFExtractor(dir)

	_, _, err := e.ExtractText(context.Background(), []byte("%PDF-1.4 but not actually a pdf"))
	assert.Error(t, err)

	// The scratch file must be gone on the failure path too.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestPDFExtractor_ScratchFileCleanedOnSuccessPathToo(t *testing.T) {
	dir := t.TempDir()
	e := NewPDFExtractor(dir)

	// Even an empty payload walks the full staging path before pdf parsing
	// rejects it.
	_, _, err := e.ExtractText(context.Background(), nil)
	assert.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestCleanPage(t *testing.T) {
	in := "  Line one  \n\n\tLine\ttwo\t\n   \nLine three"
	want := "Line one\nLine two\nLine three"
	assert.Equal(t, want, cleanPage(in))
}
